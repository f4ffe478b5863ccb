// Package queue carries booking events to RabbitMQ and consumes payment outcomes from it.
package queue

import (
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
)

const (
	QueuePaymentSucceeded = "payment.succeeded"
	QueuePaymentFailed    = "payment.failed"
)

// BookingEvent is the body published for every booking lifecycle event.
type BookingEvent struct {
	Type          string `json:"type"`
	BookingID     string `json:"booking_id"`
	BookingNumber string `json:"booking_number"`
	UserID        int64  `json:"user_id"`
	SpaceType     string `json:"space_type"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	TotalPrice    int64  `json:"total_price"`
	RefundAmount  int64  `json:"refund_amount"`
	OccurredAt    string `json:"occurred_at"`
}

func NewBookingEvent(eventType string, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:          eventType,
		BookingID:     b.ID.String(),
		BookingNumber: b.Number,
		UserID:        b.UserID,
		SpaceType:     string(b.SpaceType),
		Date:          b.Date.Format(domain.DateLayout),
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		TotalPrice:    b.Price.TotalPrice,
		RefundAmount:  b.RefundAmount,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
}

// PaymentEvent is consumed from the payment.succeeded and payment.failed queues.
type PaymentEvent struct {
	BookingID           string  `json:"booking_id"`
	OrderID             *string `json:"order_id,omitempty"`
	WalletTransactionID *string `json:"wallet_transaction_id,omitempty"`
}
