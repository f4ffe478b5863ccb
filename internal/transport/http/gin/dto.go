package httpgin

import (
	"strings"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
	"github.com/kirinyoku/spacebook/internal/service/pricing"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
)

type ContactInput struct {
	Name  string `json:"name" binding:"omitempty,max=120"`
	Phone string `json:"phone" binding:"omitempty,max=32"`
	Email string `json:"email" binding:"omitempty,email"`
}

// DiscountInput is a manual discount; only admin and service callers may send one.
type DiscountInput struct {
	Code    string `json:"code" binding:"required"`
	Percent int    `json:"percent" binding:"gte=0,lte=100"`
	Amount  int64  `json:"amount" binding:"gte=0"`
}

// BookingRequest is shared by quotes, single and recurring bookings.
type BookingRequest struct {
	Date              string          `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime         string          `json:"start_time" binding:"required"`
	EndTime           string          `json:"end_time" binding:"required"`
	Capacity          int             `json:"capacity" binding:"required,gte=1,lte=50"`
	Attendees         int             `json:"attendees" binding:"gte=0"`
	Services          []string        `json:"services" binding:"omitempty,dive,required"`
	PromoCode         string          `json:"promo_code"`
	Discounts         []DiscountInput `json:"discounts" binding:"omitempty,dive"`
	Contact           ContactInput    `json:"contact"`
	WorkshopSessionID *string         `json:"workshop_session_id"`
	Notes             string          `json:"notes" binding:"max=1000"`
}

type CreateBookingRequest struct {
	SpaceType string `json:"space_type" binding:"required"`
	BookingRequest
}

type RecurringBookingRequest struct {
	CreateBookingRequest
	Pattern string `json:"pattern" binding:"required,oneof=daily weekly biweekly monthly"`
	EndDate string `json:"end_date" binding:"required,datetime=2006-01-02"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type ConfirmPaymentRequest struct {
	OrderID             *string `json:"order_id"`
	WalletTransactionID *string `json:"wallet_transaction_id"`
}

type BlockRequest struct {
	Reason string `json:"reason" binding:"required"`
	Until  string `json:"until"`
}

type MaintenanceRequest struct {
	Start  string `json:"start" binding:"required"`
	End    string `json:"end" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type ReconcileRequest struct {
	From string `json:"from" binding:"required,datetime=2006-01-02"`
	To   string `json:"to" binding:"required,datetime=2006-01-02"`
	Fix  bool   `json:"fix"`
}

type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type QuoteResponse struct {
	Price     domain.PriceBreakdown `json:"price"`
	Available bool                  `json:"available"`
	Reason    string                `json:"reason,omitempty"`
	Slot      string                `json:"slot,omitempty"`
}

type OccurrenceResponse struct {
	Index   int             `json:"index"`
	Date    string          `json:"date"`
	Booking *domain.Booking `json:"booking,omitempty"`
	Error   *ErrorResponse  `json:"error,omitempty"`
}

type RecurringResponse struct {
	ParentID    string               `json:"parent_id,omitempty"`
	Succeeded   int                  `json:"succeeded"`
	EndDate     string               `json:"end_date"`
	Truncated   bool                 `json:"truncated"`
	Occurrences []OccurrenceResponse `json:"occurrences"`
}

type ExpireResponse struct {
	Expired int `json:"expired"`
}

func (r BookingRequest) toCreate(userID int64, t string, rateKey string) (reservation.CreateRequest, error) {
	date, err := domain.ParseDate(r.Date)
	if err != nil {
		return reservation.CreateRequest{}, err
	}

	discounts := make([]pricing.Discount, 0, len(r.Discounts))
	for _, d := range r.Discounts {
		discounts = append(discounts, pricing.Discount{Code: d.Code, Percent: d.Percent, Amount: d.Amount})
	}

	return reservation.CreateRequest{
		UserID:    userID,
		SpaceType: domain.SpaceType(strings.TrimSpace(t)),
		Date:      date,
		StartTime: r.StartTime,
		EndTime:   r.EndTime,
		Capacity:  r.Capacity,
		Attendees: r.Attendees,
		Services:  r.Services,
		PromoCode: r.PromoCode,
		Discounts: discounts,
		Contact: domain.ContactInfo{
			Name:  r.Contact.Name,
			Phone: r.Contact.Phone,
			Email: r.Contact.Email,
		},
		WorkshopSessionID: r.WorkshopSessionID,
		Notes:             r.Notes,
		RateKey:           rateKey,
	}, nil
}

func toQuoteResponse(q *reservation.Quote) QuoteResponse {
	resp := QuoteResponse{Price: q.Price, Available: q.Available}
	if q.Refusal != nil {
		resp.Reason = string(q.Refusal.Kind)
		resp.Slot = q.Refusal.Slot
	}
	return resp
}

func parseUntil(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func capacityDetails(e *ledger.CapacityError) map[string]any {
	d := map[string]any{
		"kind":       string(e.Kind),
		"space_type": string(e.SpaceType),
		"date":       e.Date.Format(domain.DateLayout),
	}
	if e.Slot != "" {
		d["slot"] = e.Slot
	}
	if e.Kind == ledger.KindExhausted {
		d["requested"] = e.Requested
		d["available"] = e.Available
	}
	return d
}
