package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPaymentHandler struct {
	mock.Mock
}

func (m *mockPaymentHandler) ConfirmPayment(ctx context.Context, id uuid.UUID, pc reservation.PaymentConfirmation) (*domain.Booking, error) {
	args := m.Called(ctx, id, pc)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *mockPaymentHandler) RecordPaymentFailure(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	order := "ord-9"

	t.Run("payment succeeded", func(t *testing.T) {
		h := new(mockPaymentHandler)
		h.On("ConfirmPayment", ctx, id, reservation.PaymentConfirmation{OrderID: &order}).
			Return(&domain.Booking{ID: id, Status: domain.BookingConfirmed}, nil).Once()

		c := NewPaymentConsumer("amqp://unused", h)
		body := fmt.Sprintf(`{"booking_id":%q,"order_id":%q}`, id, order)

		require.NoError(t, c.handleMessage(ctx, QueuePaymentSucceeded, []byte(body)))
		h.AssertExpectations(t)
	})

	t.Run("payment failed", func(t *testing.T) {
		h := new(mockPaymentHandler)
		h.On("RecordPaymentFailure", ctx, id).Return(&domain.Booking{ID: id}, nil).Once()

		c := NewPaymentConsumer("amqp://unused", h)

		require.NoError(t, c.handleMessage(ctx, QueuePaymentFailed, []byte(fmt.Sprintf(`{"booking_id":%q}`, id))))
		h.AssertExpectations(t)
	})

	t.Run("outcomes that cannot apply are acked", func(t *testing.T) {
		h := new(mockPaymentHandler)
		h.On("ConfirmPayment", ctx, id, mock.Anything).
			Return(nil, fmt.Errorf("wrapped: %w", reservation.ErrBookingNotFound)).Once()
		h.On("RecordPaymentFailure", ctx, id).
			Return(nil, &reservation.TransitionError{From: domain.BookingCancelled, To: domain.BookingCancelled}).Once()

		c := NewPaymentConsumer("amqp://unused", h)
		body := []byte(fmt.Sprintf(`{"booking_id":%q}`, id))

		assert.NoError(t, c.handleMessage(ctx, QueuePaymentSucceeded, body))
		assert.NoError(t, c.handleMessage(ctx, QueuePaymentFailed, body))
		h.AssertExpectations(t)
	})

	t.Run("storage errors are requeued", func(t *testing.T) {
		h := new(mockPaymentHandler)
		boom := errors.New("database is locked")
		h.On("ConfirmPayment", ctx, id, mock.Anything).Return(nil, boom).Once()
		h.On("ConfirmPayment", ctx, id, mock.Anything).
			Return(nil, fmt.Errorf("confirm: %w", reservation.ErrPersistenceConflict)).Once()

		c := NewPaymentConsumer("amqp://unused", h)
		body := []byte(fmt.Sprintf(`{"booking_id":%q}`, id))

		err := c.handleMessage(ctx, QueuePaymentSucceeded, body)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, settleRequeue, settle(err))

		err = c.handleMessage(ctx, QueuePaymentSucceeded, body)
		assert.ErrorIs(t, err, reservation.ErrPersistenceConflict)
		assert.Equal(t, settleRequeue, settle(err))
		h.AssertExpectations(t)
	})

	t.Run("malformed messages", func(t *testing.T) {
		h := new(mockPaymentHandler)
		c := NewPaymentConsumer("amqp://unused", h)

		for _, m := range []struct{ queue, body string }{
			{QueuePaymentSucceeded, "{"},
			{QueuePaymentSucceeded, `{"booking_id":"nope"}`},
			{"payment.refunded", fmt.Sprintf(`{"booking_id":%q}`, id)},
		} {
			err := c.handleMessage(ctx, m.queue, []byte(m.body))
			assert.ErrorIs(t, err, errMalformed, m.body)
			assert.Equal(t, settleDrop, settle(err), m.body)
		}
		h.AssertNotCalled(t, "ConfirmPayment", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestSettle(t *testing.T) {
	assert.Equal(t, settleAck, settle(nil))
	assert.Equal(t, settleDrop, settle(fmt.Errorf("decode: %w", errMalformed)))
	assert.Equal(t, settleRequeue, settle(context.DeadlineExceeded))
	assert.Equal(t, settleRequeue, settle(errors.New("connection reset by peer")))
}

func TestNewBookingEvent(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	b := &domain.Booking{
		ID:            uuid.New(),
		Number:        "AS-240601-7KQ2M",
		UserID:        3,
		SpaceType:     domain.SpaceStudio,
		Date:          time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC),
		StartTime:     "10:00",
		EndTime:       "12:00",
		Status:        domain.BookingConfirmed,
		PaymentStatus: domain.PaymentPaid,
		Price:         domain.PriceBreakdown{TotalPrice: 1_400_000},
	}

	ev := NewBookingEvent(domain.EventBookingConfirmed, b, at)

	assert.Equal(t, domain.EventBookingConfirmed, ev.Type)
	assert.Equal(t, b.ID.String(), ev.BookingID)
	assert.Equal(t, "studio", ev.SpaceType)
	assert.Equal(t, "2024-06-08", ev.Date)
	assert.Equal(t, "confirmed", ev.Status)
	assert.Equal(t, "paid", ev.PaymentStatus)
	assert.Equal(t, int64(1_400_000), ev.TotalPrice)
	assert.Equal(t, "2024-06-01T08:30:00Z", ev.OccurredAt)
}
