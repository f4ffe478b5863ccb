package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PaymentHandler applies payment outcomes to bookings.
type PaymentHandler interface {
	ConfirmPayment(ctx context.Context, id uuid.UUID, pc reservation.PaymentConfirmation) (*domain.Booking, error)
	RecordPaymentFailure(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
}

// errMalformed marks deliveries that can never be applied, however often they are redelivered.
var errMalformed = errors.New("malformed payment event")

type PaymentConsumer struct {
	url      string
	handler  PaymentHandler
	prefetch int
	// requeueDelay paces redelivery of messages that failed on a transient error.
	requeueDelay time.Duration
}

func NewPaymentConsumer(url string, handler PaymentHandler) *PaymentConsumer {
	return &PaymentConsumer{url: url, handler: handler, prefetch: 50, requeueDelay: time.Second}
}

type settlement int

const (
	settleAck settlement = iota
	settleRequeue
	settleDrop
)

// settle decides what happens to a delivery after handleMessage. Only malformed
// payloads are dropped; a payment that failed on storage must come back.
func settle(err error) settlement {
	switch {
	case err == nil:
		return settleAck
	case errors.Is(err, errMalformed):
		return settleDrop
	default:
		return settleRequeue
	}
}

// Run consumes payment outcomes until ctx is done, reconnecting with backoff.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			slog.Warn("payment consumer: dial failed", "err", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		slog.Warn("payment consumer: loop ended, reconnecting", "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *PaymentConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		slog.Warn("payment consumer: set QoS failed", "err", err)
	}

	succeeded, err := subscribe(ch, QueuePaymentSucceeded)
	if err != nil {
		return err
	}

	failed, err := subscribe(ch, QueuePaymentFailed)
	if err != nil {
		return err
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-succeeded:
		case d, ok = <-failed:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}

		err := c.handleMessage(ctx, d.RoutingKey, d.Body)
		switch settle(err) {
		case settleAck:
			_ = d.Ack(false)
		case settleDrop:
			slog.Error("payment consumer: dropping malformed message", "queue", d.RoutingKey, "err", err)
			_ = d.Nack(false, false)
		case settleRequeue:
			slog.Warn("payment consumer: requeueing message", "queue", d.RoutingKey, "redelivered", d.Redelivered, "err", err)
			// Unacked deliveries go back to the queue when the channel closes.
			if !sleep(ctx, c.requeueDelay) {
				return ctx.Err()
			}
			_ = d.Nack(false, true)
		}
	}
}

func subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}

	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}

	return msgs, nil
}

// handleMessage applies one payment outcome. Business refusals (unknown booking, booking
// already cancelled) are logged and acknowledged. Undecodable payloads wrap errMalformed;
// any other error is the store's and worth another attempt.
func (c *PaymentConsumer) handleMessage(ctx context.Context, queue string, body []byte) error {
	var ev PaymentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: unmarshal: %w", errMalformed, err)
	}

	id, err := uuid.Parse(ev.BookingID)
	if err != nil {
		return fmt.Errorf("%w: booking id %q: %w", errMalformed, ev.BookingID, err)
	}

	switch queue {
	case QueuePaymentSucceeded:
		_, err = c.handler.ConfirmPayment(ctx, id, reservation.PaymentConfirmation{
			OrderID:             ev.OrderID,
			WalletTransactionID: ev.WalletTransactionID,
		})
	case QueuePaymentFailed:
		_, err = c.handler.RecordPaymentFailure(ctx, id)
	default:
		return fmt.Errorf("%w: unexpected queue %q", errMalformed, queue)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, reservation.ErrBookingNotFound), errors.Is(err, reservation.ErrInvalidTransition):
		slog.Warn("payment consumer: outcome not applied", "queue", queue, "booking_id", id, "err", err)
		return nil
	default:
		return err
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
