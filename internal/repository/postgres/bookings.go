package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/repository"
)

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

const bookingColumns = `id, booking_number, user_id, space_type, date, start_time, end_time,
	duration_hours, capacity_requested, attendee_count, status, payment_status, hourly_rate,
	base_price, additional_services_cost, discount_amount, total_price, peak_units, off_peak_units,
	services, contact_name, contact_email, contact_phone, workshop_session_id, parent_booking_id,
	is_recurring, recurring_pattern, recurring_end_date, order_id, wallet_transaction_id,
	cancellation_reason, cancellation_fee, refund_amount, notes, cancelled_at, checked_in_at,
	completed_at, created_at, updated_at`

// Create inserts a new booking.
//
// Returns:
//   - error: repository.ErrConflict if the booking number is already taken.
func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgresrepo.BookingRepo.Create"

	db := r.handle()

	services, err := json.Marshal(b.Services)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	_, err = db.Exec(ctx,
		`INSERT INTO bookings(`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
				 $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34,
				 $35, $36, $37, $38, $39)`,
		b.ID, b.Number, b.UserID, string(b.SpaceType), domain.DateOnly(b.Date), b.StartTime,
		b.EndTime, b.DurationHours, b.CapacityRequested, b.AttendeeCount, string(b.Status),
		string(b.PaymentStatus), b.Price.HourlyRate, b.Price.BasePrice,
		b.Price.AdditionalServicesCost, b.Price.DiscountAmount, b.Price.TotalPrice,
		b.Price.PeakUnits, b.Price.OffPeakUnits, services, b.Contact.Name, b.Contact.Email,
		b.Contact.Phone, b.WorkshopSessionID, b.ParentBookingID, b.IsRecurring,
		patternArg(b.RecurringPattern), dateArg(b.RecurringEndDate), b.OrderID,
		b.WalletTransactionID, b.CancellationReason, b.CancellationFee, b.RefundAmount, b.Notes,
		b.CancelledAt, b.CheckedInAt, b.CompletedAt, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Get"

	db := r.handle()

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetByNumber"

	db := r.handle()

	b, err := scanBooking(db.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_number = $1`, number,
	))
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// Update persists the mutable part of a booking, guarded by its previous status.
//
// Returns:
//   - error: repository.ErrNotFound if the booking does not exist.
//   - error: repository.ErrStaleVersion if its status moved on concurrently.
func (r *BookingRepo) Update(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error {
	const op = "postgresrepo.BookingRepo.Update"

	db := r.handle()

	b.UpdatedAt = time.Now().UTC()

	tag, err := db.Exec(ctx,
		`UPDATE bookings
		 SET status = $3,
			 payment_status = $4,
			 order_id = $5,
			 wallet_transaction_id = $6,
			 cancellation_reason = $7,
			 cancellation_fee = $8,
			 refund_amount = $9,
			 cancelled_at = $10,
			 checked_in_at = $11,
			 completed_at = $12,
			 parent_booking_id = $13,
			 updated_at = $14
		 WHERE id = $1 AND status = $2`,
		b.ID, string(expected), string(b.Status), string(b.PaymentStatus), b.OrderID,
		b.WalletTransactionID, b.CancellationReason, b.CancellationFee, b.RefundAmount,
		b.CancelledAt, b.CheckedInAt, b.CompletedAt, b.ParentBookingID, b.UpdatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := db.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, b.ID,
		).Scan(&exists); err != nil {
			return wrapDBErr(op, err)
		}
		if !exists {
			return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, repository.ErrStaleVersion)
	}

	return nil
}

func (r *BookingRepo) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListByUser"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset,
	)
}

func (r *BookingRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListPendingCreatedBefore"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE status = 'pending' AND payment_status <> 'paid' AND created_at < $1
		 ORDER BY created_at
		 LIMIT $2`,
		cutoff, limit,
	)
}

func (r *BookingRepo) ListHoldingCapacity(ctx context.Context, t domain.SpaceType, date time.Time) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.ListHoldingCapacity"

	return r.list(ctx, op,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE space_type = $1 AND date = $2
		   AND status <> 'cancelled'
		 ORDER BY start_time`,
		string(t), domain.DateOnly(date),
	)
}

func (r *BookingRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Booking, error) {
	db := r.handle()

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b             domain.Booking
		typ           string
		status        string
		paymentStatus string
		services      []byte
		pattern       *string
	)

	err := row.Scan(
		&b.ID, &b.Number, &b.UserID, &typ, &b.Date, &b.StartTime, &b.EndTime, &b.DurationHours,
		&b.CapacityRequested, &b.AttendeeCount, &status, &paymentStatus, &b.Price.HourlyRate,
		&b.Price.BasePrice, &b.Price.AdditionalServicesCost, &b.Price.DiscountAmount,
		&b.Price.TotalPrice, &b.Price.PeakUnits, &b.Price.OffPeakUnits, &services,
		&b.Contact.Name, &b.Contact.Email, &b.Contact.Phone, &b.WorkshopSessionID,
		&b.ParentBookingID, &b.IsRecurring, &pattern, &b.RecurringEndDate, &b.OrderID,
		&b.WalletTransactionID, &b.CancellationReason, &b.CancellationFee, &b.RefundAmount,
		&b.Notes, &b.CancelledAt, &b.CheckedInAt, &b.CompletedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.SpaceType = domain.SpaceType(typ)
	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(paymentStatus)
	b.Date = domain.DateOnly(b.Date)
	if pattern != nil {
		p := domain.RecurringPattern(*pattern)
		b.RecurringPattern = &p
	}

	if err := unmarshalAll(services, &b.Services); err != nil {
		return nil, err
	}

	return &b, nil
}

func patternArg(p *domain.RecurringPattern) *string {
	if p == nil {
		return nil
	}
	s := string(*p)
	return &s
}

func dateArg(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.DateOnly(*t)
	return &d
}
