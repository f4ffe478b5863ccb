package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
)

type SpaceRepo interface {
	Get(ctx context.Context, t domain.SpaceType) (*domain.Space, error)
	List(ctx context.Context) ([]domain.Space, error)
	Upsert(ctx context.Context, s *domain.Space) error
}

// LedgerRepo persists availability records. Update is a conditional write: it
// succeeds only while the stored version equals expectedVersion and bumps the
// version of rec on success.
type LedgerRepo interface {
	Get(ctx context.Context, t domain.SpaceType, date time.Time) (*domain.AvailabilityRecord, error)
	Insert(ctx context.Context, rec *domain.AvailabilityRecord) error
	Update(ctx context.Context, rec *domain.AvailabilityRecord, expectedVersion int64) error
	ListRange(ctx context.Context, from, to time.Time) ([]domain.AvailabilityRecord, error)
}

// BookingRepo persists bookings. Update only applies while the stored status
// still equals expected.
type BookingRepo interface {
	Create(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetByNumber(ctx context.Context, number string) (*domain.Booking, error)
	Update(ctx context.Context, b *domain.Booking, expected domain.BookingStatus) error
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.Booking, error)
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error)
	ListHoldingCapacity(ctx context.Context, t domain.SpaceType, date time.Time) ([]domain.Booking, error)
}

// Repos is a set of repositories bound to the same database handle.
type Repos struct {
	Spaces   SpaceRepo
	Ledger   LedgerRepo
	Bookings BookingRepo
}
