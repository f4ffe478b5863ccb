package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
)

type Quote struct {
	Price     domain.PriceBreakdown
	Available bool
	// Refusal is set when the ledger would refuse the request right now.
	Refusal *ledger.CapacityError
}

// Quote prices a request and checks it against the current availability without reserving.
func (s *Service) Quote(ctx context.Context, req CreateRequest) (*Quote, error) {
	const op = "service.reservation.Quote"

	c, err := s.check(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rec, err := s.ledger.View(ctx, c.space.Type, c.req.Date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := &Quote{Price: c.price, Available: true}

	if err := ledger.Check(rec, c.rng, c.req.Capacity, s.cfg.Now()); err != nil {
		var capErr *ledger.CapacityError
		if !errors.As(err, &capErr) {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		q.Available = false
		q.Refusal = capErr
	}

	return q, nil
}
