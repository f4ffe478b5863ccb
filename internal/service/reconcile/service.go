package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/kirinyoku/spacebook/internal/repository"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
)

// Drift is one ledger unit whose load differs from the bookings that hold it.
type Drift struct {
	SpaceType domain.SpaceType `json:"space_type"`
	Date      string           `json:"date"`
	Slot      string           `json:"slot"`
	Ledger    int              `json:"ledger"`
	Bookings  int              `json:"bookings"`
}

type Report struct {
	From    string  `json:"from"`
	To      string  `json:"to"`
	Records int     `json:"records"`
	Drifts  []Drift `json:"drifts"`
	// Fixed counts ledger rows rewritten from the bookings.
	Fixed int `json:"fixed"`
}

type Service struct {
	repos  repository.Repos
	ledger *ledger.Service
}

func New(repos repository.Repos, led *ledger.Service) *Service {
	return &Service{repos: repos, ledger: led}
}

// Run compares every ledger row dated in [from, to] with the bookings that hold capacity on
// it. With fix set, drifting rows are rewritten through the ledger's versioned write.
func (s *Service) Run(ctx context.Context, from, to time.Time, fix bool) (*Report, error) {
	const op = "service.reconcile.Run"

	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if to.Before(from) {
		from, to = to, from
	}

	recs, err := s.ledger.Records(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rep := &Report{
		From:    from.Format(domain.DateLayout),
		To:      to.Format(domain.DateLayout),
		Records: len(recs),
	}

	for i := range recs {
		rec := &recs[i]

		want, err := expectedLoads(ctx, s.repos, rec.SpaceType, rec.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		drifts := compare(rec, want)
		if len(drifts) == 0 {
			continue
		}
		rep.Drifts = append(rep.Drifts, drifts...)

		slog.Warn("ledger drift detected",
			"space_type", rec.SpaceType,
			"date", rec.Date.Format(domain.DateLayout),
			"units", len(drifts),
		)

		if !fix {
			continue
		}

		t, date := rec.SpaceType, rec.Date
		if _, err := s.ledger.Overwrite(ctx, t, date, func(ctx context.Context, repos repository.Repos) (map[int]int, error) {
			return expectedLoads(ctx, repos, t, date)
		}); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rep.Fixed++
	}

	return rep, nil
}

// expectedLoads sums the capacity of every booking that holds the (t, date) row, per unit.
func expectedLoads(ctx context.Context, repos repository.Repos, t domain.SpaceType, date time.Time) (map[int]int, error) {
	bookings, err := repos.Bookings.ListHoldingCapacity(ctx, t, date)
	if err != nil {
		return nil, err
	}

	loads := make(map[int]int)
	for i := range bookings {
		b := &bookings[i]
		if !b.Status.HoldsCapacity() {
			continue
		}
		rng, err := b.SlotRange()
		if err != nil {
			continue
		}
		for u := rng.Start; u < rng.End; u++ {
			loads[u] += b.CapacityRequested
		}
	}

	return loads, nil
}

func compare(rec *domain.AvailabilityRecord, want map[int]int) []Drift {
	have := ledger.Loads(rec)

	units := make(map[int]struct{}, len(have)+len(want))
	for u := range have {
		units[u] = struct{}{}
	}
	for u := range want {
		units[u] = struct{}{}
	}

	sorted := make([]int, 0, len(units))
	for u := range units {
		sorted = append(sorted, u)
	}
	sort.Ints(sorted)

	var out []Drift
	for _, u := range sorted {
		if have[u] == want[u] {
			continue
		}
		out = append(out, Drift{
			SpaceType: rec.SpaceType,
			Date:      rec.Date.Format(domain.DateLayout),
			Slot:      domain.SlotLabel(u) + "-" + domain.SlotLabel(u+1),
			Ledger:    have[u],
			Bookings:  want[u],
		})
	}

	return out
}
