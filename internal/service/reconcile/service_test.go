package reconcile_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
	gormrepo "github.com/kirinyoku/spacebook/internal/repository/gorm"
	"github.com/kirinyoku/spacebook/internal/service/catalog"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
	"github.com/kirinyoku/spacebook/internal/service/reconcile"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var saturday = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestRun_DetectsAndFixesDrift(t *testing.T) {
	ctx := context.Background()
	now := func() time.Time { return time.Date(2024, 5, 25, 9, 0, 0, 0, time.UTC) }

	store, err := gormrepo.Open(gormrepo.Config{
		DSN:    "file:reconcile_" + uuid.NewString() + "?mode=memory&cache=shared",
		Silent: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	repos := store.Repos()
	cat := catalog.New(repos.Spaces, nil, catalog.Config{})
	for _, sp := range catalog.DefaultSpaces() {
		require.NoError(t, cat.UpsertSpace(ctx, &sp))
	}

	led := ledger.New(repos, store, cat, nil, nil, ledger.Config{Now: now})
	res := reservation.New(reservation.Deps{Repos: repos, Tx: store, Spaces: cat, Ledger: led},
		reservation.Config{Location: time.UTC, Now: now})

	kept, err := res.CreateBooking(ctx, reservation.CreateRequest{
		UserID: 1, SpaceType: domain.SpaceMeetingRoom, Date: saturday,
		StartTime: "10:00", EndTime: "11:00", Capacity: 2,
	})
	require.NoError(t, err)

	dropped, err := res.CreateBooking(ctx, reservation.CreateRequest{
		UserID: 2, SpaceType: domain.SpaceMeetingRoom, Date: saturday,
		StartTime: "10:00", EndTime: "10:30", Capacity: 3,
	})
	require.NoError(t, err)
	_, err = res.CancelBooking(ctx, dropped.ID, 2, "")
	require.NoError(t, err)

	// a write that bypassed the booking flow
	rec, err := repos.Ledger.Get(ctx, domain.SpaceMeetingRoom, saturday)
	require.NoError(t, err)
	version := rec.Version
	ledger.SetLoads(rec, map[int]int{4: 5}, now())
	require.NoError(t, repos.Ledger.Update(ctx, rec, version))

	svc := reconcile.New(repos, led)

	rep, err := svc.Run(ctx, saturday.AddDate(0, 0, 7), saturday, false)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01", rep.From)
	assert.Equal(t, 1, rep.Records)
	assert.Zero(t, rep.Fixed)
	assert.Equal(t, []reconcile.Drift{
		{SpaceType: domain.SpaceMeetingRoom, Date: "2024-06-01", Slot: "10:00-10:30", Ledger: 5, Bookings: 2},
		{SpaceType: domain.SpaceMeetingRoom, Date: "2024-06-01", Slot: "10:30-11:00", Ledger: 0, Bookings: 2},
	}, rep.Drifts)

	rep, err = svc.Run(ctx, saturday, saturday, true)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Fixed)

	rep, err = svc.Run(ctx, saturday, saturday, false)
	require.NoError(t, err)
	assert.Empty(t, rep.Drifts)

	fixed, err := repos.Ledger.Get(ctx, domain.SpaceMeetingRoom, saturday)
	require.NoError(t, err)
	loads := ledger.Loads(fixed)
	assert.Equal(t, kept.CapacityRequested, loads[4])
	assert.Equal(t, kept.CapacityRequested, loads[5])
	assert.Zero(t, loads[6])
	assert.Greater(t, fixed.Version, version+1)
}
