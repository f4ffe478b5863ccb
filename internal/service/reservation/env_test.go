package reservation_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
	gormrepo "github.com/kirinyoku/spacebook/internal/repository/gorm"
	"github.com/kirinyoku/spacebook/internal/service/catalog"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type env struct {
	store   *gormrepo.Store
	catalog *catalog.Service
	ledger  *ledger.Service
	svc     *reservation.Service
	clock   *clock
}

// saturday is an operating day of every default space.
var saturday = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newEnv(t *testing.T, capacities map[domain.SpaceType]int, opts ...func(*reservation.Config)) *env {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "_" + uuid.NewString() + "?mode=memory&cache=shared"
	store, err := gormrepo.Open(gormrepo.Config{DSN: dsn, Silent: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	clk := &clock{now: time.Date(2024, 5, 25, 9, 0, 0, 0, time.UTC)}

	cat := catalog.New(store.Repos().Spaces, nil, catalog.Config{})
	for _, sp := range catalog.DefaultSpaces() {
		if c, ok := capacities[sp.Type]; ok {
			sp.TotalCapacity = c
		}
		require.NoError(t, cat.UpsertSpace(ctx, &sp))
	}

	led := ledger.New(store.Repos(), store, cat, nil, nil, ledger.Config{Now: clk.Now})

	cfg := reservation.Config{Location: time.UTC, Now: clk.Now}
	for _, o := range opts {
		o(&cfg)
	}

	svc := reservation.New(reservation.Deps{
		Repos:  store.Repos(),
		Tx:     store,
		Spaces: cat,
		Ledger: led,
	}, cfg)

	return &env{store: store, catalog: cat, ledger: led, svc: svc, clock: clk}
}

func request(userID int64, t domain.SpaceType, date time.Time, start, end string, capacity int) reservation.CreateRequest {
	return reservation.CreateRequest{
		UserID:    userID,
		SpaceType: t,
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Capacity:  capacity,
	}
}

// load returns the booked capacity of the unit starting at label.
func (e *env) load(t *testing.T, st domain.SpaceType, date time.Time, label string) int {
	t.Helper()

	rec, err := e.ledger.View(context.Background(), st, date)
	require.NoError(t, err)

	i, ok := domain.SlotIndex(label)
	require.True(t, ok)

	slot := rec.Slot(i)
	require.NotNil(t, slot)

	return slot.BookedCapacity
}
