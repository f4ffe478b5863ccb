package catalog_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
	gormrepo "github.com/kirinyoku/spacebook/internal/repository/gorm"
	"github.com/kirinyoku/spacebook/internal/service/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) *catalog.Service {
	t.Helper()

	store, err := gormrepo.Open(gormrepo.Config{
		DSN:    "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared",
		Silent: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	return catalog.New(store.Repos().Spaces, nil, catalog.Config{})
}

func TestDefaultSpacesAreValid(t *testing.T) {
	seen := make(map[domain.SpaceType]bool)
	for _, sp := range catalog.DefaultSpaces() {
		require.NoError(t, catalog.Validate(&sp), sp.Type)
		seen[sp.Type] = true
	}
	assert.Len(t, seen, len(domain.SpaceTypes))
}

func TestUpsertAndGet(t *testing.T) {
	cat := newCatalog(t)
	ctx := context.Background()

	_, err := cat.GetSpace(ctx, domain.SpaceStudio)
	assert.ErrorIs(t, err, catalog.ErrSpaceNotFound)

	sp := catalog.DefaultSpaces()[0]
	require.NoError(t, cat.UpsertSpace(ctx, &sp))

	got, err := cat.GetSpace(ctx, sp.Type)
	require.NoError(t, err)
	assert.Equal(t, sp.TotalCapacity, got.TotalCapacity)
	assert.Equal(t, sp.OperatingDays, got.OperatingDays)
	assert.Equal(t, sp.Services, got.Services)

	sp.TotalCapacity = 9
	require.NoError(t, cat.UpsertSpace(ctx, &sp))

	all, err := cat.ListSpaces(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 9, all[0].TotalCapacity)

	_, err = cat.GetSpace(ctx, domain.SpaceType("rooftop"))
	assert.ErrorIs(t, err, catalog.ErrSpaceNotFound)
}

func TestValidate(t *testing.T) {
	base := func() domain.Space { return catalog.DefaultSpaces()[2] }

	cases := map[string]func(*domain.Space){
		"unknown type":   func(s *domain.Space) { s.Type = "rooftop" },
		"no capacity":    func(s *domain.Space) { s.TotalCapacity = 0 },
		"negative rate":  func(s *domain.Space) { s.BaseHourlyRate = -1 },
		"closes early":   func(s *domain.Space) { s.OpenSlot, s.CloseSlot = "12:00", "10:00" },
		"off the ladder": func(s *domain.Space) { s.OpenSlot = "07:00" },
		"bad peak":       func(s *domain.Space) { s.PeakWindows = []domain.SlotWindow{{Start: "13:00", End: "13:00"}} },
		"unnamed service": func(s *domain.Space) {
			s.Services = append(s.Services, domain.AdditionalService{UnitPrice: 10})
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			sp := base()
			mutate(&sp)
			assert.ErrorIs(t, catalog.Validate(&sp), catalog.ErrInvalidSpace)
		})
	}
}
