package pricing

import (
	"testing"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom() *domain.Space {
	return &domain.Space{
		Type:           domain.SpaceMeetingRoom,
		TotalCapacity:  12,
		OpenSlot:       "08:00",
		CloseSlot:      "20:00",
		BaseHourlyRate: 100_000,
		PeakHourlyRate: 150_000,
		PeakWindows:    []domain.SlotWindow{{Start: "10:00", End: "13:00"}},
		Services: []domain.AdditionalService{
			{Code: "projector", UnitPrice: 50_000},
			{Code: "coffee", UnitPrice: 20_000, PerAttendee: true},
		},
		Active: true,
	}
}

func mustRange(t *testing.T, start, end string) domain.SlotRange {
	t.Helper()
	r, err := domain.ParseSlotRange(start, end)
	require.NoError(t, err)
	return r
}

func TestCompute_PeakAndServicesAndPromo(t *testing.T) {
	calc := New(Config{PromoCodes: map[string]int{"nowruz": 10}})

	got, err := calc.Compute(Request{
		Space:     testRoom(),
		Date:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Range:     mustRange(t, "09:00", "11:00"),
		Capacity:  1,
		Attendees: 3,
		Services:  []string{"projector", "coffee", "projector"},
		PromoCode: "NowRuz",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PriceBreakdown{
		HourlyRate:             125_000,
		BasePrice:              250_000,
		AdditionalServicesCost: 110_000,
		DiscountAmount:         25_000,
		TotalPrice:             335_000,
		PeakUnits:              2,
		OffPeakUnits:           2,
	}, got)
}

func TestCompute_Deterministic(t *testing.T) {
	calc := New(Config{GroupThreshold: 5, GroupPercent: 10})
	req := Request{
		Space:     testRoom(),
		Range:     mustRange(t, "12:00", "15:30"),
		Capacity:  6,
		Services:  []string{"coffee"},
		Discounts: []Discount{{Code: "loyal", Percent: 5, Amount: 1_000}},
	}

	first, err := calc.Compute(req)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		again, err := calc.Compute(req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	assert.Equal(t, first.BasePrice+first.AdditionalServicesCost-first.DiscountAmount, first.TotalPrice)
}

func TestCompute_PricePerSeat(t *testing.T) {
	desk := &domain.Space{
		Type:           domain.SpaceSharedDesk,
		TotalCapacity:  40,
		BaseHourlyRate: 20_000,
		PricePerSeat:   true,
	}

	got, err := New(Config{}).Compute(Request{Space: desk, Range: mustRange(t, "08:00", "09:00"), Capacity: 3})
	require.NoError(t, err)

	assert.Equal(t, int64(20_000), got.HourlyRate)
	assert.Equal(t, int64(60_000), got.BasePrice)
	assert.Equal(t, int64(60_000), got.TotalPrice)
	assert.Equal(t, 0, got.PeakUnits)
}

func TestCompute_GroupDiscount(t *testing.T) {
	calc := New(Config{GroupThreshold: 10, GroupPercent: 10})
	rng := mustRange(t, "08:00", "09:00")

	small, err := calc.Compute(Request{Space: testRoom(), Range: rng, Capacity: 1, Attendees: 9})
	require.NoError(t, err)
	assert.Zero(t, small.DiscountAmount)

	group, err := calc.Compute(Request{Space: testRoom(), Range: rng, Capacity: 1, Attendees: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), group.DiscountAmount)
	assert.Equal(t, int64(90_000), group.TotalPrice)
}

func TestCompute_DiscountNeverNegative(t *testing.T) {
	got, err := New(Config{}).Compute(Request{
		Space:     testRoom(),
		Range:     mustRange(t, "08:00", "09:00"),
		Capacity:  1,
		Discounts: []Discount{{Code: "voucher", Amount: 10_000_000}},
	})
	require.NoError(t, err)

	assert.Equal(t, got.BasePrice, got.DiscountAmount)
	assert.Zero(t, got.TotalPrice)
}

func TestCompute_Errors(t *testing.T) {
	calc := New(Config{})
	rng := mustRange(t, "08:00", "09:00")

	_, err := calc.Compute(Request{Space: testRoom(), Range: rng, Capacity: 1, Services: []string{"sauna"}})
	assert.ErrorIs(t, err, ErrUnknownService)

	_, err = calc.Compute(Request{Space: testRoom(), Range: rng, Capacity: 1, PromoCode: "NOPE"})
	assert.ErrorIs(t, err, ErrUnknownPromoCode)

	_, err = calc.Compute(Request{Space: testRoom(), Range: rng, Capacity: 1, Discounts: []Discount{{Percent: 120}}})
	assert.ErrorIs(t, err, ErrInvalidDiscount)

	_, err = calc.Compute(Request{Range: rng, Capacity: 1})
	assert.Error(t, err)
}
