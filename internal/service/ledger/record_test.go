package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testDate = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) // Saturday
	testNow  = time.Date(2024, 5, 30, 9, 0, 0, 0, time.UTC)
)

func everyDay() []time.Weekday {
	return []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
}

func testSpace(capacity int) *domain.Space {
	return &domain.Space{
		Type:           domain.SpaceMeetingRoom,
		TotalCapacity:  capacity,
		OpenSlot:       "09:00",
		CloseSlot:      "18:00",
		OperatingDays:  everyDay(),
		BaseHourlyRate: 100_000,
		PeakWindows:    []domain.SlotWindow{{Start: "10:00", End: "12:00"}},
		Active:         true,
	}
}

func rng(t *testing.T, start, end string) domain.SlotRange {
	t.Helper()
	r, err := domain.ParseSlotRange(start, end)
	require.NoError(t, err)
	return r
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(testSpace(4), testDate, testNow)

	assert.True(t, rec.OperatingDay)
	assert.Len(t, rec.Slots, 18)
	assert.Equal(t, "09:00", rec.Slots[0].Start)
	assert.Equal(t, "18:00", rec.Slots[17].End)
	assert.Equal(t, 4, rec.AvailableCapacity)
	assert.Equal(t, domain.AvailabilityAvailable, rec.OverallStatus)
	assert.Equal(t, int64(1), rec.Version)
	assert.True(t, rec.Slot(4).IsPeakTime)
	assert.False(t, rec.Slot(3).IsPeakTime)
	assert.Nil(t, rec.Slot(0), "08:00 is before opening")
}

func TestNewRecord_ClosedDay(t *testing.T) {
	sp := testSpace(4)
	sp.OperatingDays = []time.Weekday{time.Monday}

	rec := NewRecord(sp, testDate, testNow)

	assert.False(t, rec.OperatingDay)
	assert.Empty(t, rec.Slots)
	assert.Equal(t, domain.AvailabilityBlocked, rec.OverallStatus)

	err := Reserve(rec, rng(t, "10:00", "11:00"), 1, testNow)
	assert.ErrorIs(t, err, ErrClosedDay)
}

func TestReserveAndRelease(t *testing.T) {
	rec := NewRecord(testSpace(3), testDate, testNow)
	r := rng(t, "10:00", "11:30")

	require.NoError(t, Reserve(rec, r, 2, testNow))
	assert.Equal(t, 2, rec.BookedCapacity)
	assert.Equal(t, 1, rec.AvailableCapacity)
	assert.Equal(t, domain.AvailabilityPartiallyBooked, rec.Slot(r.Start).Status)
	assert.Equal(t, domain.AvailabilityAvailable, rec.OverallStatus)
	assert.NotNil(t, rec.LastBookingAt)

	require.NoError(t, Reserve(rec, rng(t, "11:00", "12:00"), 1, testNow))
	assert.Equal(t, domain.AvailabilityFullyBooked, rec.Slot(r.Start+2).Status)
	assert.Equal(t, domain.AvailabilityPartiallyBooked, rec.OverallStatus)

	Release(rec, r, 2, testNow)
	Release(rec, rng(t, "11:00", "12:00"), 1, testNow)

	for _, s := range rec.Slots {
		assert.Zero(t, s.BookedCapacity, s.Start)
	}
	assert.Equal(t, 3, rec.AvailableCapacity)
	assert.Equal(t, domain.AvailabilityAvailable, rec.OverallStatus)
	assert.NotNil(t, rec.LastCancellationAt)
}

func TestReserve_ExhaustedLeavesRecordUntouched(t *testing.T) {
	rec := NewRecord(testSpace(2), testDate, testNow)
	require.NoError(t, Reserve(rec, rng(t, "11:00", "12:00"), 2, testNow))
	before := Loads(rec)

	err := Reserve(rec, rng(t, "10:00", "12:00"), 1, testNow)

	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, KindExhausted, capErr.Kind)
	assert.Equal(t, "11:00", capErr.Slot)
	assert.Equal(t, 0, capErr.Available)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, before, Loads(rec))
}

func TestReserve_OutsideOperatingHours(t *testing.T) {
	rec := NewRecord(testSpace(2), testDate, testNow)

	err := Reserve(rec, rng(t, "17:00", "19:00"), 1, testNow)

	assert.ErrorIs(t, err, ErrClosedDay)
	assert.Zero(t, rec.BookedCapacity)
}

func TestReserve_BlockAndMaintenance(t *testing.T) {
	rec := NewRecord(testSpace(2), testDate, testNow)

	until := testNow.Add(time.Hour)
	rec.ManuallyBlocked = true
	rec.BlockReason = "private event"
	rec.BlockedUntil = &until
	RefreshStatus(rec, testNow)
	assert.Equal(t, domain.AvailabilityBlocked, rec.OverallStatus)

	err := Reserve(rec, rng(t, "10:00", "11:00"), 1, testNow)
	assert.ErrorIs(t, err, ErrBlocked)

	// the block lapses on its own
	later := until.Add(time.Minute)
	require.NoError(t, Reserve(rec, rng(t, "10:00", "11:00"), 1, later))

	rec.MaintenanceStart = "14:00"
	rec.MaintenanceEnd = "15:00"
	RefreshStatus(rec, later)
	assert.Equal(t, domain.AvailabilityMaintenance, rec.OverallStatus)

	err = Reserve(rec, rng(t, "14:30", "16:00"), 1, later)
	assert.ErrorIs(t, err, ErrBlocked)
	require.NoError(t, Reserve(rec, rng(t, "15:00", "16:00"), 1, later))
}

func TestReleaseNeverBelowZero(t *testing.T) {
	rec := NewRecord(testSpace(2), testDate, testNow)
	Release(rec, rng(t, "09:00", "10:00"), 5, testNow)

	assert.Zero(t, rec.Slot(2).BookedCapacity)
	assert.Equal(t, 2, rec.AvailableCapacity)
}

func TestSetLoads(t *testing.T) {
	rec := NewRecord(testSpace(3), testDate, testNow)
	require.NoError(t, Reserve(rec, rng(t, "09:00", "10:00"), 2, testNow))

	SetLoads(rec, map[int]int{4: 1, 5: 9}, testNow)

	assert.Zero(t, rec.Slot(2).BookedCapacity)
	assert.Equal(t, 1, rec.Slot(4).BookedCapacity)
	assert.Equal(t, 3, rec.Slot(5).BookedCapacity, "clamped to total")
	assert.Equal(t, 3, rec.BookedCapacity)
	assert.Zero(t, rec.AvailableCapacity)
}

func TestFullyBooked(t *testing.T) {
	rec := NewRecord(testSpace(1), testDate, testNow)
	require.NoError(t, Reserve(rec, rng(t, "09:00", "18:00"), 1, testNow))

	assert.Equal(t, domain.AvailabilityFullyBooked, rec.OverallStatus)
}
