package ledger

import (
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
)

// NewRecord synthesizes the ledger row of a space for a date with every operating unit free.
func NewRecord(sp *domain.Space, date, now time.Time) *domain.AvailabilityRecord {
	rec := &domain.AvailabilityRecord{
		SpaceType:     sp.Type,
		Date:          domain.DateOnly(date),
		TotalCapacity: sp.TotalCapacity,
		OperatingDay:  sp.Active && sp.OperatesOn(date),
		Version:       1,
	}

	if rec.OperatingDay {
		if open, err := sp.OperatingRange(); err == nil {
			for i := open.Start; i < open.End; i++ {
				rec.Slots = append(rec.Slots, domain.SlotAvailability{
					Index:         i,
					Start:         domain.SlotLabel(i),
					End:           domain.SlotLabel(i + 1),
					TotalCapacity: sp.TotalCapacity,
					IsPeakTime:    sp.IsPeakUnit(i),
				})
			}
		}
	}

	Recalculate(rec, now)

	return rec
}

// Reserve takes capacity on every unit of rng. rec is left untouched on error.
func Reserve(rec *domain.AvailabilityRecord, rng domain.SlotRange, capacity int, now time.Time) error {
	if err := check(rec, rng, capacity, now); err != nil {
		return err
	}

	for i := rng.Start; i < rng.End; i++ {
		rec.Slot(i).BookedCapacity += capacity
	}

	ts := now.UTC()
	rec.LastBookingAt = &ts
	Recalculate(rec, now)

	return nil
}

// Check reports whether Reserve would succeed without changing rec.
func Check(rec *domain.AvailabilityRecord, rng domain.SlotRange, capacity int, now time.Time) error {
	return check(rec, rng, capacity, now)
}

func check(rec *domain.AvailabilityRecord, rng domain.SlotRange, capacity int, now time.Time) error {
	if !rec.OperatingDay {
		return &CapacityError{Kind: KindClosedDay, SpaceType: rec.SpaceType, Date: rec.Date}
	}

	if rec.BlockedAt(now) {
		return &CapacityError{Kind: KindBlocked, SpaceType: rec.SpaceType, Date: rec.Date, Reason: rec.BlockReason}
	}

	if w, ok := rec.MaintenanceWindow(); ok && w.Overlaps(rng) {
		return &CapacityError{
			Kind:      KindBlocked,
			SpaceType: rec.SpaceType,
			Date:      rec.Date,
			Slot:      w.String(),
			Reason:    rec.MaintenanceReason,
		}
	}

	for i := rng.Start; i < rng.End; i++ {
		slot := rec.Slot(i)
		if slot == nil {
			return &CapacityError{
				Kind:      KindClosedDay,
				SpaceType: rec.SpaceType,
				Date:      rec.Date,
				Slot:      domain.SlotLabel(i),
				Reason:    "outside operating hours",
			}
		}

		if free := slot.TotalCapacity - slot.BookedCapacity; capacity > free {
			return &CapacityError{
				Kind:      KindExhausted,
				SpaceType: rec.SpaceType,
				Date:      rec.Date,
				Slot:      slot.Start,
				Requested: capacity,
				Available: max(free, 0),
			}
		}
	}

	return nil
}

// Release returns capacity to every unit of rng, never going below zero.
func Release(rec *domain.AvailabilityRecord, rng domain.SlotRange, capacity int, now time.Time) {
	for i := rng.Start; i < rng.End; i++ {
		slot := rec.Slot(i)
		if slot == nil {
			continue
		}
		slot.BookedCapacity = max(slot.BookedCapacity-capacity, 0)
	}

	ts := now.UTC()
	rec.LastCancellationAt = &ts
	Recalculate(rec, now)
}

// Loads returns the booked capacity of every operating unit.
func Loads(rec *domain.AvailabilityRecord) map[int]int {
	out := make(map[int]int, len(rec.Slots))
	for _, s := range rec.Slots {
		out[s.Index] = s.BookedCapacity
	}
	return out
}

// SetLoads overwrites unit loads, clamped to [0, total]. Units missing from loads become free.
func SetLoads(rec *domain.AvailabilityRecord, loads map[int]int, now time.Time) {
	for k := range rec.Slots {
		s := &rec.Slots[k]
		s.BookedCapacity = min(max(loads[s.Index], 0), s.TotalCapacity)
	}
	Recalculate(rec, now)
}

// Recalculate derives the daily counters and every status from the unit loads.
func Recalculate(rec *domain.AvailabilityRecord, now time.Time) {
	booked := 0
	for k := range rec.Slots {
		if b := rec.Slots[k].BookedCapacity; b > booked {
			booked = b
		}
	}

	rec.BookedCapacity = min(booked, rec.TotalCapacity)
	rec.AvailableCapacity = rec.TotalCapacity - rec.BookedCapacity
	rec.LastCalculatedAt = now.UTC()

	RefreshStatus(rec, now)
}

// RefreshStatus recomputes unit and overall statuses for now without touching counters.
// An admin block that has lapsed stops counting here.
func RefreshStatus(rec *domain.AvailabilityRecord, now time.Time) {
	blocked := rec.BlockedAt(now)
	window, inMaintenance := rec.MaintenanceWindow()

	full := 0
	for k := range rec.Slots {
		s := &rec.Slots[k]
		s.AvailableCapacity = max(s.TotalCapacity-s.BookedCapacity, 0)

		switch {
		case blocked:
			s.Status = domain.AvailabilityBlocked
		case inMaintenance && window.Contains(s.Index):
			s.Status = domain.AvailabilityMaintenance
		case s.AvailableCapacity == 0:
			s.Status = domain.AvailabilityFullyBooked
		case s.BookedCapacity > 0:
			s.Status = domain.AvailabilityPartiallyBooked
		default:
			s.Status = domain.AvailabilityAvailable
		}

		if s.AvailableCapacity == 0 {
			full++
		}
	}

	switch {
	case blocked || !rec.OperatingDay:
		rec.OverallStatus = domain.AvailabilityBlocked
	case inMaintenance:
		rec.OverallStatus = domain.AvailabilityMaintenance
	case len(rec.Slots) > 0 && full == len(rec.Slots):
		rec.OverallStatus = domain.AvailabilityFullyBooked
	case full > 0:
		rec.OverallStatus = domain.AvailabilityPartiallyBooked
	default:
		rec.OverallStatus = domain.AvailabilityAvailable
	}
}
