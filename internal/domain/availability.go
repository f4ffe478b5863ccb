package domain

import "time"

type AvailabilityStatus string

const (
	AvailabilityAvailable       AvailabilityStatus = "available"
	AvailabilityPartiallyBooked AvailabilityStatus = "partially_booked"
	AvailabilityFullyBooked     AvailabilityStatus = "fully_booked"
	AvailabilityMaintenance     AvailabilityStatus = "maintenance"
	AvailabilityBlocked         AvailabilityStatus = "blocked"
)

// SlotAvailability is the capacity counter of one ladder unit.
type SlotAvailability struct {
	Index             int                `json:"index"`
	Start             string             `json:"start"`
	End               string             `json:"end"`
	TotalCapacity     int                `json:"total_capacity"`
	BookedCapacity    int                `json:"booked_capacity"`
	AvailableCapacity int                `json:"available_capacity"`
	Status            AvailabilityStatus `json:"status"`
	IsPeakTime        bool               `json:"is_peak_time"`
}

// AvailabilityRecord is the ledger row for one (space type, date). Slots only cover
// the operating units of the space; BookedCapacity is the load of the busiest unit.
type AvailabilityRecord struct {
	ID                 int64              `json:"id"`
	SpaceType          SpaceType          `json:"space_type"`
	Date               time.Time          `json:"date"`
	TotalCapacity      int                `json:"total_capacity"`
	BookedCapacity     int                `json:"booked_capacity"`
	AvailableCapacity  int                `json:"available_capacity"`
	OverallStatus      AvailabilityStatus `json:"overall_status"`
	OperatingDay       bool               `json:"operating_day"`
	Slots              []SlotAvailability `json:"slots"`
	MaintenanceStart   string             `json:"maintenance_start,omitempty"`
	MaintenanceEnd     string             `json:"maintenance_end,omitempty"`
	MaintenanceReason  string             `json:"maintenance_reason,omitempty"`
	ManuallyBlocked    bool               `json:"manually_blocked"`
	BlockReason        string             `json:"block_reason,omitempty"`
	BlockedUntil       *time.Time         `json:"blocked_until,omitempty"`
	LastBookingAt      *time.Time         `json:"last_booking_at,omitempty"`
	LastCancellationAt *time.Time         `json:"last_cancellation_at,omitempty"`
	LastCalculatedAt   time.Time          `json:"last_calculated_at"`
	CacheExpiresAt     *time.Time         `json:"cache_expires_at,omitempty"`
	Version            int64              `json:"version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Slot returns the sub-record for ladder unit i, or nil when the unit is outside
// operating hours.
func (r *AvailabilityRecord) Slot(i int) *SlotAvailability {
	for k := range r.Slots {
		if r.Slots[k].Index == i {
			return &r.Slots[k]
		}
	}
	return nil
}

// MaintenanceWindow returns the maintenance units, if a window is set.
func (r *AvailabilityRecord) MaintenanceWindow() (SlotRange, bool) {
	if r.MaintenanceStart == "" || r.MaintenanceEnd == "" {
		return SlotRange{}, false
	}
	w, err := ParseSlotRange(r.MaintenanceStart, r.MaintenanceEnd)
	if err != nil {
		return SlotRange{}, false
	}
	return w, true
}

// BlockedAt reports whether an admin block is in force at now.
func (r *AvailabilityRecord) BlockedAt(now time.Time) bool {
	if !r.ManuallyBlocked {
		return false
	}
	return r.BlockedUntil == nil || now.Before(*r.BlockedUntil)
}

// Clone returns a deep copy so callers can mutate without touching cached values.
func (r *AvailabilityRecord) Clone() *AvailabilityRecord {
	cp := *r
	cp.Slots = make([]SlotAvailability, len(r.Slots))
	copy(cp.Slots, r.Slots)
	return &cp
}
