package domain

import (
	"time"

	"github.com/google/uuid"
)

type SpaceType string

const (
	SpacePrivateOffice  SpaceType = "private_office"
	SpaceSharedDesk     SpaceType = "shared_desk"
	SpaceMeetingRoom    SpaceType = "meeting_room"
	SpaceWorkshop       SpaceType = "workshop_space"
	SpaceConferenceRoom SpaceType = "conference_room"
	SpaceStudio         SpaceType = "studio"
	SpaceEventHall      SpaceType = "event_hall"
	SpacePhoneBooth     SpaceType = "phone_booth"
	SpaceLoungeArea     SpaceType = "lounge_area"
)

var SpaceTypes = []SpaceType{
	SpacePrivateOffice,
	SpaceSharedDesk,
	SpaceMeetingRoom,
	SpaceWorkshop,
	SpaceConferenceRoom,
	SpaceStudio,
	SpaceEventHall,
	SpacePhoneBooth,
	SpaceLoungeArea,
}

func (t SpaceType) Valid() bool {
	for _, st := range SpaceTypes {
		if st == t {
			return true
		}
	}
	return false
}

// SlotWindow is a [Start, End) window of ladder labels, e.g. "17:00"-"20:00".
type SlotWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type AdditionalService struct {
	Code        string `json:"code"`
	NameFa      string `json:"name_fa"`
	NameEn      string `json:"name_en"`
	UnitPrice   int64  `json:"unit_price"`
	PerAttendee bool   `json:"per_attendee"`
}

// Space is a bookable resource category. Rates are whole currency units per hour.
type Space struct {
	Type           SpaceType           `json:"type"`
	NameFa         string              `json:"name_fa"`
	NameEn         string              `json:"name_en"`
	TotalCapacity  int                 `json:"total_capacity"`
	OpenSlot       string              `json:"open_slot"`
	CloseSlot      string              `json:"close_slot"`
	OperatingDays  []time.Weekday      `json:"operating_days"`
	BaseHourlyRate int64               `json:"base_hourly_rate"`
	PeakHourlyRate int64               `json:"peak_hourly_rate"`
	PeakWindows    []SlotWindow        `json:"peak_windows"`
	PricePerSeat   bool                `json:"price_per_seat"`
	Services       []AdditionalService `json:"services"`
	Active         bool                `json:"active"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (s *Space) OperatesOn(date time.Time) bool {
	wd := date.Weekday()
	for _, d := range s.OperatingDays {
		if d == wd {
			return true
		}
	}
	return false
}

// OperatingRange returns the ladder units the space is open for.
func (s *Space) OperatingRange() (SlotRange, error) {
	return ParseSlotRange(s.OpenSlot, s.CloseSlot)
}

// IsPeakUnit reports whether ladder unit i falls in one of the peak windows.
func (s *Space) IsPeakUnit(i int) bool {
	for _, w := range s.PeakWindows {
		r, err := ParseSlotRange(w.Start, w.End)
		if err != nil {
			continue
		}
		if r.Contains(i) {
			return true
		}
	}
	return false
}

func (s *Space) Service(code string) (AdditionalService, bool) {
	for _, svc := range s.Services {
		if svc.Code == code {
			return svc, true
		}
	}
	return AdditionalService{}, false
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCheckedIn BookingStatus = "checked_in"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCheckedIn, BookingCancelled, BookingNoShow},
	BookingCheckedIn: {BookingCompleted},
}

// CanTransitionTo reports whether the booking state machine allows s -> next.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled || s == BookingNoShow
}

// HoldsCapacity reports whether a booking in this status is counted by the ledger.
// Only cancellation gives capacity back; finished bookings stay on the books.
func (s BookingStatus) HoldsCapacity() bool {
	return s != BookingCancelled && s != ""
}

type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentPaid          PaymentStatus = "paid"
	PaymentRefunded      PaymentStatus = "refunded"
	PaymentFailed        PaymentStatus = "failed"
	PaymentPartialRefund PaymentStatus = "partial_refund"
)

type RecurringPattern string

const (
	RecurDaily    RecurringPattern = "daily"
	RecurWeekly   RecurringPattern = "weekly"
	RecurBiweekly RecurringPattern = "biweekly"
	RecurMonthly  RecurringPattern = "monthly"
)

func (p RecurringPattern) Valid() bool {
	switch p {
	case RecurDaily, RecurWeekly, RecurBiweekly, RecurMonthly:
		return true
	}
	return false
}

// Nth returns the k-th occurrence after start (k = 0 is start itself). It is computed
// from start so monthly series do not drift after a short month.
func (p RecurringPattern) Nth(start time.Time, k int) time.Time {
	switch p {
	case RecurDaily:
		return start.AddDate(0, 0, k)
	case RecurWeekly:
		return start.AddDate(0, 0, 7*k)
	case RecurBiweekly:
		return start.AddDate(0, 0, 14*k)
	case RecurMonthly:
		return start.AddDate(0, k, 0)
	}
	return start
}

type PriceBreakdown struct {
	HourlyRate             int64 `json:"hourly_rate"`
	BasePrice              int64 `json:"base_price"`
	AdditionalServicesCost int64 `json:"additional_services_cost"`
	DiscountAmount         int64 `json:"discount_amount"`
	TotalPrice             int64 `json:"total_price"`
	PeakUnits              int   `json:"peak_units"`
	OffPeakUnits           int   `json:"off_peak_units"`
}

type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Booking struct {
	ID                  uuid.UUID         `json:"booking_id"`
	Number              string            `json:"booking_number"`
	UserID              int64             `json:"user_id"`
	SpaceType           SpaceType         `json:"space_type"`
	Date                time.Time         `json:"date"`
	StartTime           string            `json:"start_time"`
	EndTime             string            `json:"end_time"`
	DurationHours       float64           `json:"duration_hours"`
	CapacityRequested   int               `json:"capacity_requested"`
	AttendeeCount       int               `json:"attendee_count"`
	Status              BookingStatus     `json:"status"`
	PaymentStatus       PaymentStatus     `json:"payment_status"`
	Price               PriceBreakdown    `json:"pricing"`
	Services            []string          `json:"services,omitempty"`
	Contact             ContactInfo       `json:"contact"`
	WorkshopSessionID   *string           `json:"workshop_session_id,omitempty"`
	ParentBookingID     *uuid.UUID        `json:"parent_booking_id,omitempty"`
	IsRecurring         bool              `json:"is_recurring"`
	RecurringPattern    *RecurringPattern `json:"recurring_pattern,omitempty"`
	RecurringEndDate    *time.Time        `json:"recurring_end_date,omitempty"`
	OrderID             *string           `json:"order_id,omitempty"`
	WalletTransactionID *string           `json:"wallet_transaction_id,omitempty"`
	CancellationReason  string            `json:"cancellation_reason,omitempty"`
	CancellationFee     int64             `json:"cancellation_fee"`
	RefundAmount        int64             `json:"refund_amount"`
	Notes               string            `json:"notes,omitempty"`
	CancelledAt         *time.Time        `json:"cancelled_at,omitempty"`
	CheckedInAt         *time.Time        `json:"checked_in_at,omitempty"`
	CompletedAt         *time.Time        `json:"completed_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// SlotRange returns the ladder units covered by the booking.
func (b *Booking) SlotRange() (SlotRange, error) {
	return ParseSlotRange(b.StartTime, b.EndTime)
}

// StartsAt is the wall-clock start of the booking in loc.
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	return AtSlot(b.Date, b.StartTime, loc)
}

// EndsAt is the wall-clock end of the booking in loc.
func (b *Booking) EndsAt(loc *time.Location) time.Time {
	return AtSlot(b.Date, b.EndTime, loc)
}
