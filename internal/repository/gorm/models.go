package gormrepo

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
)

// JSON-valued columns are kept as text so the same models work on sqlite and postgres.

type spaceModel struct {
	Type           string `gorm:"primaryKey"`
	NameFa         string
	NameEn         string
	TotalCapacity  int
	OpenSlot       string
	CloseSlot      string
	OperatingDays  string `gorm:"type:text"`
	BaseHourlyRate int64
	PeakHourlyRate int64
	PeakWindows    string `gorm:"type:text"`
	PricePerSeat   bool
	Services       string `gorm:"type:text"`
	Active         bool
	UpdatedAt      time.Time
}

func (spaceModel) TableName() string { return "spaces" }

type ledgerModel struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	SpaceType          string `gorm:"uniqueIndex:availability_date_space_uq,priority:2;not null"`
	Date               string `gorm:"uniqueIndex:availability_date_space_uq,priority:1;not null"`
	TotalCapacity      int
	BookedCapacity     int
	AvailableCapacity  int
	OverallStatus      string
	OperatingDay       bool
	Slots              string `gorm:"type:text"`
	MaintenanceStart   string
	MaintenanceEnd     string
	MaintenanceReason  string
	ManuallyBlocked    bool
	BlockReason        string
	BlockedUntil       *time.Time
	LastBookingAt      *time.Time
	LastCancellationAt *time.Time
	LastCalculatedAt   time.Time
	CacheExpiresAt     *time.Time
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ledgerModel) TableName() string { return "availability_records" }

type bookingModel struct {
	ID                     string `gorm:"primaryKey"`
	BookingNumber          string `gorm:"uniqueIndex;not null"`
	UserID                 int64  `gorm:"index"`
	SpaceType              string `gorm:"index:bookings_space_date_idx,priority:1"`
	Date                   string `gorm:"index:bookings_space_date_idx,priority:2"`
	StartTime              string
	EndTime                string
	DurationHours          float64
	CapacityRequested      int
	AttendeeCount          int
	Status                 string `gorm:"index"`
	PaymentStatus          string
	HourlyRate             int64
	BasePrice              int64
	AdditionalServicesCost int64
	DiscountAmount         int64
	TotalPrice             int64
	PeakUnits              int
	OffPeakUnits           int
	Services               string `gorm:"type:text"`
	ContactName            string
	ContactEmail           string
	ContactPhone           string
	WorkshopSessionID      *string
	ParentBookingID        *string
	IsRecurring            bool
	RecurringPattern       *string
	RecurringEndDate       *string
	OrderID                *string
	WalletTransactionID    *string
	CancellationReason     string
	CancellationFee        int64
	RefundAmount           int64
	Notes                  string
	CancelledAt            *time.Time
	CheckedInAt            *time.Time
	CompletedAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (bookingModel) TableName() string { return "bookings" }

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func fromJSON(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func spaceToModel(s *domain.Space) spaceModel {
	return spaceModel{
		Type:           string(s.Type),
		NameFa:         s.NameFa,
		NameEn:         s.NameEn,
		TotalCapacity:  s.TotalCapacity,
		OpenSlot:       s.OpenSlot,
		CloseSlot:      s.CloseSlot,
		OperatingDays:  toJSON(s.OperatingDays),
		BaseHourlyRate: s.BaseHourlyRate,
		PeakHourlyRate: s.PeakHourlyRate,
		PeakWindows:    toJSON(s.PeakWindows),
		PricePerSeat:   s.PricePerSeat,
		Services:       toJSON(s.Services),
		Active:         s.Active,
		UpdatedAt:      s.UpdatedAt,
	}
}

func (m *spaceModel) toDomain() (*domain.Space, error) {
	s := &domain.Space{
		Type:           domain.SpaceType(m.Type),
		NameFa:         m.NameFa,
		NameEn:         m.NameEn,
		TotalCapacity:  m.TotalCapacity,
		OpenSlot:       m.OpenSlot,
		CloseSlot:      m.CloseSlot,
		BaseHourlyRate: m.BaseHourlyRate,
		PeakHourlyRate: m.PeakHourlyRate,
		PricePerSeat:   m.PricePerSeat,
		Active:         m.Active,
		UpdatedAt:      m.UpdatedAt,
	}
	if err := fromJSON(m.OperatingDays, &s.OperatingDays); err != nil {
		return nil, err
	}
	if err := fromJSON(m.PeakWindows, &s.PeakWindows); err != nil {
		return nil, err
	}
	if err := fromJSON(m.Services, &s.Services); err != nil {
		return nil, err
	}
	return s, nil
}

func ledgerToModel(r *domain.AvailabilityRecord) ledgerModel {
	return ledgerModel{
		ID:                 r.ID,
		SpaceType:          string(r.SpaceType),
		Date:               r.Date.Format(domain.DateLayout),
		TotalCapacity:      r.TotalCapacity,
		BookedCapacity:     r.BookedCapacity,
		AvailableCapacity:  r.AvailableCapacity,
		OverallStatus:      string(r.OverallStatus),
		OperatingDay:       r.OperatingDay,
		Slots:              toJSON(r.Slots),
		MaintenanceStart:   r.MaintenanceStart,
		MaintenanceEnd:     r.MaintenanceEnd,
		MaintenanceReason:  r.MaintenanceReason,
		ManuallyBlocked:    r.ManuallyBlocked,
		BlockReason:        r.BlockReason,
		BlockedUntil:       r.BlockedUntil,
		LastBookingAt:      r.LastBookingAt,
		LastCancellationAt: r.LastCancellationAt,
		LastCalculatedAt:   r.LastCalculatedAt,
		CacheExpiresAt:     r.CacheExpiresAt,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (m *ledgerModel) toDomain() (*domain.AvailabilityRecord, error) {
	date, err := domain.ParseDate(m.Date)
	if err != nil {
		return nil, err
	}
	r := &domain.AvailabilityRecord{
		ID:                 m.ID,
		SpaceType:          domain.SpaceType(m.SpaceType),
		Date:               date,
		TotalCapacity:      m.TotalCapacity,
		BookedCapacity:     m.BookedCapacity,
		AvailableCapacity:  m.AvailableCapacity,
		OverallStatus:      domain.AvailabilityStatus(m.OverallStatus),
		OperatingDay:       m.OperatingDay,
		MaintenanceStart:   m.MaintenanceStart,
		MaintenanceEnd:     m.MaintenanceEnd,
		MaintenanceReason:  m.MaintenanceReason,
		ManuallyBlocked:    m.ManuallyBlocked,
		BlockReason:        m.BlockReason,
		BlockedUntil:       m.BlockedUntil,
		LastBookingAt:      m.LastBookingAt,
		LastCancellationAt: m.LastCancellationAt,
		LastCalculatedAt:   m.LastCalculatedAt,
		CacheExpiresAt:     m.CacheExpiresAt,
		Version:            m.Version,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if err := fromJSON(m.Slots, &r.Slots); err != nil {
		return nil, err
	}
	return r, nil
}

func bookingToModel(b *domain.Booking) bookingModel {
	m := bookingModel{
		ID:                     b.ID.String(),
		BookingNumber:          b.Number,
		UserID:                 b.UserID,
		SpaceType:              string(b.SpaceType),
		Date:                   b.Date.Format(domain.DateLayout),
		StartTime:              b.StartTime,
		EndTime:                b.EndTime,
		DurationHours:          b.DurationHours,
		CapacityRequested:      b.CapacityRequested,
		AttendeeCount:          b.AttendeeCount,
		Status:                 string(b.Status),
		PaymentStatus:          string(b.PaymentStatus),
		HourlyRate:             b.Price.HourlyRate,
		BasePrice:              b.Price.BasePrice,
		AdditionalServicesCost: b.Price.AdditionalServicesCost,
		DiscountAmount:         b.Price.DiscountAmount,
		TotalPrice:             b.Price.TotalPrice,
		PeakUnits:              b.Price.PeakUnits,
		OffPeakUnits:           b.Price.OffPeakUnits,
		Services:               toJSON(b.Services),
		ContactName:            b.Contact.Name,
		ContactEmail:           b.Contact.Email,
		ContactPhone:           b.Contact.Phone,
		WorkshopSessionID:      b.WorkshopSessionID,
		IsRecurring:            b.IsRecurring,
		OrderID:                b.OrderID,
		WalletTransactionID:    b.WalletTransactionID,
		CancellationReason:     b.CancellationReason,
		CancellationFee:        b.CancellationFee,
		RefundAmount:           b.RefundAmount,
		Notes:                  b.Notes,
		CancelledAt:            b.CancelledAt,
		CheckedInAt:            b.CheckedInAt,
		CompletedAt:            b.CompletedAt,
		CreatedAt:              b.CreatedAt,
		UpdatedAt:              b.UpdatedAt,
	}
	if b.ParentBookingID != nil {
		s := b.ParentBookingID.String()
		m.ParentBookingID = &s
	}
	if b.RecurringPattern != nil {
		s := string(*b.RecurringPattern)
		m.RecurringPattern = &s
	}
	if b.RecurringEndDate != nil {
		s := b.RecurringEndDate.Format(domain.DateLayout)
		m.RecurringEndDate = &s
	}
	return m
}

func (m *bookingModel) toDomain() (*domain.Booking, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, err
	}
	date, err := domain.ParseDate(m.Date)
	if err != nil {
		return nil, err
	}

	b := &domain.Booking{
		ID:                id,
		Number:            m.BookingNumber,
		UserID:            m.UserID,
		SpaceType:         domain.SpaceType(m.SpaceType),
		Date:              date,
		StartTime:         m.StartTime,
		EndTime:           m.EndTime,
		DurationHours:     m.DurationHours,
		CapacityRequested: m.CapacityRequested,
		AttendeeCount:     m.AttendeeCount,
		Status:            domain.BookingStatus(m.Status),
		PaymentStatus:     domain.PaymentStatus(m.PaymentStatus),
		Price: domain.PriceBreakdown{
			HourlyRate:             m.HourlyRate,
			BasePrice:              m.BasePrice,
			AdditionalServicesCost: m.AdditionalServicesCost,
			DiscountAmount:         m.DiscountAmount,
			TotalPrice:             m.TotalPrice,
			PeakUnits:              m.PeakUnits,
			OffPeakUnits:           m.OffPeakUnits,
		},
		Contact: domain.ContactInfo{
			Name:  m.ContactName,
			Email: m.ContactEmail,
			Phone: m.ContactPhone,
		},
		WorkshopSessionID:   m.WorkshopSessionID,
		IsRecurring:         m.IsRecurring,
		OrderID:             m.OrderID,
		WalletTransactionID: m.WalletTransactionID,
		CancellationReason:  m.CancellationReason,
		CancellationFee:     m.CancellationFee,
		RefundAmount:        m.RefundAmount,
		Notes:               m.Notes,
		CancelledAt:         m.CancelledAt,
		CheckedInAt:         m.CheckedInAt,
		CompletedAt:         m.CompletedAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}

	if err := fromJSON(m.Services, &b.Services); err != nil {
		return nil, err
	}
	if m.ParentBookingID != nil {
		pid, err := uuid.Parse(*m.ParentBookingID)
		if err != nil {
			return nil, err
		}
		b.ParentBookingID = &pid
	}
	if m.RecurringPattern != nil {
		p := domain.RecurringPattern(*m.RecurringPattern)
		b.RecurringPattern = &p
	}
	if m.RecurringEndDate != nil {
		d, err := domain.ParseDate(*m.RecurringEndDate)
		if err != nil {
			return nil, err
		}
		b.RecurringEndDate = &d
	}

	return b, nil
}
