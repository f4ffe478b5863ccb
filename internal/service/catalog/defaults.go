package catalog

import (
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
)

// Saturday to Thursday; the center is closed on Fridays.
var workWeek = []time.Weekday{
	time.Saturday, time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
}

var defaultPeaks = []domain.SlotWindow{
	{Start: "10:00", End: "13:00"},
	{Start: "16:00", End: "19:00"},
}

var (
	svcProjector  = domain.AdditionalService{Code: "projector", NameFa: "ویدئو پروژکتور", NameEn: "Projector", UnitPrice: 150_000}
	svcWhiteboard = domain.AdditionalService{Code: "whiteboard", NameFa: "وایت‌برد", NameEn: "Whiteboard", UnitPrice: 30_000}
	svcCoffee     = domain.AdditionalService{Code: "coffee", NameFa: "پذیرایی قهوه", NameEn: "Coffee service", UnitPrice: 45_000, PerAttendee: true}
	svcCatering   = domain.AdditionalService{Code: "catering", NameFa: "پذیرایی ناهار", NameEn: "Lunch catering", UnitPrice: 250_000, PerAttendee: true}
	svcRecording  = domain.AdditionalService{Code: "recording", NameFa: "ضبط ویدئو", NameEn: "Video recording", UnitPrice: 900_000}
	svcLocker     = domain.AdditionalService{Code: "locker", NameFa: "کمد شخصی", NameEn: "Locker", UnitPrice: 20_000, PerAttendee: true}
)

// DefaultSpaces is the seed catalog. Rates are in tomans per hour.
func DefaultSpaces() []domain.Space {
	return []domain.Space{
		{
			Type: domain.SpacePrivateOffice, NameFa: "دفتر خصوصی", NameEn: "Private office",
			TotalCapacity: 6, OpenSlot: "08:00", CloseSlot: "20:00", OperatingDays: workWeek,
			BaseHourlyRate: 400_000, PeakHourlyRate: 480_000, PeakWindows: defaultPeaks,
			Services: []domain.AdditionalService{svcWhiteboard, svcCoffee}, Active: true,
		},
		{
			Type: domain.SpaceSharedDesk, NameFa: "میز اشتراکی", NameEn: "Shared desk",
			TotalCapacity: 40, OpenSlot: "08:00", CloseSlot: "20:00", OperatingDays: workWeek,
			BaseHourlyRate: 40_000, PeakHourlyRate: 50_000, PeakWindows: defaultPeaks, PricePerSeat: true,
			Services: []domain.AdditionalService{svcCoffee, svcLocker}, Active: true,
		},
		{
			Type: domain.SpaceMeetingRoom, NameFa: "اتاق جلسات", NameEn: "Meeting room",
			TotalCapacity: 12, OpenSlot: "08:00", CloseSlot: "20:00", OperatingDays: workWeek,
			BaseHourlyRate: 350_000, PeakHourlyRate: 450_000, PeakWindows: defaultPeaks,
			Services: []domain.AdditionalService{svcProjector, svcWhiteboard, svcCoffee}, Active: true,
		},
		{
			Type: domain.SpaceWorkshop, NameFa: "فضای کارگاه", NameEn: "Workshop space",
			TotalCapacity: 30, OpenSlot: "09:00", CloseSlot: "19:00", OperatingDays: workWeek,
			BaseHourlyRate: 900_000, PeakHourlyRate: 1_100_000, PeakWindows: defaultPeaks,
			Services: []domain.AdditionalService{svcProjector, svcWhiteboard, svcCatering, svcCoffee}, Active: true,
		},
		{
			Type: domain.SpaceConferenceRoom, NameFa: "سالن کنفرانس", NameEn: "Conference room",
			TotalCapacity: 50, OpenSlot: "08:00", CloseSlot: "20:00", OperatingDays: workWeek,
			BaseHourlyRate: 1_500_000, PeakHourlyRate: 1_800_000, PeakWindows: defaultPeaks,
			Services: []domain.AdditionalService{svcProjector, svcRecording, svcCatering, svcCoffee}, Active: true,
		},
		{
			Type: domain.SpaceStudio, NameFa: "استودیو", NameEn: "Studio",
			TotalCapacity: 4, OpenSlot: "10:00", CloseSlot: "20:00", OperatingDays: workWeek,
			BaseHourlyRate: 700_000, PeakHourlyRate: 850_000, PeakWindows: defaultPeaks,
			Services: []domain.AdditionalService{svcRecording}, Active: true,
		},
		{
			Type: domain.SpaceEventHall, NameFa: "سالن رویداد", NameEn: "Event hall",
			TotalCapacity: 150, OpenSlot: "08:00", CloseSlot: "20:00", OperatingDays: workWeek,
			BaseHourlyRate: 2_500_000, PeakHourlyRate: 3_000_000, PeakWindows: defaultPeaks,
			Services: []domain.AdditionalService{svcProjector, svcRecording, svcCatering}, Active: true,
		},
		{
			Type: domain.SpacePhoneBooth, NameFa: "کابین تلفن", NameEn: "Phone booth",
			TotalCapacity: 4, OpenSlot: "08:00", CloseSlot: "20:00", OperatingDays: workWeek,
			BaseHourlyRate: 60_000, PricePerSeat: true, Active: true,
		},
		{
			Type: domain.SpaceLoungeArea, NameFa: "لانژ", NameEn: "Lounge area",
			TotalCapacity: 25, OpenSlot: "08:00", CloseSlot: "20:00", OperatingDays: workWeek,
			BaseHourlyRate: 30_000, PeakHourlyRate: 35_000, PeakWindows: defaultPeaks, PricePerSeat: true,
			Services: []domain.AdditionalService{svcCoffee}, Active: true,
		},
	}
}
