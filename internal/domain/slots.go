package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	DateLayout   = "2006-01-02"
	SlotMinutes  = 30
	FirstSlot    = "08:00"
	LastSlot     = "20:00"
	UnitsPerHour = 60 / SlotMinutes
)

var (
	ErrUnknownSlot   = errors.New("unknown time slot")
	ErrSlotOrder     = errors.New("end time must be after start time")
	ErrInvalidWindow = errors.New("invalid slot window")
)

// ladder holds the boundary labels "08:00".."20:00"; unit i spans ladder[i]..ladder[i+1].
var ladder = buildLadder()

var ladderIndex = func() map[string]int {
	m := make(map[string]int, len(ladder))
	for i, l := range ladder {
		m[l] = i
	}
	return m
}()

func buildLadder() []string {
	first, _ := time.Parse("15:04", FirstSlot)
	last, _ := time.Parse("15:04", LastSlot)

	var out []string
	for t := first; !t.After(last); t = t.Add(SlotMinutes * time.Minute) {
		out = append(out, t.Format("15:04"))
	}
	return out
}

// Ladder returns a copy of the slot boundary labels.
func Ladder() []string {
	out := make([]string, len(ladder))
	copy(out, ladder)
	return out
}

// UnitCount is the number of capacity units in a day.
func UnitCount() int { return len(ladder) - 1 }

func SlotIndex(label string) (int, bool) {
	i, ok := ladderIndex[label]
	return i, ok
}

func SlotLabel(i int) string {
	if i < 0 || i >= len(ladder) {
		return ""
	}
	return ladder[i]
}

// SlotRange is the half-open unit interval [Start, End).
type SlotRange struct {
	Start int
	End   int
}

func ParseSlotRange(start, end string) (SlotRange, error) {
	s, ok := SlotIndex(start)
	if !ok {
		return SlotRange{}, fmt.Errorf("%w: %q", ErrUnknownSlot, start)
	}
	e, ok := SlotIndex(end)
	if !ok {
		return SlotRange{}, fmt.Errorf("%w: %q", ErrUnknownSlot, end)
	}
	if e <= s {
		return SlotRange{}, ErrSlotOrder
	}
	return SlotRange{Start: s, End: e}, nil
}

func (r SlotRange) Units() int { return r.End - r.Start }

func (r SlotRange) DurationHours() float64 {
	return float64(r.Units()) / float64(UnitsPerHour)
}

func (r SlotRange) Contains(i int) bool { return i >= r.Start && i < r.End }

func (r SlotRange) Overlaps(o SlotRange) bool {
	return r.Start < o.End && o.Start < r.End
}

// Within reports whether r lies entirely inside o.
func (r SlotRange) Within(o SlotRange) bool {
	return r.Start >= o.Start && r.End <= o.End
}

func (r SlotRange) StartLabel() string { return SlotLabel(r.Start) }
func (r SlotRange) EndLabel() string   { return SlotLabel(r.End) }

func (r SlotRange) String() string {
	return r.StartLabel() + "-" + r.EndLabel()
}

// DateOnly truncates t to a calendar date at UTC midnight, keeping the wall-clock day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// AtSlot combines a calendar date and a ladder label into a wall-clock time in loc.
func AtSlot(date time.Time, label string, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.Parse("15:04", label)
	if err != nil {
		return time.Time{}
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}
