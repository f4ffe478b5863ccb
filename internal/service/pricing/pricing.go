package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/spacebook/internal/domain"
)

var (
	ErrUnknownService   = errors.New("unknown additional service")
	ErrUnknownPromoCode = errors.New("unknown promo code")
	ErrInvalidDiscount  = errors.New("invalid discount")
)

// Discount is an extra reduction applied by the caller, e.g. a loyalty credit.
// Percent applies to the base price; Amount is a fixed deduction.
type Discount struct {
	Code    string `json:"code"`
	Percent int    `json:"percent"`
	Amount  int64  `json:"amount"`
}

type Config struct {
	// GroupThreshold is the attendee count from which GroupPercent applies. Zero disables it.
	GroupThreshold int
	GroupPercent   int
	// PromoCodes maps an upper-cased code to its percentage.
	PromoCodes map[string]int
}

type Request struct {
	Space     *domain.Space
	Date      time.Time
	Range     domain.SlotRange
	Capacity  int
	Attendees int
	Services  []string
	PromoCode string
	Discounts []Discount
}

type Calculator struct {
	cfg Config
}

func New(cfg Config) *Calculator {
	promos := make(map[string]int, len(cfg.PromoCodes))
	for code, pct := range cfg.PromoCodes {
		promos[strings.ToUpper(strings.TrimSpace(code))] = pct
	}
	cfg.PromoCodes = promos

	return &Calculator{cfg: cfg}
}

// Compute prices one booking. It has no side effects.
//
// Returns:
//   - domain.PriceBreakdown: the breakdown with TotalPrice = BasePrice + AdditionalServicesCost - DiscountAmount.
//   - error: ErrUnknownService, ErrUnknownPromoCode or ErrInvalidDiscount.
func (c *Calculator) Compute(req Request) (domain.PriceBreakdown, error) {
	const op = "service.pricing.Compute"

	var out domain.PriceBreakdown

	sp := req.Space
	if sp == nil || req.Range.Units() <= 0 {
		return out, fmt.Errorf("%s: empty request", op)
	}

	var rateSum int64
	for i := req.Range.Start; i < req.Range.End; i++ {
		if sp.PeakHourlyRate > 0 && sp.IsPeakUnit(i) {
			rateSum += sp.PeakHourlyRate
			out.PeakUnits++
		} else {
			rateSum += sp.BaseHourlyRate
			out.OffPeakUnits++
		}
	}

	units := int64(req.Range.Units())
	out.HourlyRate = (rateSum + units/2) / units

	// Every unit is half an hour.
	base := (rateSum + 1) / 2
	if sp.PricePerSeat && req.Capacity > 1 {
		base *= int64(req.Capacity)
	}
	out.BasePrice = base

	attendees := req.Attendees
	if attendees <= 0 {
		attendees = req.Capacity
	}

	seen := make(map[string]struct{}, len(req.Services))
	for _, code := range req.Services {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}

		svc, ok := sp.Service(code)
		if !ok {
			return domain.PriceBreakdown{}, fmt.Errorf("%s: %w: %q", op, ErrUnknownService, code)
		}

		qty := int64(1)
		if svc.PerAttendee {
			qty = int64(attendees)
		}
		out.AdditionalServicesCost += svc.UnitPrice * qty
	}

	percent := 0
	if req.PromoCode != "" {
		pct, ok := c.cfg.PromoCodes[strings.ToUpper(strings.TrimSpace(req.PromoCode))]
		if !ok {
			return domain.PriceBreakdown{}, fmt.Errorf("%s: %w: %q", op, ErrUnknownPromoCode, req.PromoCode)
		}
		percent += pct
	}
	if c.cfg.GroupThreshold > 0 && attendees >= c.cfg.GroupThreshold {
		percent += c.cfg.GroupPercent
	}

	var fixed int64
	for _, d := range req.Discounts {
		if d.Percent < 0 || d.Percent > 100 || d.Amount < 0 {
			return domain.PriceBreakdown{}, fmt.Errorf("%s: %w: %+v", op, ErrInvalidDiscount, d)
		}
		percent += d.Percent
		fixed += d.Amount
	}
	if percent > 100 {
		percent = 100
	}

	discount := out.BasePrice*int64(percent)/100 + fixed
	if gross := out.BasePrice + out.AdditionalServicesCost; discount > gross {
		discount = gross
	}
	out.DiscountAmount = discount
	out.TotalPrice = out.BasePrice + out.AdditionalServicesCost - out.DiscountAmount

	return out, nil
}
