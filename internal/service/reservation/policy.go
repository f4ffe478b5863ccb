package reservation

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RefundTier grants Percent of the paid total when the booking is cancelled
// more than MinHoursBefore hours ahead of its start.
type RefundTier struct {
	MinHoursBefore float64
	Percent        int
}

// RefundPolicy is a list of tiers ordered by MinHoursBefore, largest first.
type RefundPolicy []RefundTier

var ErrInvalidRefundPolicy = errors.New("invalid refund policy")

// DefaultRefundPolicy: full refund beyond 48h, half beyond 24h, a quarter otherwise.
func DefaultRefundPolicy() RefundPolicy {
	return RefundPolicy{
		{MinHoursBefore: 48, Percent: 100},
		{MinHoursBefore: 24, Percent: 50},
		{MinHoursBefore: 0, Percent: 25},
	}
}

// ParseRefundPolicy reads "hours:percent" pairs separated by commas, e.g. "48:100,24:50,0:25".
func ParseRefundPolicy(s string) (RefundPolicy, error) {
	var p RefundPolicy

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		h, pct, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRefundPolicy, part)
		}

		hours, err := strconv.ParseFloat(strings.TrimSpace(h), 64)
		if err != nil || hours < 0 {
			return nil, fmt.Errorf("%w: hours %q", ErrInvalidRefundPolicy, h)
		}

		percent, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil || percent < 0 || percent > 100 {
			return nil, fmt.Errorf("%w: percent %q", ErrInvalidRefundPolicy, pct)
		}

		p = append(p, RefundTier{MinHoursBefore: hours, Percent: percent})
	}

	if len(p) == 0 {
		return nil, fmt.Errorf("%w: no tiers", ErrInvalidRefundPolicy)
	}

	sort.SliceStable(p, func(i, j int) bool { return p[i].MinHoursBefore > p[j].MinHoursBefore })

	return p, nil
}

// Percent is the refund percentage for a cancellation hoursBefore hours ahead of the start.
func (p RefundPolicy) Percent(hoursBefore float64) int {
	for _, t := range p {
		if hoursBefore > t.MinHoursBefore {
			return t.Percent
		}
	}
	return 0
}

// Split divides a paid total into refund and cancellation fee.
func (p RefundPolicy) Split(total int64, hoursBefore float64) (refund, fee int64) {
	refund = total * int64(p.Percent(hoursBefore)) / 100
	return refund, total - refund
}

func (p RefundPolicy) String() string {
	parts := make([]string, 0, len(p))
	for _, t := range p {
		parts = append(parts, strconv.FormatFloat(t.MinHoursBefore, 'f', -1, 64)+":"+strconv.Itoa(t.Percent))
	}
	return strings.Join(parts, ",")
}
