package reservation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRefundPolicy(t *testing.T) {
	p, err := ParseRefundPolicy(" 24:50, 0:25,48:100 ")
	require.NoError(t, err)
	assert.Equal(t, DefaultRefundPolicy(), p)
	assert.Equal(t, "48:100,24:50,0:25", p.String())

	for _, bad := range []string{"", "48", "x:10", "48:101", "-1:10", "48:abc"} {
		_, err := ParseRefundPolicy(bad)
		assert.ErrorIs(t, err, ErrInvalidRefundPolicy, bad)
	}
}

func TestRefundPolicyPercent(t *testing.T) {
	p := DefaultRefundPolicy()

	cases := []struct {
		hours float64
		want  int
	}{
		{72, 100},
		{48.5, 100},
		{48, 50},
		{30, 50},
		{24, 25},
		{10, 25},
		{0, 0},
		{-1, 0},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, p.Percent(tc.hours), "%.1fh", tc.hours)
	}
}

func TestRefundPolicySplit(t *testing.T) {
	p := DefaultRefundPolicy()

	refund, fee := p.Split(350_001, 30)
	assert.Equal(t, int64(175_000), refund)
	assert.Equal(t, int64(175_001), fee)

	refund, fee = p.Split(400_000, 100)
	assert.Equal(t, int64(400_000), refund)
	assert.Zero(t, fee)
}

func TestNewBookingNumber(t *testing.T) {
	now := time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		n := NewBookingNumber(now)
		require.Len(t, n, len("AS-240601-XXXXX"))
		assert.True(t, strings.HasPrefix(n, "AS-240601-"), n)
		for _, r := range n[len("AS-240601-"):] {
			assert.True(t, strings.ContainsRune(numberAlphabet, r), n)
		}
		seen[n] = true
	}

	// 32^5 possibilities; a handful of duplicates in 200 draws would point at a broken source.
	assert.Greater(t, len(seen), 195)
}
