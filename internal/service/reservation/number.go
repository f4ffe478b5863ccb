package reservation

import (
	"crypto/rand"
	"math/big"
	"time"
)

// No 0/O or 1/I so numbers survive being read over the phone.
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NewBookingNumber returns a number like "AS-240601-7KQ2M". The date part is the
// creation day, the suffix is random; uniqueness is enforced by the store.
func NewBookingNumber(now time.Time) string {
	const n = 5

	buf := make([]byte, n)
	limit := big.NewInt(int64(len(numberAlphabet)))
	for i := range buf {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			buf[i] = numberAlphabet[now.UnixNano()%int64(len(numberAlphabet))]
			continue
		}
		buf[i] = numberAlphabet[v.Int64()]
	}

	return "AS-" + now.Format("060102") + "-" + string(buf)
}
