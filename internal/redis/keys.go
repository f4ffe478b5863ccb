package redisx

import (
	"fmt"
	"time"
)

const ns = "spacebook:v1"

func KeySpace(spaceType string) string {
	return fmt.Sprintf("%s:space:%s", ns, spaceType)
}

func KeySpaces() string {
	return ns + ":spaces"
}

func KeyAvailability(spaceType string, date time.Time) string {
	return fmt.Sprintf("%s:availability:%s:%s", ns, spaceType, date.Format("2006-01-02"))
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemBooking(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, userID, idemKey)
}

func ChannelAvailabilityChanged() string {
	return ns + ":availability:changed"
}
