package httpgin

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kirinyoku/spacebook/internal/domain"
	redisx "github.com/kirinyoku/spacebook/internal/redis"
	rediscache "github.com/kirinyoku/spacebook/internal/repository/redis"
	"github.com/kirinyoku/spacebook/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisRouter(t *testing.T, limit int) (*miniredis.Miniredis, http.Handler) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r, _ := buildTestRouter(t, nil, service.Infra{
		Cache:   rediscache.New(rdb),
		Limiter: rediscache.NewSlidingWindowLimiter(rdb, "bookings", limit, time.Minute),
	}, rediscache.NewIdempotencyStore(rdb, time.Hour))

	return mr, r
}

func TestCreateBooking_IdempotencyKeyReplays(t *testing.T) {
	mr, r := newRedisRouter(t, 10)
	date := nextSaturday()

	headers := map[string]string{"X-User-ID": "1", "Idempotency-Key": "k-1"}

	w := do(r, http.MethodPost, "/bookings", meetingRoom(date), headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "k-1", w.Header().Get("Idempotency-Key"))

	var first domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	// meeting_room holds one seat, so only a replay can answer 201 here
	w = do(r, http.MethodPost, "/bookings", meetingRoom(date), headers)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var again domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, first.Number, again.Number)

	assert.True(t, mr.Exists(redisx.KeyIdemBooking(1, "k-1")))

	// the same key of another user is a different request
	w = do(r, http.MethodPost, "/bookings", meetingRoom(date), map[string]string{"X-User-ID": "2", "Idempotency-Key": "k-1"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, mr.Exists(redisx.KeyIdemBooking(2, "k-1")), "a failed request releases its key")
}

func TestCreateBooking_InFlightIdempotencyKey(t *testing.T) {
	mr, r := newRedisRouter(t, 10)

	require.NoError(t, mr.Set(redisx.KeyIdemBooking(1, "busy"), "LOCK"))

	w := do(r, http.MethodPost, "/bookings", meetingRoom(nextSaturday()), map[string]string{"X-User-ID": "1", "Idempotency-Key": "busy"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "idempotency_in_progress")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestCreateBooking_RateLimited(t *testing.T) {
	_, r := newRedisRouter(t, 2)
	date := nextSaturday()

	for _, slot := range [][2]string{{"09:00", "10:00"}, {"13:00", "14:00"}} {
		body := meetingRoom(date)
		body["start_time"] = slot[0]
		body["end_time"] = slot[1]
		w := do(r, http.MethodPost, "/bookings", body, asUser("1"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := do(r, http.MethodPost, "/bookings", meetingRoom(date), asUser("1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w = do(r, http.MethodPost, "/bookings", meetingRoom(date), asUser("2"))
	assert.Equal(t, http.StatusCreated, w.Code, "limits are per caller")
}

func TestAvailabilityIsCached(t *testing.T) {
	mr, r := newRedisRouter(t, 10)
	date := nextSaturday()

	w := do(r, http.MethodGet, "/spaces/meeting_room/availability?date="+date, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	d, err := domain.ParseDate(date)
	require.NoError(t, err)
	key := redisx.KeyAvailability(string(domain.SpaceMeetingRoom), d)
	assert.True(t, mr.Exists(key))

	// a booking commits, the cached view is dropped and the next read sees the load
	w = do(r, http.MethodPost, "/bookings", meetingRoom(date), asUser("1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.False(t, mr.Exists(key))

	w = do(r, http.MethodGet, "/spaces/meeting_room/availability?date="+date, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rec domain.AvailabilityRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	i, ok := domain.SlotIndex("10:00")
	require.True(t, ok)
	require.NotNil(t, rec.Slot(i))
	assert.Equal(t, 1, rec.Slot(i).BookedCapacity)
}
