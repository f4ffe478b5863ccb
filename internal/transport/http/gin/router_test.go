package httpgin

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/docs"
	"github.com/kirinyoku/spacebook/internal/domain"
	gormrepo "github.com/kirinyoku/spacebook/internal/repository/gorm"
	rediscache "github.com/kirinyoku/spacebook/internal/repository/redis"
	"github.com/kirinyoku/spacebook/internal/service"
	"github.com/kirinyoku/spacebook/internal/service/catalog"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, auth *Authenticator) (*gin.Engine, *service.Services) {
	t.Helper()
	return buildTestRouter(t, auth, service.Infra{}, nil)
}

func buildTestRouter(
	t *testing.T,
	auth *Authenticator,
	infra service.Infra,
	idem *rediscache.IdempotencyStore,
) (*gin.Engine, *service.Services) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	store, err := gormrepo.Open(gormrepo.Config{
		DSN:    "file:router_" + uuid.NewString() + "?mode=memory&cache=shared",
		Silent: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	svcs := service.NewServices(store, infra, service.Config{
		Reservation: reservation.Config{Location: time.UTC},
	})

	for _, sp := range catalog.DefaultSpaces() {
		if sp.Type == domain.SpaceMeetingRoom {
			sp.TotalCapacity = 1
		}
		require.NoError(t, svcs.Catalog.UpsertSpace(ctx, &sp))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRouter(svcs, idem, nil, auth, logger), svcs
}

// nextSaturday is at least a week ahead so bookings on it never start in the past.
func nextSaturday() string {
	d := time.Now().UTC().AddDate(0, 0, 7)
	for d.Weekday() != time.Saturday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format(domain.DateLayout)
}

func do(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func asUser(id string) map[string]string {
	return map[string]string{"X-User-ID": id}
}

func meetingRoom(date string) gin.H {
	return gin.H{
		"space_type": "meeting_room",
		"date":       date,
		"start_time": "10:00",
		"end_time":   "11:00",
		"capacity":   1,
	}
}

func TestCreateBooking_SecondRequestGetsNoCapacity(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	date := nextSaturday()

	w := do(r, http.MethodPost, "/bookings", meetingRoom(date), asUser("1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var b domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, int64(1), b.UserID)

	w = do(r, http.MethodPost, "/bookings", meetingRoom(date), map[string]string{
		"X-User-ID":       "2",
		"Accept-Language": "en-US,en;q=0.9",
	})
	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "no_capacity", resp.Code)
	assert.Equal(t, "not enough capacity for the requested slots", resp.Error)
	assert.Equal(t, "10:00", resp.Details["slot"])
	assert.EqualValues(t, 0, resp.Details["available"])

	// Persian by default
	w = do(r, http.MethodPost, "/bookings", meetingRoom(date), asUser("3"))
	require.Equal(t, http.StatusConflict, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ظرفیت کافی برای بازه انتخابی وجود ندارد", resp.Error)
}

func TestCreateBooking_Validation(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	date := nextSaturday()

	w := do(r, http.MethodPost, "/bookings", meetingRoom(date), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	bad := meetingRoom(date)
	bad["capacity"] = 0
	w = do(r, http.MethodPost, "/bookings", bad, asUser("1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad = meetingRoom(date)
	bad["start_time"] = "10:10"
	w = do(r, http.MethodPost, "/bookings", bad, asUser("1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_slot_range")

	bad = meetingRoom("2020-01-04")
	w = do(r, http.MethodPost, "/bookings", bad, asUser("1"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	bad = meetingRoom(date)
	bad["space_type"] = "rooftop"
	w = do(r, http.MethodPost, "/bookings", bad, asUser("1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingAccess(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodPost, "/bookings", meetingRoom(nextSaturday()), asUser("1"))
	require.Equal(t, http.StatusCreated, w.Code)
	var b domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))

	w = do(r, http.MethodGet, "/bookings/"+b.ID.String(), nil, asUser("2"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/bookings/number/"+b.Number, nil, asUser("1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/bookings/"+b.ID.String()+"/cancel", nil, asUser("2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPost, "/bookings/"+b.ID.String()+"/confirm-payment", nil, asUser("1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	backend := map[string]string{"X-User-ID": "900", "X-User-Role": RoleService}
	w = do(r, http.MethodPost, "/bookings/"+b.ID.String()+"/confirm-payment", gin.H{"order_id": "ord-1"}, backend)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, domain.BookingConfirmed, b.Status)

	admin := map[string]string{"X-User-ID": "1000", "X-User-Role": RoleAdmin}
	w = do(r, http.MethodPost, "/bookings/"+b.ID.String()+"/cancel", gin.H{"reason": "venue closed"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, domain.PaymentRefunded, b.PaymentStatus)

	w = do(r, http.MethodPost, "/bookings/"+b.ID.String()+"/cancel", nil, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodGet, "/bookings/not-a-uuid", nil, asUser("1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	date := nextSaturday()

	w := do(r, http.MethodPost, "/admin/availability/meeting_room/"+date+"/block", gin.H{"reason": "renovation"}, asUser("1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := map[string]string{"X-User-ID": "1000", "X-User-Role": RoleAdmin}
	w = do(r, http.MethodPost, "/admin/availability/meeting_room/"+date+"/block", gin.H{"reason": "renovation"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/bookings", meetingRoom(date), asUser("1"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "space_blocked")

	w = do(r, http.MethodPost, "/admin/availability/meeting_room/"+date+"/unblock", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/bookings", meetingRoom(date), asUser("1"))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(r, http.MethodPost, "/admin/reconcile", gin.H{"from": date, "to": date}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), `"slot"`)
}

func TestSpacesAndAvailability(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodGet, "/spaces/shared_desk", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = do(r, http.MethodGet, "/spaces/shared_desk", nil, map[string]string{"If-None-Match": tag})
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = do(r, http.MethodGet, "/spaces/rooftop", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/spaces/shared_desk/availability?date="+nextSaturday(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var rec domain.AvailabilityRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, domain.SpaceSharedDesk, rec.SpaceType)
	assert.NotEmpty(t, rec.Slots)

	w = do(r, http.MethodGet, "/spaces/shared_desk/availability?date=tomorrow", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuoteEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	body := meetingRoom(nextSaturday())
	delete(body, "space_type")

	w := do(r, http.MethodPost, "/spaces/meeting_room/quote", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var q QuoteResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &q))
	assert.True(t, q.Available)
	assert.Positive(t, q.Price.TotalPrice)
}

func TestManualDiscounts(t *testing.T) {
	r, svcs := newTestRouter(t, nil)
	date := nextSaturday()

	free := meetingRoom(date)
	free["discounts"] = []gin.H{{"code": "self", "percent": 100}}

	w := do(r, http.MethodPost, "/bookings", free, asUser("1"))
	require.Equal(t, http.StatusForbidden, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "discount_not_allowed")

	recurring := meetingRoom(date)
	recurring["discounts"] = []gin.H{{"code": "self", "amount": 900000}}
	recurring["pattern"] = "weekly"
	recurring["end_date"] = date
	w = do(r, http.MethodPost, "/bookings/recurring", recurring, asUser("1"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	quote := meetingRoom(date)
	delete(quote, "space_type")
	quote["discounts"] = []gin.H{{"code": "self", "percent": 100}}
	w = do(r, http.MethodPost, "/spaces/meeting_room/quote", quote, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// nothing was reserved by the refused requests
	bookings, err := svcs.Reservation.ListUserBookings(context.Background(), 1, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	// staff may grant one
	w = do(r, http.MethodPost, "/bookings", free, map[string]string{"X-User-ID": "1000", "X-User-Role": RoleAdmin})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var b domain.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	assert.Positive(t, b.Price.DiscountAmount)
	assert.Equal(t, b.Price.BasePrice+b.Price.AdditionalServicesCost-b.Price.DiscountAmount, b.Price.TotalPrice)
}

func TestJWTAuthentication(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	r, _ := newTestRouter(t, auth)

	token, err := auth.Issue(7, "", time.Hour)
	require.NoError(t, err)

	claims, err := auth.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)

	w := do(r, http.MethodGet, "/me/bookings", nil, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, w.Code)

	// headers are ignored once tokens are required
	w = do(r, http.MethodGet, "/me/bookings", nil, asUser("7"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/me/bookings", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	expired, err := auth.Issue(7, "", -time.Minute)
	require.NoError(t, err)
	_, err = auth.Parse(expired)
	assert.ErrorIs(t, err, errInvalidToken)

	other, err := NewAuthenticator("another-secret").Issue(7, RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = auth.Parse(other)
	assert.ErrorIs(t, err, errInvalidToken)
}

func TestRoutesAreDocumented(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc))

	param := regexp.MustCompile(`:(\w+)`)
	for _, rt := range r.Routes() {
		if strings.HasPrefix(rt.Path, "/swagger/") {
			continue
		}
		path := param.ReplaceAllString(rt.Path, "{$1}")
		ops, ok := doc.Paths[path]
		if assert.True(t, ok, "undocumented path %s", path) {
			assert.Contains(t, ops, strings.ToLower(rt.Method), path)
		}
	}
}

func TestEtagMatches(t *testing.T) {
	assert.True(t, etagMatches(`W/"abc"`, `W/"abc"`))
	assert.True(t, etagMatches(`"x", "abc"`, `W/"abc"`))
	assert.True(t, etagMatches("*", `"abc"`))
	assert.False(t, etagMatches("", `"abc"`))
	assert.False(t, etagMatches(`"abd"`, `"abc"`))
}

func TestRequestID(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodGet, "/healthz", nil, map[string]string{"X-Request-ID": "gw-123"})
	assert.Equal(t, "gw-123", w.Header().Get("X-Request-ID"))

	w = do(r, http.MethodGet, "/healthz", nil, map[string]string{"X-Request-ID": strings.Repeat("a", 65)})
	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	w = do(r, http.MethodGet, "/healthz", nil, nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
