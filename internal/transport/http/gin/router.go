package httpgin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kirinyoku/spacebook/internal/domain"
	redisx "github.com/kirinyoku/spacebook/internal/redis"
	rediscache "github.com/kirinyoku/spacebook/internal/repository/redis"
	"github.com/kirinyoku/spacebook/internal/service"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const idemLockTTL = 60 * time.Second

// NewRouter builds the HTTP API. idem and hub are optional (nil when redis is not configured).
func NewRouter(
	svcs *service.Services,
	idem *rediscache.IdempotencyStore,
	hub *Hub,
	auth *Authenticator,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	if auth == nil {
		auth = NewAuthenticator("")
	}

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS(), auth.Middleware())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/spaces", handleListSpaces(svcs))
	r.GET("/spaces/:type", handleGetSpace(svcs))
	r.GET("/spaces/:type/availability", handleGetAvailability(svcs))
	r.POST("/spaces/:type/quote", handleQuote(svcs))

	if hub != nil {
		r.GET("/ws/availability", hub.handleWS)
	}

	user := r.Group("", RequireUser())
	{
		user.POST("/bookings", handleCreateBooking(svcs, idem))
		user.POST("/bookings/recurring", handleCreateRecurring(svcs))
		user.GET("/bookings/:id", handleGetBooking(svcs))
		user.GET("/bookings/number/:number", handleGetBookingByNumber(svcs))
		user.GET("/me/bookings", handleListMyBookings(svcs))
		user.POST("/bookings/:id/cancel", handleCancelBooking(svcs))
		user.POST("/bookings/:id/check-in", handleCheckIn(svcs))
	}

	backend := r.Group("", RequireRole(RoleAdmin, RoleService))
	{
		backend.POST("/bookings/:id/confirm-payment", handleConfirmPayment(svcs))
		backend.POST("/bookings/:id/payment-failed", handlePaymentFailed(svcs))
		backend.POST("/bookings/:id/complete", handleComplete(svcs))
		backend.POST("/bookings/:id/no-show", handleNoShow(svcs))
	}

	// Admin-API
	admin := r.Group("/admin", RequireRole(RoleAdmin))
	{
		admin.PUT("/spaces/:type", handleUpsertSpace(svcs))
		admin.GET("/availability", handleListRecords(svcs))
		admin.POST("/availability/:type/:date/block", handleBlock(svcs))
		admin.POST("/availability/:type/:date/unblock", handleUnblock(svcs))
		admin.POST("/availability/:type/:date/maintenance", handleSetMaintenance(svcs))
		admin.DELETE("/availability/:type/:date/maintenance", handleClearMaintenance(svcs))
		admin.POST("/reconcile", handleReconcile(svcs))
		admin.POST("/bookings/expire", handleExpirePending(svcs))
	}

	return r
}

// --- Catalog & availability ---

// @Summary  List spaces
// @Success  200  {array}  domain.Space
// @Router   /spaces [get]
func handleListSpaces(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		spaces, err := svcs.Catalog.ListSpaces(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, spaces, "public, max-age=60", true)
	}
}

// @Summary  Get space
// @Param    type  path  string  true  "Space type"
// @Success  200  {object}  domain.Space
// @Failure  404  {object}  ErrorResponse
// @Router   /spaces/{type} [get]
func handleGetSpace(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		sp, err := svcs.Catalog.GetSpace(c.Request.Context(), domain.SpaceType(c.Param("type")))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, sp, "public, max-age=60", true)
	}
}

// @Summary  Availability of a space on a date
// @Param    type  path   string  true  "Space type"
// @Param    date  query  string  true  "YYYY-MM-DD"
// @Success  200  {object}  domain.AvailabilityRecord
// @Failure  400  {object}  ErrorResponse
// @Router   /spaces/{type}/availability [get]
func handleGetAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateValue(c, c.Query("date"))
		if !ok {
			return
		}
		rec, err := svcs.Ledger.View(c.Request.Context(), domain.SpaceType(c.Param("type")), date)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, rec, "public, max-age=15", true)
	}
}

// @Summary  Price a booking and check availability without reserving
// @Param    type  path  string          true  "Space type"
// @Param    req   body  BookingRequest  true  "payload"
// @Success  200  {object}  QuoteResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /spaces/{type}/quote [post]
func handleQuote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if !discountsAllowed(c, req) {
			return
		}
		uid, _ := userID(c)
		creq, err := req.toCreate(uid, c.Param("type"), "")
		if err != nil {
			badRequest(c, "invalid date")
			return
		}
		q, err := svcs.Reservation.Quote(c.Request.Context(), creq)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toQuoteResponse(q))
	}
}

// --- Bookings ---

// @Summary  Create booking (idempotent)
// @Param    req  body  CreateBookingRequest  true  "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201  {object}  domain.Booking
// @Failure  400  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse "no capacity / blocked / idem in progress"
// @Failure  429  {object}  ErrorResponse "rate limited"
// @Router   /bookings [post]
func handleCreateBooking(svcs *service.Services, idem *rediscache.IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := userID(c)

		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if !discountsAllowed(c, req.BookingRequest) {
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisx.KeyIdemBooking(uid, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				replay(c, idemKey, payload)
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, idemLockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					replay(c, idemKey, payload)
					return
				}
				c.Header("Retry-After", "1")
				respondAPI(c, errIdemBusy, "")
				return
			}
		}

		creq, err := req.toCreate(uid, req.SpaceType, "user:"+strconv.FormatInt(uid, 10))
		if err != nil {
			badRequest(c, "invalid date")
			return
		}

		b, err := svcs.Reservation.CreateBooking(c.Request.Context(), creq)
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(b)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, b)
	}
}

func replay(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

// @Summary  Create recurring bookings
// @Param    req  body  RecurringBookingRequest  true  "payload"
// @Success  201  {object}  RecurringResponse "at least one occurrence booked"
// @Success  200  {object}  RecurringResponse "no occurrence booked"
// @Failure  400  {object}  ErrorResponse
// @Router   /bookings/recurring [post]
func handleCreateRecurring(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := userID(c)

		var req RecurringBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		if !discountsAllowed(c, req.BookingRequest) {
			return
		}

		creq, err := req.toCreate(uid, req.SpaceType, "user:"+strconv.FormatInt(uid, 10))
		if err != nil {
			badRequest(c, "invalid date")
			return
		}
		end, err := domain.ParseDate(req.EndDate)
		if err != nil {
			badRequest(c, "invalid end_date")
			return
		}

		res, err := svcs.Reservation.CreateRecurring(c.Request.Context(), reservation.RecurringRequest{
			CreateRequest: creq,
			Pattern:       domain.RecurringPattern(req.Pattern),
			EndDate:       end,
		})
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := RecurringResponse{
			Succeeded:   res.Succeeded(),
			EndDate:     res.EndDate.Format(domain.DateLayout),
			Truncated:   res.Truncated,
			Occurrences: make([]OccurrenceResponse, 0, len(res.Occurrences)),
		}
		if res.ParentID != nil {
			resp.ParentID = res.ParentID.String()
		}
		for _, o := range res.Occurrences {
			or := OccurrenceResponse{Index: o.Index, Date: o.Date.Format(domain.DateLayout), Booking: o.Booking}
			if o.Err != nil {
				body := errorBody(c, o.Err)
				or.Error = &body
			}
			resp.Occurrences = append(resp.Occurrences, or)
		}

		status := http.StatusCreated
		if resp.Succeeded == 0 {
			status = http.StatusOK
		}
		c.JSON(status, resp)
	}
}

// @Summary  Get booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/{id} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Reservation.GetBooking(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		if !visible(c, b) {
			respondErr(c, reservation.ErrBookingNotFound)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Get booking by its booking number
// @Param    number  path  string  true  "Booking number, e.g. AS-240601-7KQ2M"
// @Success  200  {object}  domain.Booking
// @Failure  404  {object}  ErrorResponse
// @Router   /bookings/number/{number} [get]
func handleGetBookingByNumber(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Reservation.GetByNumber(c.Request.Context(), strings.ToUpper(c.Param("number")))
		if err != nil {
			respondErr(c, err)
			return
		}
		if !visible(c, b) {
			respondErr(c, reservation.ErrBookingNotFound)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  List my bookings
// @Param    limit   query  int  false  "page size"
// @Param    offset  query  int  false  "offset"
// @Success  200  {array}  domain.Booking
// @Router   /me/bookings [get]
func handleListMyBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, _ := userID(c)
		limit := parseIntDefault(c.Query("limit"), 0)
		offset := parseIntDefault(c.Query("offset"), 0)

		out, err := svcs.Reservation.ListUserBookings(c.Request.Context(), uid, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Cancel booking
// @Param    id   path  string                true   "Booking ID (uuid)"
// @Param    req  body  CancelBookingRequest  false  "payload"
// @Success  200  {object}  domain.Booking
// @Failure  403  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req CancelBookingRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		owner, _ := userID(c)
		if isAdmin(c) {
			owner = 0
		}

		b, err := svcs.Reservation.CancelBooking(c.Request.Context(), id, owner, req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Check in
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Failure  409  {object}  ErrorResponse
// @Router   /bookings/{id}/check-in [post]
func handleCheckIn(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		if !isAdmin(c) {
			b, err := svcs.Reservation.GetBooking(c.Request.Context(), id)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !visible(c, b) {
				respondErr(c, reservation.ErrForbidden)
				return
			}
		}

		b, err := svcs.Reservation.CheckIn(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Confirm payment
// @Param    id   path  string                 true   "Booking ID (uuid)"
// @Param    req  body  ConfirmPaymentRequest  false  "payload"
// @Success  200  {object}  domain.Booking
// @Failure  409  {object}  ErrorResponse
// @Router   /bookings/{id}/confirm-payment [post]
func handleConfirmPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req ConfirmPaymentRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, err.Error())
				return
			}
		}

		b, err := svcs.Reservation.ConfirmPayment(c.Request.Context(), id, reservation.PaymentConfirmation{
			OrderID:             req.OrderID,
			WalletTransactionID: req.WalletTransactionID,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Record a failed payment
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Router   /bookings/{id}/payment-failed [post]
func handlePaymentFailed(svcs *service.Services) gin.HandlerFunc {
	return bookingAction(svcs.Reservation.RecordPaymentFailure)
}

// @Summary  Complete booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Router   /bookings/{id}/complete [post]
func handleComplete(svcs *service.Services) gin.HandlerFunc {
	return bookingAction(svcs.Reservation.Complete)
}

// @Summary  Mark booking as no-show
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200  {object}  domain.Booking
// @Router   /bookings/{id}/no-show [post]
func handleNoShow(svcs *service.Services) gin.HandlerFunc {
	return bookingAction(svcs.Reservation.MarkNoShow)
}

// --- Admin ---

// @Summary  Create or replace a space definition
// @Param    type  path  string        true  "Space type"
// @Param    req   body  domain.Space  true  "payload"
// @Success  200  {object}  domain.Space
// @Router   /admin/spaces/{type} [put]
func handleUpsertSpace(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sp domain.Space
		if err := c.ShouldBindJSON(&sp); err != nil {
			badRequest(c, err.Error())
			return
		}
		sp.Type = domain.SpaceType(c.Param("type"))

		if err := svcs.Catalog.UpsertSpace(c.Request.Context(), &sp); err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, sp)
	}
}

// @Summary  Ledger records in a date range
// @Param    from  query  string  true  "YYYY-MM-DD"
// @Param    to    query  string  true  "YYYY-MM-DD"
// @Success  200  {array}  domain.AvailabilityRecord
// @Router   /admin/availability [get]
func handleListRecords(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		from, ok := parseDateValue(c, c.Query("from"))
		if !ok {
			return
		}
		to, ok := parseDateValue(c, c.Query("to"))
		if !ok {
			return
		}
		recs, err := svcs.Ledger.Records(c.Request.Context(), from, to)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, recs)
	}
}

// @Summary  Block a space for a date
// @Param    type  path  string        true  "Space type"
// @Param    date  path  string        true  "YYYY-MM-DD"
// @Param    req   body  BlockRequest  true  "payload"
// @Success  200  {object}  domain.AvailabilityRecord
// @Router   /admin/availability/{type}/{date}/block [post]
func handleBlock(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateValue(c, c.Param("date"))
		if !ok {
			return
		}
		var req BlockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		until, err := parseUntil(req.Until)
		if err != nil {
			badRequest(c, "invalid until (RFC3339)")
			return
		}

		rec, err := svcs.Ledger.Block(c.Request.Context(), domain.SpaceType(c.Param("type")), date, req.Reason, until)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// @Summary  Lift a manual block
// @Param    type  path  string  true  "Space type"
// @Param    date  path  string  true  "YYYY-MM-DD"
// @Success  200  {object}  domain.AvailabilityRecord
// @Router   /admin/availability/{type}/{date}/unblock [post]
func handleUnblock(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateValue(c, c.Param("date"))
		if !ok {
			return
		}
		rec, err := svcs.Ledger.Unblock(c.Request.Context(), domain.SpaceType(c.Param("type")), date)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// @Summary  Schedule maintenance
// @Param    type  path  string              true  "Space type"
// @Param    date  path  string              true  "YYYY-MM-DD"
// @Param    req   body  MaintenanceRequest  true  "payload"
// @Success  200  {object}  domain.AvailabilityRecord
// @Router   /admin/availability/{type}/{date}/maintenance [post]
func handleSetMaintenance(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateValue(c, c.Param("date"))
		if !ok {
			return
		}
		var req MaintenanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		window, err := domain.ParseSlotRange(req.Start, req.End)
		if err != nil {
			respondErr(c, reservation.ErrInvalidSlotRange)
			return
		}

		rec, err := svcs.Ledger.SetMaintenance(c.Request.Context(), domain.SpaceType(c.Param("type")), date, window, req.Reason)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// @Summary  Clear maintenance
// @Param    type  path  string  true  "Space type"
// @Param    date  path  string  true  "YYYY-MM-DD"
// @Success  200  {object}  domain.AvailabilityRecord
// @Router   /admin/availability/{type}/{date}/maintenance [delete]
func handleClearMaintenance(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		date, ok := parseDateValue(c, c.Param("date"))
		if !ok {
			return
		}
		rec, err := svcs.Ledger.ClearMaintenance(c.Request.Context(), domain.SpaceType(c.Param("type")), date)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

// @Summary  Compare the ledger with bookings and optionally repair it
// @Param    req  body  ReconcileRequest  true  "payload"
// @Success  200  {object}  reconcile.Report
// @Router   /admin/reconcile [post]
func handleReconcile(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReconcileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		from, ok := parseDateValue(c, req.From)
		if !ok {
			return
		}
		to, ok := parseDateValue(c, req.To)
		if !ok {
			return
		}
		if to.Before(from) {
			badRequest(c, "to is before from")
			return
		}

		rep, err := svcs.Reconcile.Run(c.Request.Context(), from, to, req.Fix)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, rep)
	}
}

// @Summary  Cancel unpaid bookings past the payment window
// @Success  200  {object}  ExpireResponse
// @Router   /admin/bookings/expire [post]
func handleExpirePending(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svcs.Reservation.ExpirePending(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ExpireResponse{Expired: n})
	}
}

// --- Helpers ---

func bookingAction(fn func(ctx context.Context, id uuid.UUID) (*domain.Booking, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := fn(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// discountsAllowed refuses manual discounts from anyone but staff and backend services.
// Users get promo codes and the group rule, both priced server side.
func discountsAllowed(c *gin.Context, req BookingRequest) bool {
	if len(req.Discounts) == 0 || isTrusted(c) {
		return true
	}
	respondAPI(c, errDiscountRole, "")
	return false
}

// visible hides other users' bookings from non-admin callers.
func visible(c *gin.Context, b *domain.Booking) bool {
	if isTrusted(c) {
		return true
	}
	uid, ok := userID(c)
	return ok && uid == b.UserID
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseDateValue(c *gin.Context, s string) (time.Time, bool) {
	d, err := domain.ParseDate(s)
	if err != nil {
		badRequest(c, "invalid date (YYYY-MM-DD)")
		return time.Time{}, false
	}
	return d, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
