package httpgin

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/spacebook/internal/service/catalog"
	"github.com/kirinyoku/spacebook/internal/service/ledger"
	"github.com/kirinyoku/spacebook/internal/service/pricing"
	"github.com/kirinyoku/spacebook/internal/service/reservation"
	"golang.org/x/text/language"
)

// apiError is the HTTP face of a service error. Messages are Persian by default.
type apiError struct {
	status int
	code   string
	fa     string
	en     string
}

var (
	errInternal     = apiError{http.StatusInternalServerError, "internal", "خطای داخلی سرور", "internal server error"}
	errBadRequest   = apiError{http.StatusBadRequest, "bad_request", "درخواست نامعتبر است", "invalid request"}
	errUnauthorized = apiError{http.StatusUnauthorized, "unauthorized", "احراز هویت لازم است", "authentication required"}
	errAdminOnly    = apiError{http.StatusForbidden, "forbidden", "دسترسی مجاز نیست", "access denied"}
	errDiscountRole = apiError{http.StatusForbidden, "discount_not_allowed", "اعمال تخفیف دستی فقط برای پشتیبان مجاز است", "manual discounts are reserved for staff and trusted services"}
	errIdemBusy     = apiError{http.StatusConflict, "idempotency_in_progress", "درخواست مشابه در حال پردازش است", "idempotency key in progress"}
)

var mapped = []struct {
	target error
	api    apiError
}{
	{ledger.ErrBlocked, apiError{http.StatusConflict, "space_blocked", "این فضا در تاریخ انتخابی مسدود است", "space is blocked on this date"}},
	{ledger.ErrClosedDay, apiError{http.StatusConflict, "closed_day", "این فضا در تاریخ یا ساعت انتخابی فعال نیست", "space is closed at this time"}},
	{ledger.ErrExhausted, apiError{http.StatusConflict, "no_capacity", "ظرفیت کافی برای بازه انتخابی وجود ندارد", "not enough capacity for the requested slots"}},
	{reservation.ErrNoCapacity, apiError{http.StatusConflict, "no_capacity", "ظرفیت کافی برای بازه انتخابی وجود ندارد", "not enough capacity for the requested slots"}},
	{reservation.ErrInvalidSlotRange, apiError{http.StatusBadRequest, "invalid_slot_range", "بازه زمانی نامعتبر است", "invalid time slot range"}},
	{reservation.ErrInvalidDuration, apiError{http.StatusBadRequest, "invalid_duration", "مدت رزرو باید بین نیم تا دوازده ساعت باشد", "duration must be between 0.5 and 12 hours"}},
	{reservation.ErrInvalidCapacity, apiError{http.StatusBadRequest, "invalid_capacity", "ظرفیت درخواستی نامعتبر است", "invalid capacity"}},
	{reservation.ErrBookingInPast, apiError{http.StatusUnprocessableEntity, "booking_in_past", "امکان رزرو برای زمان گذشته وجود ندارد", "booking starts in the past"}},
	{reservation.ErrInvalidRequest, apiError{http.StatusBadRequest, "invalid_request", "درخواست رزرو نامعتبر است", "invalid booking request"}},
	{reservation.ErrBookingNotFound, apiError{http.StatusNotFound, "booking_not_found", "رزرو یافت نشد", "booking not found"}},
	{reservation.ErrForbidden, apiError{http.StatusForbidden, "forbidden", "این رزرو متعلق به شما نیست", "booking belongs to another user"}},
	{reservation.ErrInvalidTransition, apiError{http.StatusConflict, "invalid_transition", "تغییر وضعیت رزرو مجاز نیست", "booking status change is not allowed"}},
	{reservation.ErrPersistenceConflict, apiError{http.StatusServiceUnavailable, "persistence_conflict", "سیستم مشغول است، دوباره تلاش کنید", "system busy, please retry"}},
	{catalog.ErrSpaceNotFound, apiError{http.StatusNotFound, "space_not_found", "فضا یافت نشد", "space not found"}},
	{catalog.ErrInvalidSpace, apiError{http.StatusBadRequest, "invalid_space", "تعریف فضا نامعتبر است", "invalid space definition"}},
	{pricing.ErrUnknownService, apiError{http.StatusBadRequest, "unknown_service", "خدمت انتخابی برای این فضا موجود نیست", "unknown additional service"}},
	{pricing.ErrUnknownPromoCode, apiError{http.StatusBadRequest, "unknown_promo_code", "کد تخفیف نامعتبر است", "unknown promo code"}},
	{pricing.ErrInvalidDiscount, apiError{http.StatusBadRequest, "invalid_discount", "تخفیف نامعتبر است", "invalid discount"}},
}

var langMatcher = language.NewMatcher([]language.Tag{language.Persian, language.English})

func wantsEnglish(c *gin.Context) bool {
	tag, _ := language.MatchStrings(langMatcher, c.GetHeader("Accept-Language"))
	base, _ := tag.Base()
	return base.String() == "en"
}

func (e apiError) message(c *gin.Context) string {
	if wantsEnglish(c) {
		return e.en
	}
	return e.fa
}

func classify(err error) apiError {
	for _, m := range mapped {
		if errors.Is(err, m.target) {
			return m.api
		}
	}
	return errInternal
}

// errorBody renders err without writing it, e.g. for per-occurrence results.
func errorBody(c *gin.Context, err error) ErrorResponse {
	api := classify(err)
	resp := ErrorResponse{Error: api.message(c), Code: api.code}

	var capErr *ledger.CapacityError
	if errors.As(err, &capErr) {
		resp.Details = capacityDetails(capErr)
	}

	return resp
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl *reservation.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: pick(c, "تعداد درخواست‌ها بیش از حد مجاز است", "too many requests"),
			Code:  "rate_limited",
		})
		return
	}

	api := classify(err)
	if api.status >= http.StatusInternalServerError {
		_ = c.Error(err)
		slog.Error("request failed", "path", c.FullPath(), "err", err)
	}
	if api.status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}

	c.JSON(api.status, errorBody(c, err))
}

func respondAPI(c *gin.Context, api apiError, detail string) {
	resp := ErrorResponse{Error: api.message(c), Code: api.code}
	if detail != "" {
		resp.Details = map[string]any{"reason": detail}
	}
	c.AbortWithStatusJSON(api.status, resp)
}

func badRequest(c *gin.Context, detail string) {
	respondAPI(c, errBadRequest, detail)
}

func pick(c *gin.Context, fa, en string) string {
	if wantsEnglish(c) {
		return en
	}
	return fa
}
