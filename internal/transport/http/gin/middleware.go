package httpgin

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"

	RoleAdmin = "admin"
	// RoleService is held by trusted backends such as the payment service.
	RoleService = "service"
)

const maxRequestIDLen = 64

// RequestIDMiddleware propagates X-Request-ID from the gateway, or mints one. Oversized
// or non-printable ids are replaced so they cannot pollute the logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if !validRequestID(reqID) {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set("X-Request-ID", reqID)
		c.Set("request_id", reqID)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}

// CORS allows browser clients of the booking UI. With no origins every origin is
// allowed and credentials are never sent.
func CORS(origins ...string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization",
			"X-Request-ID", "X-User-ID", "X-User-Role", "Idempotency-Key", "If-None-Match",
		},
		ExposeHeaders: []string{"X-Request-ID", "ETag", "Cache-Control", "Idempotency-Key", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}

// LoggingMiddleware writes one line per request under the "http" group. Server errors
// log at Error, client errors at Warn; health probes are not logged.
func LoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "/healthz" {
			return
		}

		status := c.Writer.Status()
		reqID, _ := c.Get("request_id")
		uid, _ := c.Get(ctxUserID)

		group := slog.Group("http",
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.String("path", c.Request.URL.RequestURI()),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", c.Writer.Size()),
			slog.String("ip", c.ClientIP()),
			slog.Any("request_id", reqID),
			slog.Any("user_id", uid),
		)

		switch {
		case status >= 500 || len(c.Errors) > 0:
			logger.Error("http", group, slog.String("errors", c.Errors.String()))
		case status >= 400:
			logger.Warn("http", group)
		default:
			logger.Info("http", group)
		}
	}
}

// Claims are issued by the identity service; only the user id and role are read.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

var errInvalidToken = errors.New("invalid token")

// Authenticator resolves the caller. With a secret it verifies HS256 bearer tokens;
// without one it trusts the X-User-ID and X-User-Role headers set by the gateway.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

func (a *Authenticator) Issue(userID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(tokenStr string) (*Claims, error) {
	const op = "httpgin.Authenticator.Parse"

	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, errInvalidToken)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, errInvalidToken)
	}

	if claims.UserID == 0 && claims.Subject != "" {
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: subject: %w", op, errInvalidToken)
		}
		claims.UserID = id
	}

	return claims, nil
}

// Middleware stores the caller in the gin context. Anonymous requests pass through;
// RequireUser and RequireRole decide per route.
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(a.secret) == 0 {
			if id, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64); err == nil && id > 0 {
				c.Set(ctxUserID, id)
				c.Set(ctxRole, c.GetHeader("X-User-Role"))
			}
			c.Next()
			return
		}

		token := bearer(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.Next()
			return
		}

		claims, err := a.Parse(token)
		if err != nil {
			respondAPI(c, errUnauthorized, "invalid or expired token")
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := userID(c); !ok {
			respondAPI(c, errUnauthorized, "")
			return
		}
		c.Next()
	}
}

// RequireRole admits authenticated callers holding one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := userID(c); !ok {
			respondAPI(c, errUnauthorized, "")
			return
		}
		role := c.GetString(ctxRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		respondAPI(c, errAdminOnly, "")
	}
}

func userID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}

func isAdmin(c *gin.Context) bool {
	return c.GetString(ctxRole) == RoleAdmin
}

// isTrusted reports an admin or a backend service caller.
func isTrusted(c *gin.Context) bool {
	return isAdmin(c) || c.GetString(ctxRole) == RoleService
}

func bearer(h string) string {
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
