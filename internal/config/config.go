package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPgx  = "pgx"
	DriverGorm = "gorm"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Auth     AuthConfig
	Booking  BookingConfig
	Workers  WorkersConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level string
}

// StorageConfig selects the repository implementation. The gorm driver takes GormDSN
// (postgres:// or a sqlite path); the pgx driver uses the Postgres section.
type StorageConfig struct {
	Driver  string
	GormDSN string
	Migrate bool
}

type RedisConfig struct {
	// Addr empty disables caching, rate limiting, idempotency and realtime fan-out.
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
}

func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     p.Name,
		RawQuery: "sslmode=" + p.SSLMode,
	}
	return u.String()
}

type AMQPConfig struct {
	// URL empty disables event publishing and the payment consumer.
	URL string
}

type AuthConfig struct {
	// JWTSecret empty trusts X-User-ID / X-User-Role from the gateway.
	JWTSecret string
}

type BookingConfig struct {
	Location       *time.Location
	PendingTTL     time.Duration
	RefundTiers    string
	PromoCodes     map[string]int
	GroupThreshold int
	GroupPercent   int
	MaxOccurrences int
	NumberAttempts int
	RateLimit      int
	RateWindow     time.Duration
	IdempotencyTTL time.Duration
}

type WorkersConfig struct {
	ExpireInterval    time.Duration
	ReconcileInterval time.Duration
	// ReconcileDays is how many days from today the sweep covers.
	ReconcileDays int
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: env("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	storageCfg := StorageConfig{
		Driver:  strings.ToLower(env("STORAGE_DRIVER", DriverPgx)),
		GormDSN: os.Getenv("GORM_DSN"),
		Migrate: env("DB_MIGRATE", "true") == "true",
	}

	switch storageCfg.Driver {
	case DriverPgx:
	case DriverGorm:
		if storageCfg.GormDSN == "" {
			storageCfg.GormDSN = "file:spacebook.db?_pragma=busy_timeout(5000)"
		}
	default:
		return nil, fmt.Errorf("%s: invalid STORAGE_DRIVER %q", op, storageCfg.Driver)
	}

	postgresCfg, err := postgresConfig(storageCfg.Driver == DriverPgx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	bookingCfg, err := bookingConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	workersCfg, err := workersConfig()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Log:      LogConfig{Level: env("LOG_LEVEL", "info")},
		Storage:  storageCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		AMQP:     AMQPConfig{URL: os.Getenv("AMQP_URL")},
		Auth:     AuthConfig{JWTSecret: os.Getenv("JWT_SECRET")},
		Booking:  bookingCfg,
		Workers:  workersCfg,
	}, nil
}

func postgresConfig(required bool) (PostgresConfig, error) {
	port, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	maxConns, err := intEnv("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return PostgresConfig{}, err
	}

	cfg := PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     env("POSTGRES_HOST", "localhost"),
		Port:     port,
		SSLMode:  env("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(maxConns),
	}

	if !required {
		return cfg, nil
	}

	if cfg.User == "" {
		return cfg, fmt.Errorf("missing POSTGRES_USER")
	}

	if cfg.Password == "" {
		return cfg, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	if cfg.Name == "" {
		return cfg, fmt.Errorf("missing POSTGRES_DB")
	}

	return cfg, nil
}

func bookingConfig() (BookingConfig, error) {
	tz := env("BOOKING_TIMEZONE", "Asia/Tehran")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return BookingConfig{}, fmt.Errorf("invalid BOOKING_TIMEZONE: %w", err)
	}

	pendingTTL, err := durationEnv("PENDING_TTL", 30*time.Minute)
	if err != nil {
		return BookingConfig{}, err
	}

	promos, err := parsePromoCodes(os.Getenv("PROMO_CODES"))
	if err != nil {
		return BookingConfig{}, err
	}

	groupThreshold, err := intEnv("GROUP_DISCOUNT_THRESHOLD", 10)
	if err != nil {
		return BookingConfig{}, err
	}

	groupPercent, err := intEnv("GROUP_DISCOUNT_PERCENT", 10)
	if err != nil {
		return BookingConfig{}, err
	}
	if groupPercent < 0 || groupPercent > 100 {
		return BookingConfig{}, fmt.Errorf("invalid GROUP_DISCOUNT_PERCENT: %d", groupPercent)
	}

	maxOccurrences, err := intEnv("RECURRING_MAX_OCCURRENCES", 12)
	if err != nil {
		return BookingConfig{}, err
	}

	numberAttempts, err := intEnv("BOOKING_NUMBER_ATTEMPTS", 5)
	if err != nil {
		return BookingConfig{}, err
	}

	rateLimit, err := intEnv("BOOKING_RATE_LIMIT", 10)
	if err != nil {
		return BookingConfig{}, err
	}

	rateWindow, err := durationEnv("BOOKING_RATE_WINDOW", time.Minute)
	if err != nil {
		return BookingConfig{}, err
	}

	idemTTL, err := durationEnv("IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return BookingConfig{}, err
	}

	return BookingConfig{
		Location:       loc,
		PendingTTL:     pendingTTL,
		RefundTiers:    env("REFUND_TIERS", "48:100,24:50,0:25"),
		PromoCodes:     promos,
		GroupThreshold: groupThreshold,
		GroupPercent:   groupPercent,
		MaxOccurrences: maxOccurrences,
		NumberAttempts: numberAttempts,
		RateLimit:      rateLimit,
		RateWindow:     rateWindow,
		IdempotencyTTL: idemTTL,
	}, nil
}

func workersConfig() (WorkersConfig, error) {
	expire, err := durationEnv("EXPIRE_INTERVAL", time.Minute)
	if err != nil {
		return WorkersConfig{}, err
	}

	reconcile, err := durationEnv("RECONCILE_INTERVAL", time.Hour)
	if err != nil {
		return WorkersConfig{}, err
	}

	days, err := intEnv("RECONCILE_DAYS", 30)
	if err != nil {
		return WorkersConfig{}, err
	}

	return WorkersConfig{
		ExpireInterval:    expire,
		ReconcileInterval: reconcile,
		ReconcileDays:     days,
	}, nil
}

// parsePromoCodes reads "CODE:PERCENT" pairs separated by commas, e.g. "NOWRUZ:10,WELCOME:15".
func parsePromoCodes(s string) (map[string]int, error) {
	out := make(map[string]int)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}

	for _, pair := range strings.Split(s, ",") {
		code, pct, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid PROMO_CODES entry %q", pair)
		}
		n, err := strconv.Atoi(pct)
		if err != nil || n <= 0 || n > 100 {
			return nil, fmt.Errorf("invalid PROMO_CODES percent %q", pair)
		}
		out[strings.ToUpper(code)] = n
	}

	return out, nil
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
