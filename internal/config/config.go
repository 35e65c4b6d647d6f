// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Tables names every DynamoDB table the service touches.
type Tables struct {
	Products      string
	Categories    string
	Offers        string
	Coupons       string
	Carts         string
	Orders        string
	Wallets       string
	Idempotency   string
	Notifications string
}

// DefaultTables returns the table names used when no override is set.
func DefaultTables() Tables {
	return Tables{
		Products:      "products",
		Categories:    "categories",
		Offers:        "offers",
		Coupons:       "coupons",
		Carts:         "carts",
		Orders:        "orders",
		Wallets:       "wallets",
		Idempotency:   "idempotency",
		Notifications: "notifications",
	}
}

func loadTables() Tables {
	d := DefaultTables()
	return Tables{
		Products:      getEnv("PRODUCTS_TABLE", d.Products),
		Categories:    getEnv("CATEGORIES_TABLE", d.Categories),
		Offers:        getEnv("OFFERS_TABLE", d.Offers),
		Coupons:       getEnv("COUPONS_TABLE", d.Coupons),
		Carts:         getEnv("CARTS_TABLE", d.Carts),
		Orders:        getEnv("ORDERS_TABLE", d.Orders),
		Wallets:       getEnv("WALLETS_TABLE", d.Wallets),
		Idempotency:   getEnv("IDEMPOTENCY_TABLE", d.Idempotency),
		Notifications: getEnv("NOTIFICATIONS_TABLE", d.Notifications),
	}
}

// Config is the full runtime configuration.
type Config struct {
	RunLocal         bool
	Addr             string
	AWSRegion        string
	EndpointOverride string
	Tables           Tables

	NotificationsQueueURL string

	RazorpayKeyID     string
	RazorpayKeySecret string
	Currency          string

	CancellationWindowHours int
	ReturnWindowDays        int
	IdempotencyTTL          time.Duration
	ReferralBonus           float64

	RedisAddr     string
	RedisPassword string
	OTPTTL        time.Duration

	MetricsBackend   string
	MetricsNamespace string

	TraceStdout bool
}

// Load builds a Config from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		RunLocal:              getBool("RUN_LOCAL", false),
		Addr:                  getEnv("HTTP_ADDR", ":8080"),
		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		EndpointOverride:      getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		Tables:                loadTables(),
		NotificationsQueueURL: getEnv("NOTIFICATIONS_QUEUE_URL", ""),
		RazorpayKeyID:         getEnv("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnv("RAZORPAY_KEY_SECRET", ""),
		Currency:              strings.ToUpper(getEnv("CURRENCY", "INR")),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		MetricsBackend:        strings.ToLower(getEnv("METRICS_BACKEND", "prometheus")),
		MetricsNamespace:      getEnv("METRICS_NAMESPACE", "Storefront"),
		TraceStdout:           getBool("TRACE_STDOUT", false),
	}

	var err error
	if cfg.CancellationWindowHours, err = getInt("CANCELLATION_WINDOW_HOURS", 0); err != nil {
		return Config{}, err
	}
	if cfg.ReturnWindowDays, err = getInt("RETURN_WINDOW_DAYS", 7); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = getDuration("OTP_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.ReferralBonus, err = getFloat("REFERRAL_BONUS", 100); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges that cannot be expressed as defaults.
func (c Config) Validate() error {
	if c.CancellationWindowHours < 0 {
		return fmt.Errorf("config: CANCELLATION_WINDOW_HOURS must be >= 0, got %d", c.CancellationWindowHours)
	}
	if c.ReturnWindowDays < 0 {
		return fmt.Errorf("config: RETURN_WINDOW_DAYS must be >= 0, got %d", c.ReturnWindowDays)
	}
	if c.ReferralBonus < 0 {
		return fmt.Errorf("config: REFERRAL_BONUS must be >= 0, got %v", c.ReferralBonus)
	}
	switch c.MetricsBackend {
	case "prometheus", "cloudwatch", "none":
	default:
		return fmt.Errorf("config: unknown METRICS_BACKEND %q", c.MetricsBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func getInt(key string, defaultValue int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
