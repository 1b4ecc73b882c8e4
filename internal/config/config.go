package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MalformedPolicy controls what a listing request does with a stored planner
// document that fails to decode.
type MalformedPolicy string

const (
	MalformedAbort MalformedPolicy = "abort"
	MalformedSkip  MalformedPolicy = "skip"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode string // Set via flag, not env

	// MongoDB
	DatabaseURL    string
	DatabaseName   string
	ConnectTimeout time.Duration

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server
	ApiPort            string
	ServiceApiPort     string
	CORSAllowedOrigins []string
	TrustedProxies     []string // IPs or CIDRs allowed to set X-Forwarded-For; none by default

	// Planners
	PlannersDefaultLimit    int
	PlannersMalformedPolicy MalformedPolicy

	// Inquiries
	DemoMode        bool
	InquiryNotifyTo string

	// Email
	SmtpHost        string
	SmtpPort        int
	SmtpUsername    string
	SmtpPassword    string
	SmtpFromAddress string
	MockServices    bool

	// Logging
	LogLevel  string
	LogFormat string

	// Rate Limiting (inquiry submissions)
	RateLimitInquiryBurst      int
	RateLimitInquiryRefillRate int // tokens per second
}

// DatabaseConfigured reports whether a Mongo URI has been provided.
func (c *Config) DatabaseConfigured() bool {
	return c.DatabaseURL != ""
}

// NotificationsEnabled reports whether persisted inquiries should be queued
// for email delivery.
func (c *Config) NotificationsEnabled() bool {
	return c.RedisAddr != "" && c.InquiryNotifyTo != ""
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		RunMode: runMode,
	}

	var err error

	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	getBool := func(key string, defaultValue bool) (bool, error) {
		raw, exists := os.LookupEnv(key)
		if !exists || strings.TrimSpace(raw) == "" {
			return defaultValue, nil
		}
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return false, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	// The store is optional: without DATABASE_URL every request runs degraded.
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.DatabaseName = getEnv("DATABASE_NAME", "")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.ApiPort = getEnv("PORT", "8000")
	cfg.ServiceApiPort = getEnv("SERVICE_API_PORT", "12345")
	cfg.InquiryNotifyTo = getEnv("INQUIRY_NOTIFY_TO", "")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")
	cfg.SmtpFromAddress = getEnv("SMTP_FROM_ADDRESS", "noreply@planners.example.com")
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "json"))

	for _, origin := range strings.Split(getEnv("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, trimmed)
		}
	}

	for _, proxy := range strings.Split(getEnv("TRUSTED_PROXIES", ""), ",") {
		trimmed := strings.TrimSpace(proxy)
		if trimmed == "" {
			continue
		}
		if net.ParseIP(trimmed) == nil {
			if _, _, err := net.ParseCIDR(trimmed); err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", trimmed, err)
			}
		}
		cfg.TrustedProxies = append(cfg.TrustedProxies, trimmed)
	}

	connectTimeoutSeconds, err := strconv.ParseInt(getEnv("DATABASE_CONNECT_TIMEOUT_SECONDS", "5"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_CONNECT_TIMEOUT_SECONDS: %w", err)
	}
	if connectTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid DATABASE_CONNECT_TIMEOUT_SECONDS: must be positive, got %d", connectTimeoutSeconds)
	}
	cfg.ConnectTimeout = time.Duration(connectTimeoutSeconds) * time.Second

	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	cfg.PlannersDefaultLimit, err = strconv.Atoi(getEnv("PLANNERS_DEFAULT_LIMIT", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid PLANNERS_DEFAULT_LIMIT: %w", err)
	}
	if cfg.PlannersDefaultLimit <= 0 {
		return nil, fmt.Errorf("invalid PLANNERS_DEFAULT_LIMIT: must be positive, got %d", cfg.PlannersDefaultLimit)
	}

	switch policy := MalformedPolicy(strings.ToLower(getEnv("PLANNERS_MALFORMED_POLICY", string(MalformedAbort)))); policy {
	case MalformedAbort, MalformedSkip:
		cfg.PlannersMalformedPolicy = policy
	default:
		return nil, fmt.Errorf("invalid PLANNERS_MALFORMED_POLICY: %q (want %q or %q)", policy, MalformedAbort, MalformedSkip)
	}

	if cfg.DemoMode, err = getBool("DEMO_MODE", true); err != nil {
		return nil, err
	}
	if cfg.MockServices, err = getBool("MOCK_SERVICES", false); err != nil {
		return nil, err
	}

	// Rate Limiting
	cfg.RateLimitInquiryBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_INQUIRY_BURST", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_INQUIRY_BURST: %w", err)
	}
	cfg.RateLimitInquiryRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_INQUIRY_REFILL_RATE", "1"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_INQUIRY_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
