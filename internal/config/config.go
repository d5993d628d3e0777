package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// MemoryDB selects the in-process store instead of Postgres.
const MemoryDB = "memory"

// Config holds application configuration
type Config struct {
	Port            string
	DBConn          string
	LogLevel        string
	JWTSecret       string
	TokenTTL        time.Duration
	ShutdownTimeout time.Duration

	// Event publishing, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string

	// Digest mail, disabled when SMTPHost is empty
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string

	ReconcileSchedule string
	DigestSchedule    string
	DigestDays        int

	// malformed values seen while loading, reported by Validate
	parseErrors []string
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	var parseErrors []string
	getEnvInt := func(key string, defaultVal int) int {
		return parseEnv(key, defaultVal, strconv.Atoi, &parseErrors)
	}
	getEnvDuration := func(key string, defaultVal time.Duration) time.Duration {
		return parseEnv(key, defaultVal, time.ParseDuration, &parseErrors)
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBConn:          getEnv("DB_CONN", "host=localhost port=5432 user=fintrack password=fintrack dbname=fintrack sslmode=disable"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        getEnvDuration("TOKEN_TTL", 24*time.Hour),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack.events"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@fintrack.local"),

		ReconcileSchedule: getEnv("RECONCILE_SCHEDULE", "@hourly"),
		DigestSchedule:    getEnv("DIGEST_SCHEDULE", "0 8 * * 1"),
		DigestDays:        getEnvInt("DIGEST_DAYS", 7),
	}
	cfg.parseErrors = parseErrors

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	problems := append([]string{}, c.parseErrors...)

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT %q must be a number between 1 and 65535", c.Port))
	}
	if c.DBConn == "" {
		problems = append(problems, "DB_CONN is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		problems = append(problems, "AMQP_EXCHANGE is required when AMQP_URL is set")
	}
	if c.SMTPHost != "" && c.SenderEmail == "" {
		problems = append(problems, "SENDER_EMAIL is required when SMTP_HOST is set")
	}
	if c.DigestDays < 1 {
		problems = append(problems, fmt.Sprintf("DIGEST_DAYS %d must be at least 1", c.DigestDays))
	}
	for name, expr := range map[string]string{
		"RECONCILE_SCHEDULE": c.ReconcileSchedule,
		"DIGEST_SCHEDULE":    c.DigestSchedule,
	} {
		if expr == "" {
			continue
		}
		if _, err := cron.ParseStandard(expr); err != nil {
			problems = append(problems, fmt.Sprintf("%s %q: %v", name, expr, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// UseMemoryStore reports whether DB_CONN selects the in-memory store.
func (c *Config) UseMemoryStore() bool {
	return c.DBConn == MemoryDB
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// parseEnv converts the variable with parse. A malformed value keeps the default
// and is recorded in errs.
func parseEnv[T any](key string, defaultVal T, parse func(string) (T, error), errs *[]string) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	v, err := parse(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s %q is malformed", key, value))
		return defaultVal
	}
	return v
}
