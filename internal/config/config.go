package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cuotas/internal/core"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	RateLimitPerMinute int

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// AMQP; an empty URL disables ledger events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleContributionsSheet string
	GoogleExpensesSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Dues
	FeePerPeriod      string
	FeePolicy         string
	HorizonMonths     int
	MaxPrepaidPeriods int

	// Identity
	SessionTTL       time.Duration
	SessionCacheSize int
	AdminEmail       string
	AdminPassword    string

	// Workers
	PeriodRefreshInterval time.Duration
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cuotas.db"),
		SeedFile:     getEnv("SEED_MEMBERS_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cuotas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleContributionsSheet: getEnv("GOOGLE_CONTRIBUTIONS_SHEET", "Abonos"),
		GoogleExpensesSheet:      getEnv("GOOGLE_EXPENSES_SHEET", "Egresos"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		FeePerPeriod:      getEnv("FEE_PER_PERIOD", "30"),
		FeePolicy:         getEnv("FEE_POLICY", "flat"),
		HorizonMonths:     getEnvInt("HORIZON_MONTHS", 1),
		MaxPrepaidPeriods: getEnvInt("MAX_PREPAID_PERIODS", 24),

		SessionTTL:       getEnvDuration("SESSION_TTL", 12*time.Hour),
		SessionCacheSize: getEnvInt("SESSION_CACHE_SIZE", 1000),
		AdminEmail:       getEnv("ADMIN_EMAIL", ""),
		AdminPassword:    getEnv("ADMIN_PASSWORD", ""),

		PeriodRefreshInterval: getEnvDuration("PERIOD_REFRESH_INTERVAL", time.Hour),
	}
}

// Fee parses FeePerPeriod.
func (c *Config) Fee() (core.Money, error) {
	return core.ParseMoney(c.FeePerPeriod)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s]", c.DataBackend, BackendMemory, BackendSQLite))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if _, err := c.Fee(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid fee per period '%s': must be a positive amount", c.FeePerPeriod))
	}
	switch c.FeePolicy {
	case "flat", "pooled":
	default:
		errors = append(errors, fmt.Sprintf("invalid fee policy '%s': must be 'flat' or 'pooled'", c.FeePolicy))
	}
	if c.HorizonMonths < 1 || c.HorizonMonths > 24 {
		errors = append(errors, fmt.Sprintf("invalid horizon %d: must be between 1 and 24 months", c.HorizonMonths))
	}
	if c.MaxPrepaidPeriods < 0 || c.MaxPrepaidPeriods > 240 {
		errors = append(errors, fmt.Sprintf("invalid max prepaid periods %d: must be between 0 and 240", c.MaxPrepaidPeriods))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid session cache size %d: must be at least 1", c.SessionCacheSize))
	}
	if c.AdminEmail != "" && len(c.AdminPassword) < 8 {
		errors = append(errors, "ADMIN_PASSWORD must have at least 8 characters when ADMIN_EMAIL is set")
	}

	if c.PeriodRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid period refresh interval %v: must be at least 1 minute", c.PeriodRefreshInterval))
	} else if c.PeriodRefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid period refresh interval %v: must be at most 24 hours", c.PeriodRefreshInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
