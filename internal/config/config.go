package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Sheets    SheetsConfig
	WhatsApp  WhatsAppConfig
	Reporting ReportingConfig
	Ledger    LedgerClientConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	APIToken string
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// RedisConfig configures the idempotency store. An empty Addr disables it.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	IdempotencyTTL time.Duration
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// SheetsConfig points at the spreadsheet used as the payment journal.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the journal is configured.
func (c SheetsConfig) Enabled() bool { return c.CredentialsPath != "" && c.SpreadsheetID != "" }

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	BaseURL       string
	APIVersion    string
	WardenPhone   string
}

// Enabled reports whether receipts and reports can be sent.
func (c WhatsAppConfig) Enabled() bool { return c.AccessToken != "" && c.PhoneNumberID != "" }

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	OverdueSchedule string
	ReportSchedule  string
	Timezone        string
	HostelIDs       []int64
}

// LedgerClientConfig configures the feedesk client talking to the ledger API.
type LedgerClientConfig struct {
	BaseURL  string
	HostelID int64
	Token    string
	Timeout  time.Duration
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance. Validation is left to the caller since the
// server and the client need different parts of it.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	redisDB, err := getenvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	idemTTL, err := getenvDuration("IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	hostelID, err := getenvInt("LEDGER_HOSTEL_ID", 0)
	if err != nil {
		return nil, err
	}
	ledgerTimeout, err := getenvDuration("LEDGER_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	reportHostels, err := parseIDList(os.Getenv("REPORT_HOSTEL_IDS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			APIToken: os.Getenv("API_TOKEN"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "hostel_ledger"),
		},
		Redis: RedisConfig{
			Addr:           os.Getenv("REDIS_ADDR"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			IdempotencyTTL: idemTTL,
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_JOURNAL_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			WardenPhone:   os.Getenv("WARDEN_PHONE"),
		},
		Reporting: ReportingConfig{
			OverdueSchedule: getenvWithDefault("OVERDUE_CRON_SCHEDULE", "5 0 * * *"),
			ReportSchedule:  getenvWithDefault("REPORT_CRON_SCHEDULE", "0 20 * * 5"),
			Timezone:        getenvWithDefault("TIMEZONE", "Asia/Kolkata"),
			HostelIDs:       reportHostels,
		},
		Ledger: LedgerClientConfig{
			BaseURL:  getenvWithDefault("LEDGER_BASE_URL", "http://localhost:8080"),
			HostelID: int64(hostelID),
			Token:    os.Getenv("LEDGER_API_TOKEN"),
			Timeout:  ledgerTimeout,
		},
	}

	return cfg, nil
}

// Validate ensures the fields required by the ledger server are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.MongoDB.URI == "":
		return errors.New("MONGODB_URI must be provided")
	case c.MongoDB.DBName == "":
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	if c.Redis.Enabled() && c.Redis.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be positive")
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_JOURNAL_ID must be set together")
	}

	if _, err := cron.ParseStandard(c.Reporting.OverdueSchedule); err != nil {
		return fmt.Errorf("invalid OVERDUE_CRON_SCHEDULE: %w", err)
	}

	if _, err := cron.ParseStandard(c.Reporting.ReportSchedule); err != nil {
		return fmt.Errorf("invalid REPORT_CRON_SCHEDULE: %w", err)
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	return nil
}

// ValidateClient ensures the fields required by feedesk are populated.
func (c *Config) ValidateClient() error {
	if c == nil {
		return errors.New("config is nil")
	}

	switch {
	case c.Ledger.BaseURL == "":
		return errors.New("LEDGER_BASE_URL must be provided")
	case c.Ledger.HostelID <= 0:
		return errors.New("LEDGER_HOSTEL_ID must be a positive id")
	case c.Ledger.Timeout <= 0:
		return errors.New("LEDGER_TIMEOUT must be positive")
	}

	return nil
}

// Location resolves the reporting timezone, falling back to UTC.
func (c ReportingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

func parseIDList(value string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("REPORT_HOSTEL_IDS must be comma-separated ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
