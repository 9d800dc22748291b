package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"tripspese/internal/core"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

var (
	validBackends   = []string{BackendMemory, BackendSQLite, BackendMongo}
	validLogFormats = []string{"text", "json", "tint"}
)

type Config struct {
	// HTTP Server
	Port            string   `env:"PORT" envDefault:"8081"`
	DeleteRateLimit int      `env:"DELETE_RATE_LIMIT" envDefault:"10"` // per client per minute
	TrustedProxies  []string `env:"TRUSTED_PROXIES" envDefault:"127.0.0.0/8,::1/128,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"`

	// Storage
	DataBackend    string        `env:"DATA_BACKEND" envDefault:"sqlite"`
	SQLiteDBPath   string        `env:"SQLITE_DB_PATH" envDefault:"./data/tripspese.db"`
	MemorySeedDir  string        `env:"MEMORY_SEED_DIR" envDefault:"./data"`
	MongoURI       string        `env:"MONGODB_URI"`
	MongoDatabase  string        `env:"MONGODB_DATABASE" envDefault:"tripspese"`
	StorageTimeout time.Duration `env:"STORAGE_TIMEOUT" envDefault:"5s"`

	// Ledger catalog, fixed for the process lifetime
	DeleteSecret   string   `env:"DELETE_SECRET"`
	Categories     []string `env:"EXPENSE_CATEGORIES" envDefault:"fuel,tolls,food,transport,personal,lodging,entertainment,other"`
	Roster         []string `env:"TRIP_ROSTER" envDefault:"Dattu,Ganesh,Ramkrushna,Shubham,Jalindar"`
	SelectAllToken string   `env:"SELECT_ALL_TOKEN" envDefault:"All"`

	// Queries
	DefaultPageSize int           `env:"DEFAULT_PAGE_SIZE" envDefault:"10"`
	MaxPageSize     int           `env:"MAX_PAGE_SIZE" envDefault:"100"`
	TotalsCacheTTL  time.Duration `env:"TOTALS_CACHE_TTL" envDefault:"30s"`

	// AMQP
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"tripspese"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"sync_ledger"`

	// Google Sheets export
	GoogleSpreadsheetID      string `env:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `env:"GOOGLE_SHEET_NAME" envDefault:"Expenses"`
	GoogleTotalsSheetName    string `env:"GOOGLE_TOTALS_SHEET_NAME" envDefault:"Spends Per Person"`
	GoogleServiceAccountJSON string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountFile string `env:"GOOGLE_SERVICE_ACCOUNT_FILE"`

	// Worker
	SyncBatchSize int           `env:"SYNC_BATCH_SIZE" envDefault:"10"`
	SyncInterval  time.Duration `env:"SYNC_INTERVAL" envDefault:"5m"`
	// MetricsPort serves the worker's /metrics; empty disables it.
	MetricsPort string `env:"WORKER_METRICS_PORT" envDefault:"9091"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Catalog builds the immutable category and roster catalog.
func (c *Config) Catalog() (*core.Catalog, error) {
	return core.NewCatalog(c.Categories, c.Roster, c.SelectAllToken)
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendMongo:
		if c.MongoURI == "" {
			errors = append(errors, "MONGODB_URI is required when using mongo backend")
		} else if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
			errors = append(errors, "invalid MongoDB URI: scheme must be 'mongodb' or 'mongodb+srv'")
		}
		if c.MongoDatabase == "" {
			errors = append(errors, "MongoDB database name cannot be empty when using mongo backend")
		}
	}

	if c.StorageTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid storage timeout %v: must be positive", c.StorageTimeout))
	}

	if c.DeleteSecret == "" {
		errors = append(errors, "DELETE_SECRET is required")
	}

	if _, err := c.Catalog(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid catalog: %v", strings.ReplaceAll(err.Error(), "\n", "; ")))
	}

	if c.MaxPageSize < 1 || c.MaxPageSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid max page size %d: must be between 1 and 1000", c.MaxPageSize))
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		errors = append(errors, fmt.Sprintf("invalid default page size %d: must be between 1 and %d", c.DefaultPageSize, c.MaxPageSize))
	}
	if c.TotalsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid totals cache TTL %v: must not be negative", c.TotalsCacheTTL))
	}

	if c.DeleteRateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid delete rate limit %d: must be at least 1", c.DeleteRateLimit))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(strings.TrimSpace(cidr)); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
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

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" || c.GoogleTotalsSheetName == "" {
			errors = append(errors, "Google sheet names cannot be empty when a spreadsheet is configured")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.SyncBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}

	if c.MetricsPort != "" {
		if port, err := strconv.Atoi(c.MetricsPort); err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid worker metrics port '%s': must be between 1 and 65535", c.MetricsPort))
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validLogFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// LogValue keeps secrets and credentials out of logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.Any("trusted_proxies", c.TrustedProxies),
		slog.String("data_backend", c.DataBackend),
		slog.String("sqlite_db_path", c.SQLiteDBPath),
		slog.String("mongodb_uri", redactURL(c.MongoURI)),
		slog.String("mongodb_database", c.MongoDatabase),
		slog.Duration("storage_timeout", c.StorageTimeout),
		slog.Bool("delete_secret_set", c.DeleteSecret != ""),
		slog.Any("categories", c.Categories),
		slog.Any("roster", c.Roster),
		slog.Int("default_page_size", c.DefaultPageSize),
		slog.Int("max_page_size", c.MaxPageSize),
		slog.String("amqp_url", redactURL(c.AMQPURL)),
		slog.String("amqp_exchange", c.AMQPExchange),
		slog.String("amqp_queue", c.AMQPQueue),
		slog.String("spreadsheet_id", c.GoogleSpreadsheetID),
		slog.Duration("sync_interval", c.SyncInterval),
		slog.String("log_level", c.LogLevel),
		slog.String("log_format", c.LogFormat),
	)
}

// redactURL hides the password of a connection URL. Multi-host Mongo URIs
// are not valid net/url hosts, so userinfo is cut by hand.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}
	if user, _, hasPass := strings.Cut(userinfo, ":"); hasPass {
		userinfo = user + ":xxxxx"
	}
	return scheme + "://" + userinfo + "@" + host
}
