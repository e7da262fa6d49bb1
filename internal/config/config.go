package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	LedgerExcel    = "excel"
	LedgerPostgres = "postgres"
	LedgerSQLite   = "sqlite"
	LedgerMemory   = "memory"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

type Config struct {
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":5000"`
	StaticDir    string `env:"STATIC_DIR" envDefault:"static"`
	UploadDir    string `env:"UPLOAD_DIR" envDefault:"static/uploads"`
	MaxBodyBytes int64  `env:"MAX_BODY_BYTES" envDefault:"10485760"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	CatalogPath   string `env:"CATALOG_PATH" envDefault:"products.json"`
	CatalogAPIURL string `env:"CATALOG_API_URL"`
	CatalogAPIKey string `env:"CATALOG_API_KEY"`

	LedgerBackend         string        `env:"LEDGER_BACKEND" envDefault:"excel"`
	LedgerXLSXPath        string        `env:"LEDGER_XLSX_PATH" envDefault:"PosterMan Orders.xlsx"`
	LedgerSheet           string        `env:"LEDGER_SHEET" envDefault:"Orders"`
	LedgerTimeout         time.Duration `env:"LEDGER_TIMEOUT" envDefault:"5s"`
	LedgerRetryMaxElapsed time.Duration `env:"LEDGER_RETRY_MAX_ELAPSED" envDefault:"15s"`

	DBHost            string        `env:"DB_HOST" envDefault:"localhost"`
	DBPort            int           `env:"DB_PORT" envDefault:"5432"`
	DBUser            string        `env:"DB_USER"`
	DBPassword        string        `env:"DB_PASSWORD"`
	DBName            string        `env:"DB_NAME"`
	DBSSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`
	SQLitePath        string        `env:"SQLITE_PATH" envDefault:"posterbot.db"`

	SessionBackend    string        `env:"SESSION_BACKEND" envDefault:"memory"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionMaxEntries int           `env:"SESSION_MAX_ENTRIES" envDefault:"10000"`

	RedisAddr          string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword      string `env:"REDIS_PASSWORD"`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`
	RateLimitPerMinute int    `env:"RATE_LIMIT_PER_MINUTE" envDefault:"0"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30s"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `env:"TWILIO_WHATSAPP_FROM"`

	TelegramToken     string  `env:"TELEGRAM_TOKEN"`
	TelegramChannelID int64   `env:"TELEGRAM_CHANNEL_ID"`
	TelegramAdminIDs  []int64 `env:"TELEGRAM_ADMIN_IDS" envSeparator:","`
	TelegramDebug     bool    `env:"TELEGRAM_DEBUG" envDefault:"false"`

	WhatsAppLink string `env:"WHATSAPP_LINK"`
	DialogConfig string `env:"DIALOG_CONFIG"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	switch c.LedgerBackend {
	case LedgerExcel:
		if c.LedgerXLSXPath == "" {
			errs = append(errs, errors.New("LEDGER_XLSX_PATH is required for the excel ledger"))
		}
	case LedgerPostgres:
		if c.DBUser == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_USER and DB_NAME are required for the postgres ledger"))
		}
	case LedgerSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite ledger"))
		}
	case LedgerMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.LedgerBackend))
	}

	switch c.SessionBackend {
	case SessionMemory, SessionRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_BACKEND %q", c.SessionBackend))
	}
	if c.RateLimitPerMinute > 0 && c.SessionBackend != SessionRedis {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE needs SESSION_BACKEND=redis"))
	}

	if c.LedgerTimeout <= 0 {
		errs = append(errs, errors.New("LEDGER_TIMEOUT must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}

	twilio := []string{c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFrom}
	set := 0
	for _, v := range twilio {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(twilio) {
		errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_FROM must be set together"))
	}

	return errors.Join(errs...)
}

// TwilioEnabled reports whether WhatsApp delivery is configured.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != ""
}

// TelegramEnabled reports whether the Telegram transport should run.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}
