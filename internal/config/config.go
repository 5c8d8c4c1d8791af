package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultHTTPAddr           = ":8080"
	defaultDatabaseURL        = "buildledger.db"
	defaultDBTransactions     = "auto"
	defaultTxTimeout          = "30s"
	defaultJWTSecret          = "change-me-jwt-secret"
	defaultJWTAccessTTL       = "24h"
	defaultCurrency           = "USD"
	defaultRecalcMode         = "inline"
	defaultOutboxPollInterval = "5s"
	defaultOutboxMaxAttempts  = "10"
	defaultReconcileInterval  = "24h"
	defaultReconcileRepair    = "false"
	defaultNotifyTimeout      = "5s"
	defaultAssetDir           = "assets"
	defaultLogLevel           = "info"
)

const (
	RecalcInline = "inline"
	RecalcOutbox = "outbox"
)

type Config struct {
	AppEnv   string
	HTTPAddr string

	DatabaseURL string
	// DBTransactions is "auto" (probe the store) or "disabled".
	DBTransactions string
	TxTimeout      time.Duration

	JWTSecret    string
	JWTAccessTTL time.Duration
	// InternalToken guards the /internal operations routes. Empty disables them.
	InternalToken      string
	CORSAllowedOrigins []string

	Currency string

	RecalcMode         string
	OutboxPollInterval time.Duration
	OutboxMaxAttempts  int

	ReconcileInterval time.Duration
	ReconcileRepair   bool

	NotifyWebhookURL string
	NotifyTimeout    time.Duration
	AuditLogFile     string
	AssetDir         string

	LogLevel string
	LogFile  string
}

// fileKeys maps env names onto "section.key" entries of the optional TOML file.
var fileKeys = map[string]string{
	"APP_ENV":              "app.env",
	"HTTP_ADDR":            "server.http_addr",
	"DATABASE_URL":         "database.url",
	"DB_TRANSACTIONS":      "database.transactions",
	"TX_TIMEOUT":           "database.tx_timeout",
	"JWT_SECRET":           "auth.jwt_secret",
	"JWT_ACCESS_TTL":       "auth.jwt_access_ttl",
	"INTERNAL_TOKEN":       "auth.internal_token",
	"CORS_ALLOWED_ORIGINS": "server.cors_allowed_origins",
	"CURRENCY":             "finance.currency",
	"RECALC_MODE":          "recalc.mode",
	"OUTBOX_POLL_INTERVAL": "recalc.outbox_poll_interval",
	"OUTBOX_MAX_ATTEMPTS":  "recalc.outbox_max_attempts",
	"RECONCILE_INTERVAL":   "reconcile.interval",
	"RECONCILE_REPAIR":     "reconcile.repair",
	"NOTIFY_WEBHOOK_URL":   "integrations.notify_webhook_url",
	"NOTIFY_TIMEOUT":       "integrations.notify_timeout",
	"AUDIT_LOG_FILE":       "integrations.audit_log_file",
	"ASSET_DIR":            "integrations.asset_dir",
	"LOG_LEVEL":            "log.level",
	"LOG_FILE":             "log.file",
}

type source struct {
	file map[string]string
}

// Load reads configuration from the environment. When FINANCE_CONFIG_FILE points at a
// TOML file its values sit beneath the environment and above built-in defaults.
func Load() (*Config, error) {
	src := &source{}
	if path := strings.TrimSpace(os.Getenv("FINANCE_CONFIG_FILE")); path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}
	return src.load()
}

func (s *source) load() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(s.get("APP_ENV", ""))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(s.get("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(s.get("DATABASE_URL", defaultDatabaseURL))
	cfg.DBTransactions = strings.ToLower(strings.TrimSpace(s.get("DB_TRANSACTIONS", defaultDBTransactions)))
	cfg.JWTSecret = strings.TrimSpace(s.get("JWT_SECRET", defaultJWTSecret))
	cfg.InternalToken = strings.TrimSpace(s.get("INTERNAL_TOKEN", ""))
	cfg.CORSAllowedOrigins = splitList(s.get("CORS_ALLOWED_ORIGINS", ""))
	cfg.Currency = strings.ToUpper(strings.TrimSpace(s.get("CURRENCY", defaultCurrency)))
	cfg.RecalcMode = strings.ToLower(strings.TrimSpace(s.get("RECALC_MODE", defaultRecalcMode)))
	cfg.NotifyWebhookURL = strings.TrimSpace(s.get("NOTIFY_WEBHOOK_URL", ""))
	cfg.AuditLogFile = strings.TrimSpace(s.get("AUDIT_LOG_FILE", ""))
	cfg.AssetDir = strings.TrimSpace(s.get("ASSET_DIR", defaultAssetDir))
	cfg.LogLevel = strings.TrimSpace(s.get("LOG_LEVEL", defaultLogLevel))
	cfg.LogFile = strings.TrimSpace(s.get("LOG_FILE", ""))
	cfg.ReconcileRepair = s.parseBool("RECONCILE_REPAIR", defaultReconcileRepair)

	var err error
	if cfg.TxTimeout, err = s.parseDuration("TX_TIMEOUT", defaultTxTimeout); err != nil {
		return nil, err
	}
	if cfg.JWTAccessTTL, err = s.parseDuration("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.OutboxPollInterval, err = s.parseDuration("OUTBOX_POLL_INTERVAL", defaultOutboxPollInterval); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = s.parseDuration("RECONCILE_INTERVAL", defaultReconcileInterval); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = s.parseDuration("NOTIFY_TIMEOUT", defaultNotifyTimeout); err != nil {
		return nil, err
	}
	if cfg.OutboxMaxAttempts, err = s.parseInt("OUTBOX_MAX_ATTEMPTS", defaultOutboxMaxAttempts); err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.DBTransactions != "auto" && cfg.DBTransactions != "disabled" {
		return fmt.Errorf("DB_TRANSACTIONS must be one of: auto, disabled")
	}
	if cfg.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be > 0")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if len(cfg.Currency) != 3 {
		return fmt.Errorf("CURRENCY must be an ISO 4217 code")
	}
	if cfg.RecalcMode != RecalcInline && cfg.RecalcMode != RecalcOutbox {
		return fmt.Errorf("RECALC_MODE must be one of: inline, outbox")
	}
	if cfg.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be > 0")
	}
	if cfg.OutboxMaxAttempts < 1 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.ReconcileInterval <= 0 {
		return fmt.Errorf("RECONCILE_INTERVAL must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.DBTransactions == "disabled" && cfg.RecalcMode == RecalcOutbox {
			return fmt.Errorf("in prod/release RECALC_MODE=outbox requires DB_TRANSACTIONS=auto")
		}
	}
	return nil
}

func (c *Config) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func (s *source) parseDuration(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(s.get(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func (s *source) parseInt(name, fallback string) (int, error) {
	value := strings.TrimSpace(s.get(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func (s *source) parseBool(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(s.get(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (s *source) get(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if v, ok := s.file[name]; ok && v != "" {
		return v
	}
	return fallback
}

func readFile(path string) (map[string]string, error) {
	var raw map[string]map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	values := make(map[string]string, len(fileKeys))
	for env, key := range fileKeys {
		section, field, _ := strings.Cut(key, ".")
		if v, ok := raw[section][field]; ok {
			values[env] = fmt.Sprint(v)
		}
	}
	return values, nil
}
