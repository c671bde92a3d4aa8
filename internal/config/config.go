package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix = "PORTFOLIO"

	defaultHTTPAddress     = "0.0.0.0:8080"
	defaultDatabasePath    = "portfolio.db"
	defaultStorageDriver   = StorageDriverSQLite
	defaultStorageKey      = "contactSubmissions"
	defaultQuotaBytes      = 5 * 1024 * 1024
	defaultPollInterval    = "5s"
	defaultSubmitDelay     = "1500ms"
	defaultSuccessDisplay  = "5s"
	defaultTokenTTLMinutes = 60
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultAllowedOrigins  = "*"
)

const (
	// StorageDriverSQLite persists the submission slot through GORM.
	StorageDriverSQLite = "sqlite"
	// StorageDriverMemory keeps the slot in process memory.
	StorageDriverMemory = "memory"
)

// AppConfig captures runtime configuration for the API server and CLI.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	StorageDriver  string
	StorageKey     string
	QuotaBytes     int
	PollInterval   time.Duration
	SubmitDelay    time.Duration
	SuccessDisplay time.Duration
	PasswordHash   string
	SigningSecret  string
	TokenTTL       time.Duration
	LogLevel       string
	LogFormat      string
	AllowedOrigins []string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("storage.key", defaultStorageKey)
	configViper.SetDefault("storage.quota_bytes", defaultQuotaBytes)
	configViper.SetDefault("view.poll_interval", defaultPollInterval)
	configViper.SetDefault("intake.submit_delay", defaultSubmitDelay)
	configViper.SetDefault("intake.success_display", defaultSuccessDisplay)
	configViper.SetDefault("admin.token_ttl_minutes", defaultTokenTTLMinutes)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
	configViper.SetDefault("cors.allowed_origins", defaultAllowedOrigins)

	// AutomaticEnv only resolves keys viper already knows about.
	configViper.SetDefault("admin.password_hash", "")
	configViper.SetDefault("admin.signing_secret", "")
}

// Load parses storage and logging configuration. Admin credentials are not
// required; use LoadServer for the HTTP server.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    strings.TrimSpace(configViper.GetString("http.address")),
		DatabasePath:   strings.TrimSpace(configViper.GetString("database.path")),
		StorageDriver:  strings.ToLower(strings.TrimSpace(configViper.GetString("storage.driver"))),
		StorageKey:     strings.TrimSpace(configViper.GetString("storage.key")),
		QuotaBytes:     configViper.GetInt("storage.quota_bytes"),
		PasswordHash:   strings.TrimSpace(configViper.GetString("admin.password_hash")),
		SigningSecret:  configViper.GetString("admin.signing_secret"),
		TokenTTL:       time.Duration(configViper.GetInt("admin.token_ttl_minutes")) * time.Minute,
		LogLevel:       configViper.GetString("log.level"),
		LogFormat:      strings.ToLower(strings.TrimSpace(configViper.GetString("log.format"))),
		AllowedOrigins: splitList(configViper.GetStringSlice("cors.allowed_origins")),
	}

	var err error
	if cfg.PollInterval, err = parseDuration(configViper, "view.poll_interval"); err != nil {
		return AppConfig{}, err
	}
	if cfg.SubmitDelay, err = parseDuration(configViper, "intake.submit_delay"); err != nil {
		return AppConfig{}, err
	}
	if cfg.SuccessDisplay, err = parseDuration(configViper, "intake.success_display"); err != nil {
		return AppConfig{}, err
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// LoadServer is Load plus the admin credentials the HTTP server needs.
func LoadServer(configViper *viper.Viper) (AppConfig, error) {
	cfg, err := Load(configViper)
	if err != nil {
		return AppConfig{}, err
	}
	if strings.TrimSpace(cfg.SigningSecret) == "" {
		return AppConfig{}, fmt.Errorf("admin.signing_secret is required")
	}
	if cfg.PasswordHash == "" {
		return AppConfig{}, fmt.Errorf("admin.password_hash is required")
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.StorageDriver {
	case StorageDriverSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("database.path is required")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", StorageDriverSQLite, StorageDriverMemory, c.StorageDriver)
	}
	if c.StorageKey == "" {
		return fmt.Errorf("storage.key is required")
	}
	if c.QuotaBytes <= 0 {
		return fmt.Errorf("storage.quota_bytes must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("view.poll_interval must be positive")
	}
	if c.SubmitDelay <= 0 {
		return fmt.Errorf("intake.submit_delay must be positive")
	}
	if c.SuccessDisplay <= 0 {
		return fmt.Errorf("intake.success_display must be positive")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("admin.token_ttl_minutes must be positive")
	}
	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors.allowed_origins entry %q must be \"*\" or an http(s) origin", origin)
		}
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be \"json\" or \"console\", got %q", c.LogFormat)
	}
	return nil
}

func parseDuration(configViper *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(configViper.GetString(key))
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return value, nil
}

// splitList accepts both list values and a single comma separated string, as
// environment variables arrive.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}
