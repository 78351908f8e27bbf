package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr                 string
	Environment          string
	LogLevel             string
	OdooURL              string
	OdooDB               string
	OdooLogin            string
	OdooAPIKey           string
	OdooTimeout          time.Duration
	DataEncryptionKey    string
	JWTSecret            string
	OperatorLogin        string
	OperatorPasswordHash string
	TokenTTL             time.Duration
	CORSAllowedOrigins   []string
	TrustedProxies       []string
	MaxBodyBytes         int64
	RateLimitPerMinute   int
	MetricsEnabled       bool
	AuditCapacity        int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present, then the YAML file named by
// CONFIG_FILE. Real environment values always win.
func Load() (Config, error) {
	_ = godotenv.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(path); err != nil {
			return Config{}, err
		}
	}

	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		Environment:          getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		OdooURL:              strings.TrimRight(getEnv("ODOO_URL", ""), "/"),
		OdooDB:               getEnv("ODOO_DB", ""),
		OdooLogin:            getEnv("ODOO_LOGIN", ""),
		OdooAPIKey:           getEnv("ODOO_API_KEY", ""),
		OdooTimeout:          getEnvDuration("ODOO_TIMEOUT", 15*time.Second),
		DataEncryptionKey:    getEnv("DATA_ENCRYPTION_KEY", ""),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		OperatorLogin:        getEnv("OPERATOR_LOGIN", "admin"),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),
		TokenTTL:             getEnvDuration("TOKEN_TTL", 12*time.Hour),
		CORSAllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", nil),
		TrustedProxies:       getEnvList("TRUSTED_PROXIES", nil),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		AuditCapacity:        getEnvInt("AUDIT_CAPACITY", 500),
	}, nil
}

// applyFile sets every top-level key of a flat YAML document as an
// environment variable unless it is already set. Keys use the environment
// names, e.g. ODOO_URL; lists become comma separated values.
func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for key, raw := range values {
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, set := os.LookupEnv(key); set {
			continue
		}
		var value string
		switch v := raw.(type) {
		case nil:
			continue
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			value = strings.Join(parts, ",")
		case map[string]any:
			return fmt.Errorf("config file %s: %s must be a scalar or list", path, key)
		default:
			value = fmt.Sprint(v)
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// AuthEnabled reports whether API routes require an operator token.
func (c Config) AuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.OdooURL) == "" {
		return fmt.Errorf("ODOO_URL is required")
	}
	if !strings.HasPrefix(c.OdooURL, "http://") && !strings.HasPrefix(c.OdooURL, "https://") {
		return fmt.Errorf("ODOO_URL must start with http:// or https://")
	}
	if strings.TrimSpace(c.OdooDB) == "" {
		return fmt.Errorf("ODOO_DB is required")
	}
	if strings.HasPrefix(c.OdooAPIKey, "enc:") && strings.TrimSpace(c.DataEncryptionKey) == "" {
		return fmt.Errorf("DATA_ENCRYPTION_KEY must be set when ODOO_API_KEY is encrypted")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set in production")
		}
		if strings.TrimSpace(c.OperatorPasswordHash) == "" {
			return fmt.Errorf("OPERATOR_PASSWORD_HASH must be set in production")
		}
	}
	if c.OdooTimeout <= 0 {
		return fmt.Errorf("ODOO_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.AuditCapacity <= 0 {
		return fmt.Errorf("AUDIT_CAPACITY must be positive")
	}
	for _, proxy := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(proxy); err == nil {
			continue
		}
		if _, err := netip.ParseAddr(proxy); err != nil {
			return fmt.Errorf("TRUSTED_PROXIES entry %q is not an address or CIDR", proxy)
		}
	}
	return nil
}
