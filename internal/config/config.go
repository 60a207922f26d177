// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :3000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// APIPrefix is the path every route is mounted under (default /api).
	APIPrefix string `mapstructure:"API_PREFIX"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or text.
	LogFormat string `mapstructure:"LOG_FORMAT"`
	// CORSAllowedOrigins is a comma-separated origin list; "*" allows any.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// VapiAPIKey is the voice provider's bearer key.
	VapiAPIKey string `mapstructure:"VAPI_API_KEY"`
	// VapiPhoneNumberID identifies the provider phone number calls are placed from.
	VapiPhoneNumberID string `mapstructure:"VAPI_PHONE_NUMBER"`
	VapiBaseURL       string `mapstructure:"VAPI_BASE_URL"`
	VapiModelProvider string `mapstructure:"VAPI_MODEL_PROVIDER"`
	VapiModel         string `mapstructure:"VAPI_MODEL"`

	// AgentName and CompanyName are spoken by the assistant in its greeting.
	AgentName   string `mapstructure:"VERIFY_AGENT_NAME"`
	CompanyName string `mapstructure:"VERIFY_COMPANY_NAME"`
	// DefaultRegion is the country calling code used when a request omits region.
	DefaultRegion string `mapstructure:"VERIFY_DEFAULT_REGION"`
	// VerifyCooldown is the minimum spacing between attempts for one phone (e.g. "30s").
	VerifyCooldown string `mapstructure:"VERIFY_COOLDOWN"`
	// VerifyPollInterval is the call status polling cadence (e.g. "2s").
	VerifyPollInterval string `mapstructure:"VERIFY_POLL_INTERVAL"`
	// VerifyCallDeadline bounds how long one verification waits for the call to end (e.g. "330s").
	VerifyCallDeadline string `mapstructure:"VERIFY_CALL_DEADLINE"`
	// VerifyMaxCallSeconds is the provider-side maximum call duration.
	VerifyMaxCallSeconds int `mapstructure:"VERIFY_MAX_CALL_SECONDS"`
	// DialPolicyPath optionally points at a Rego file that decides which numbers may be dialed.
	DialPolicyPath string `mapstructure:"DIAL_POLICY_PATH"`
	// RequireBearerAuth gates /verifyPhone behind an access token issued by /token.
	RequireBearerAuth bool `mapstructure:"REQUIRE_BEARER_AUTH"`

	// JWTSecretKey signs access and refresh tokens (HS256).
	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`
	// JWTAccessTTL is the access token lifetime (e.g. "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// OAuthClientID and OAuthClientSecret are the single registered client's credentials.
	OAuthClientID     string `mapstructure:"OAUTH_CLIENT_ID"`
	OAuthClientSecret string `mapstructure:"OAUTH_CLIENT_SECRET"`
	// OAuthClientSecretHash is a bcrypt hash used instead of OAUTH_CLIENT_SECRET when set.
	OAuthClientSecretHash string `mapstructure:"OAUTH_CLIENT_SECRET_HASH"`
	// AuthorizationCode is the configured code the token endpoint accepts.
	AuthorizationCode string `mapstructure:"AUTHORIZATION_CODE"`
	// OAuthStateTTL is the lifetime of a stored authorization state (e.g. "1h").
	OAuthStateTTL string `mapstructure:"OAUTH_STATE_TTL"`
	// OAuthStateSingleUse marks a state consumed on consent submission; replays then fail.
	OAuthStateSingleUse bool `mapstructure:"OAUTH_STATE_SINGLE_USE"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// StoreDriver selects the state store: memory, postgres or sqlite.
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// DatabaseURL is the Postgres DSN or SQLite path.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// AutoMigrate applies embedded Postgres migrations at startup.
	AutoMigrate bool `mapstructure:"AUTO_MIGRATE"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	// Every key needs a default so Unmarshal sees env-only values.
	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("API_PREFIX", "/api")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("VAPI_API_KEY", "")
	v.SetDefault("VAPI_PHONE_NUMBER", "")
	v.SetDefault("VAPI_BASE_URL", "https://api.vapi.ai")
	v.SetDefault("VAPI_MODEL_PROVIDER", "openai")
	v.SetDefault("VAPI_MODEL", "gpt-4")
	v.SetDefault("VERIFY_AGENT_NAME", "Jennifer")
	v.SetDefault("VERIFY_COMPANY_NAME", "DocuVoice")
	v.SetDefault("VERIFY_DEFAULT_REGION", "1")
	v.SetDefault("VERIFY_COOLDOWN", "30s")
	v.SetDefault("VERIFY_POLL_INTERVAL", "2s")
	v.SetDefault("VERIFY_CALL_DEADLINE", "330s")
	v.SetDefault("VERIFY_MAX_CALL_SECONDS", 300)
	v.SetDefault("DIAL_POLICY_PATH", "")
	v.SetDefault("REQUIRE_BEARER_AUTH", false)
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("OAUTH_CLIENT_ID", "")
	v.SetDefault("OAUTH_CLIENT_SECRET", "")
	v.SetDefault("OAUTH_CLIENT_SECRET_HASH", "")
	v.SetDefault("AUTHORIZATION_CODE", "")
	v.SetDefault("OAUTH_STATE_TTL", "1h")
	v.SetDefault("OAUTH_STATE_SINGLE_USE", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("STORE_DRIVER", StoreMemory)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "docuvoice")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	required := []struct{ key, val string }{
		{"VAPI_API_KEY", c.VapiAPIKey},
		{"VAPI_PHONE_NUMBER", c.VapiPhoneNumberID},
		{"JWT_SECRET_KEY", c.JWTSecretKey},
		{"OAUTH_CLIENT_ID", c.OAuthClientID},
		{"AUTHORIZATION_CODE", c.AuthorizationCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.val) == "" {
			return errors.New("config: " + r.key + " must be set")
		}
	}
	if c.OAuthClientSecret == "" && c.OAuthClientSecretHash == "" {
		return errors.New("config: OAUTH_CLIENT_SECRET or OAUTH_CLIENT_SECRET_HASH must be set")
	}

	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	switch c.StoreDriver {
	case StoreMemory:
		if c.Env == "production" {
			return errors.New("config: STORE_DRIVER=memory must not be used when APP_ENV=production")
		}
	case StorePostgres, StoreSQLite:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE_DRIVER=" + c.StoreDriver)
		}
	default:
		return errors.New("config: STORE_DRIVER must be memory, postgres or sqlite")
	}

	if c.CallDeadline() <= c.PollInterval() {
		return errors.New("config: VERIFY_CALL_DEADLINE must exceed VERIFY_POLL_INTERVAL")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, time.Hour)
}

// StateTTL parses OAuthStateTTL. Returns 1h if unset or invalid.
func (c *Config) StateTTL() time.Duration {
	return parseDuration(c.OAuthStateTTL, time.Hour)
}

// Cooldown parses VerifyCooldown. Returns 30s if unset or invalid.
func (c *Config) Cooldown() time.Duration {
	return parseDuration(c.VerifyCooldown, 30*time.Second)
}

// PollInterval parses VerifyPollInterval. Returns 2s if unset or invalid.
func (c *Config) PollInterval() time.Duration {
	return parseDuration(c.VerifyPollInterval, 2*time.Second)
}

// CallDeadline parses VerifyCallDeadline. Returns 330s if unset or invalid.
func (c *Config) CallDeadline() time.Duration {
	return parseDuration(c.VerifyCallDeadline, 330*time.Second)
}

// AttemptHold is how long an unreleased verification attempt keeps its phone blocked.
// It exceeds CallDeadline, which bounds a whole attempt, so a live attempt is never displaced.
func (c *Config) AttemptHold() time.Duration {
	return c.CallDeadline() + 10*time.Second
}

// HTTPWriteTimeout exceeds AttemptHold so a verification response is never cut off.
func (c *Config) HTTPWriteTimeout() time.Duration {
	return c.AttemptHold() + 20*time.Second
}

// AllowedOrigins returns CORS origins from the comma-separated config.
func (c *Config) AllowedOrigins() []string {
	if c == nil || c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
