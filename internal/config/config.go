package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Auth modes.
const (
	AuthNone = "none"
	AuthJWT  = "jwt"
	AuthOIDC = "oidc"
)

type Config struct {
	// Server
	Port        string
	CORSOrigins string
	BodyLimitMB int
	AppEnv      string

	// Database
	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	SQLitePath  string

	LogRetention time.Duration

	// Auth
	AuthMode     string
	JWTSecret    string
	OIDCIssuer   string
	OIDCAudience string

	// AI providers, tried in AIProviders order
	AIProviders  []string
	OpenAIAPIKey string
	OpenAIAPIURL string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
	AITimeout    time.Duration

	// Error tracking
	SentryDSN string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "5009"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		BodyLimitMB: parseInt(getEnv("BODY_LIMIT_MB", "15"), 15),
		AppEnv:      getEnv("APP_ENV", "development"),

		DBDriver:    defaultDriver(),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "produce_grader"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		SQLitePath:  getEnv("SQLITE_PATH", "produce_grader.db"),

		LogRetention: parseDuration(getEnv("LOG_RETENTION", "720h"), 30*24*time.Hour),

		AuthMode:     strings.ToLower(getEnv("AUTH_MODE", AuthNone)),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		OIDCIssuer:   getEnv("OIDC_ISSUER", ""),
		OIDCAudience: getEnv("OIDC_AUDIENCE", ""),

		AIProviders:  parseCSV(getEnv("AI_PROVIDERS", "openai,gemini")),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIAPIURL: getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o"),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AITimeout:    parseDuration(getEnv("AI_TIMEOUT", "30s"), 30*time.Second),

		SentryDSN: getEnv("SENTRY_DSN", ""),
	}
}

// Validate rejects combinations that cannot start.
func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" && c.DBPassword == "" {
			errs = append(errs, errors.New("postgres driver requires DATABASE_URL or DB_PASSWORD"))
		}
	default:
		errs = append(errs, errors.New("unsupported DB_DRIVER: "+c.DBDriver))
	}

	switch c.AuthMode {
	case AuthNone:
	case AuthJWT:
		if c.JWTSecret == "" {
			errs = append(errs, errors.New("AUTH_MODE=jwt requires JWT_SECRET"))
		}
	case AuthOIDC:
		if c.OIDCIssuer == "" || c.OIDCAudience == "" {
			errs = append(errs, errors.New("AUTH_MODE=oidc requires OIDC_ISSUER and OIDC_AUDIENCE"))
		}
	default:
		errs = append(errs, errors.New("unsupported AUTH_MODE: "+c.AuthMode))
	}

	for _, p := range c.AIProviders {
		if p != "openai" && p != "gemini" {
			errs = append(errs, errors.New("unsupported AI provider: "+p))
		}
	}
	if c.AITimeout <= 0 {
		errs = append(errs, errors.New("AI_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from
// the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// UsesDatabase is false in prototype mode, where reports live in memory.
func (c *Config) UsesDatabase() bool {
	return c.DBDriver != DriverMemory
}

// Without an explicit DB_DRIVER, a configured DATABASE_URL selects postgres
// and anything else runs in memory.
func defaultDriver() string {
	if d := strings.ToLower(os.Getenv("DB_DRIVER")); d != "" {
		return d
	}
	if os.Getenv("DATABASE_URL") != "" {
		return DriverPostgres
	}
	return DriverMemory
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(p))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
