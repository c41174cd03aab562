package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingConnectionString is returned by Load when DATABASE_URL is not set.
var ErrMissingConnectionString = errors.New("config: DATABASE_URL is required")

// Config holds application configuration loaded from environment variables
// Provide sane defaults for local development; the database connection string has none.
type Config struct {
	AppName string
	Env     string // development, staging, production
	Port    string
	GinMode string

	// Database
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBMaxConnLife time.Duration

	// Migrations; empty means the migrations embedded in the binary
	MigrationsDir string

	// Seeding
	SeedEnabled       bool
	SeedRoles         string // comma-separated
	SeedAdminEmail    string
	SeedAdminPassword string
	SeedDefaultRole   string

	// Password policy
	PasswordMinLength     int
	PasswordRequireDigit  bool
	PasswordRequireUpper  bool
	PasswordRequireLower  bool
	PasswordRequireSymbol bool

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Google Cloud Storage
	GCSBucket              string
	GCSCredentialsJSONPath string // optional; if empty, Application Default Credentials are used

	// JWT
	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	SessionTTL       time.Duration

	// Cookies
	CookieDomain string
	CookieSecure bool

	// CORS
	CORSAllowedOrigins string // comma-separated

	// Mailgun
	MailgunDomain string
	MailgunAPIKey string
	MailgunSender string

	// RabbitMQ
	RabbitMQURL        string
	RabbitMQEmailQueue string

	// Elasticsearch
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESUsersIndex       string

	// Links embedded in account emails
	CompanyName      string
	SupportURL       string
	ConfirmEmailURL  string
	ResetPasswordURL string

	// Email sending toggle
	MailSendEnabled bool

	// Debug metrics (/api/debug/vars)
	DebugMetricsEnabled bool

	// HTTP access log toggle (Gin logger)
	HTTPLogEnabled bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// Load loads configuration from environment variables.
// A missing DATABASE_URL is a fatal startup condition and is reported as ErrMissingConnectionString.
func Load() (*Config, error) {
	cfg := LoadShared()
	if cfg.DatabaseURL == "" {
		return nil, ErrMissingConnectionString
	}
	return cfg, nil
}

// LoadShared reads the same variables as Load without requiring DATABASE_URL.
// Processes that never open the database, like the email worker, use it.
func LoadShared() *Config {
	return &Config{
		AppName: getenv("APP_NAME", "auth-scaffold"),
		Env:     getenv("APP_ENV", "development"),
		Port:    getenv("PORT", "8080"),
		GinMode: getenv("GIN_MODE", "release"),

		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:    int32(getint("DB_MAX_CONNS", 10)),
		DBMinConns:    int32(getint("DB_MIN_CONNS", 2)),
		DBMaxConnLife: getdur("DB_MAX_CONN_LIFETIME", time.Hour),

		MigrationsDir: getenv("MIGRATIONS_DIR", ""),

		SeedEnabled:       getbool("SEED_ENABLED", true),
		SeedRoles:         getenv("SEED_ROLES", "Employee,Adjuster"),
		SeedAdminEmail:    getenv("SEED_ADMIN_EMAIL", "admin@example.com"),
		SeedAdminPassword: getenv("SEED_ADMIN_PASSWORD", "Admin@123"),
		SeedDefaultRole:   getenv("SEED_DEFAULT_ROLE", "Employee"),

		PasswordMinLength:     getint("PASSWORD_MIN_LENGTH", 6),
		PasswordRequireDigit:  getbool("PASSWORD_REQUIRE_DIGIT", true),
		PasswordRequireUpper:  getbool("PASSWORD_REQUIRE_UPPER", true),
		PasswordRequireLower:  getbool("PASSWORD_REQUIRE_LOWER", true),
		PasswordRequireSymbol: getbool("PASSWORD_REQUIRE_SYMBOL", false),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),

		GCSBucket:              getenv("GCS_BUCKET", ""),
		GCSCredentialsJSONPath: getenv("GCS_CREDENTIALS_JSON", ""),

		JWTAccessSecret:  getenv("JWT_ACCESS_SECRET", "devaccesssecret"),
		JWTRefreshSecret: getenv("JWT_REFRESH_SECRET", "devrefreshsecret"),
		AccessTTL:        getdur("JWT_ACCESS_TTL", time.Hour),
		RefreshTTL:       getdur("JWT_REFRESH_TTL", 168*time.Hour),
		SessionTTL:       getdur("SESSION_TTL", 24*time.Hour),

		CookieDomain: getenv("COOKIE_DOMAIN", "localhost"),
		CookieSecure: getbool("COOKIE_SECURE", false),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", ""),

		MailgunDomain: getenv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey: getenv("MAILGUN_API_KEY", ""),
		MailgunSender: getenv("MAILGUN_SENDER", ""),

		RabbitMQURL:        getenv("RABBITMQ_URL", ""),
		RabbitMQEmailQueue: getenv("RABBITMQ_EMAIL_QUEUE", "emails"),

		ElasticsearchAddrs: getenv("ELASTICSEARCH_ADDRS", ""),
		ElasticsearchUser:  getenv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPass:  getenv("ELASTICSEARCH_PASSWORD", ""),
		ESUsersIndex:       getenv("ES_USERS_INDEX", "users"),

		CompanyName:      getenv("COMPANY_NAME", ""),
		SupportURL:       getenv("SUPPORT_URL", ""),
		ConfirmEmailURL:  getenv("CONFIRM_EMAIL_URL", "http://localhost:8080/account/confirm-email"),
		ResetPasswordURL: getenv("RESET_PASSWORD_URL", "http://localhost:8080/account/reset-password"),

		// Off by default: jobs are logged, not queued
		MailSendEnabled: getbool("MAIL_SEND_ENABLED", false),

		DebugMetricsEnabled: getbool("DEBUG_METRICS_ENABLED", true),

		// HTTP access log toggle (default false; enable when needed)
		HTTPLogEnabled: getbool("HTTP_LOG_ENABLED", false),
	}
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string {
	return splitList(c.ElasticsearchAddrs)
}

// SeedRoleNames returns the roles the seeder ensures, in configured order.
func (c *Config) SeedRoleNames() []string {
	return splitList(c.SeedRoles)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
