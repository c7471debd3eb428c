package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName string
	AppEnv  string
	AppURL  string
	Port    string

	// Database (optional driver switch via ENV, default: sqlite)
	DBDriver       string
	DBConnection   string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// OAuth state tokens (validity window for the signed connect state)
	OAuthStateExpiry time.Duration

	// OAuth platforms
	GitHubClientID     string
	GitHubClientSecret string
	StravaClientID     string
	StravaClientSecret string
	NotionClientID     string
	NotionClientSecret string

	// Sync
	SyncIntervals      map[string]time.Duration
	AdapterTimeout     time.Duration
	RemoteWriteTimeout time.Duration
	LastErrorMaxLen    int

	// Cache (empty REDIS_ADDR falls back to the in-process cache)
	RedisAddr string
	CacheTTL  time.Duration

	// AI insights (optional)
	OpenAIAPIKey string
	OpenAIModel  string

	// Observability (optional)
	SentryDSN string
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		// Application
		AppName: envString("APP_NAME", "Questlog"),
		AppEnv:  envRequired("APP_ENV"), // Required: 'development' or 'production'
		AppURL:  envRequired("APP_URL"), // Required: base URL for OAuth redirects
		Port:    envString("PORT", "8090"),

		// Database
		DBDriver:       envString("DB_DRIVER", "sqlite"),
		DBConnection:   envString("DB_CONNECTION", "./data/questlog.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"),
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: envInt("DB_MAX_IDLE_CONNS", 5),

		// Security
		JWTSecret: envRequired("JWT_SECRET"),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		OAuthStateExpiry: envDuration("OAUTH_STATE_EXPIRY", 10*time.Minute),

		// OAuth platforms
		GitHubClientID:     envString("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: envString("GITHUB_CLIENT_SECRET", ""),
		StravaClientID:     envString("STRAVA_CLIENT_ID", ""),
		StravaClientSecret: envString("STRAVA_CLIENT_SECRET", ""),
		NotionClientID:     envString("NOTION_CLIENT_ID", ""),
		NotionClientSecret: envString("NOTION_CLIENT_SECRET", ""),

		// Sync
		SyncIntervals: map[string]time.Duration{
			"leetcode":   envDuration("SYNC_INTERVAL_LEETCODE", 2*time.Hour),
			"codeforces": envDuration("SYNC_INTERVAL_CODEFORCES", 2*time.Hour),
			"github":     envDuration("SYNC_INTERVAL_GITHUB", time.Hour),
			"strava":     envDuration("SYNC_INTERVAL_STRAVA", 6*time.Hour),
			"notion":     envDuration("SYNC_INTERVAL_NOTION", 30*time.Minute),
		},
		AdapterTimeout:     envDuration("ADAPTER_TIMEOUT", 15*time.Second),
		RemoteWriteTimeout: envDuration("REMOTE_WRITE_TIMEOUT", 30*time.Second),
		LastErrorMaxLen:    envInt("LAST_ERROR_MAX_LEN", 500),

		// Cache
		RedisAddr: envString("REDIS_ADDR", ""),
		CacheTTL:  envDuration("CACHE_TTL", 10*time.Minute),

		// AI insights
		OpenAIAPIKey: envString("OPENAI_API_KEY", ""),
		OpenAIModel:  envString("OPENAI_MODEL", "gpt-4o-mini"),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),
	}

	// Production: validate required services
	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures the services sync depends on are configured for
// production deployments. Development allows adapters to stay unconfigured.
func validateProduction(cfg *Config) {
	if cfg.NotionClientID == "" || cfg.NotionClientSecret == "" {
		slog.Error("production deployment requires NOTION_CLIENT_ID and NOTION_CLIENT_SECRET",
			"hint", "set APP_ENV=development to run without the Notion projection")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SyncInterval returns the schedule interval for a platform, defaulting to
// one hour for platforms without an explicit setting.
func (c *Config) SyncInterval(platform string) time.Duration {
	if d, ok := c.SyncIntervals[platform]; ok {
		return d
	}
	return time.Hour
}

// Sanitized returns a copy of the config with only public/safe fields.
// All secrets and credentials are excluded.
func (c *Config) Sanitized() *Config {
	return &Config{
		AppName: c.AppName,
		AppEnv:  c.AppEnv,
		AppURL:  c.AppURL,
		Port:    c.Port,

		GitHubClientID: c.GitHubClientID,
		StravaClientID: c.StravaClientID,
		NotionClientID: c.NotionClientID,
	}
}
