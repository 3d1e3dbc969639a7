package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	LLM        LLMConfig
	Search     SearchConfig
	Email      EmailConfig
	Redis      RedisConfig
	Log        LogConfig
	RateLimit  RateLimitConfig
	Newsletter NewsletterConfig
	Scheduler  SchedulerConfig
	Ops        OpsConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

// CacheConfig selects the generation cache store.
type CacheConfig struct {
	Backend    string // postgres or sqlite
	SQLitePath string
	DaysToKeep int
	// Timezone defines day boundaries for cache buckets.
	Timezone string
	// RedisEnabled puts the redis hot layer in front of the store.
	RedisEnabled bool
}

// LLMConfig holds credentials and models for the OpenAI-compatible backends.
// A provider without an API key is not registered.
type LLMConfig struct {
	Providers        []string // registration order
	DefaultProvider  string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	GroqAPIKey       string
	GroqModel        string
	GroqBaseURL      string
	DeepSeekAPIKey   string
	DeepSeekModel    string
	DeepSeekBaseURL  string
	CallTimeout      time.Duration
	CandidateTimeout time.Duration
	LookbackDays     int
}

type SearchConfig struct {
	// Backend is the preferred search backend; empty picks the first one configured.
	Backend      string
	TavilyAPIKey string
	TavilyURL    string
	SerpAPIKey   string
	SerpAPIURL   string
	CallTimeout  time.Duration
	// DefaultsFile optionally overrides the built-in search defaults.
	DefaultsFile string
}

type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type RateLimitConfig struct {
	Enabled               bool
	DefaultCallsPerMinute int
	OpenAICallsPerMinute  int
	GroqCallsPerMinute    int
	DeepSeekCallsPerMin   int
	TavilyCallsPerMinute  int
	SerpAPICallsPerMinute int
	BurstMultiplier       float64
	Window                time.Duration
	KeyPrefix             string
}

type NewsletterConfig struct {
	DaysInterval int
	Workers      int
	SendDelay    time.Duration
}

type SchedulerConfig struct {
	Enabled          bool
	DeliveryInterval time.Duration
	SweepInterval    time.Duration
	JobTimeout       time.Duration
}

type OpsConfig struct {
	JWTSecret string
	Issuer    string
	TokenTTL  time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 5*time.Minute),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "updateme"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		Cache: CacheConfig{
			Backend:      strings.ToLower(getEnv("CACHE_BACKEND", "postgres")),
			SQLitePath:   getEnv("CACHE_SQLITE_PATH", "updateme-cache.db"),
			DaysToKeep:   getIntEnv("CACHE_DAYS_TO_KEEP", 7),
			Timezone:     getEnv("CACHE_TIMEZONE", "UTC"),
			RedisEnabled: getBoolEnv("CACHE_REDIS_ENABLED", true),
		},
		LLM: LLMConfig{
			Providers:        getListEnv("LLM_PROVIDERS", []string{"groq", "openai", "deepseek"}),
			DefaultProvider:  getEnv("LLM_DEFAULT_PROVIDER", "groq"),
			OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
			OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
			GroqAPIKey:       getEnv("GROQ_API_KEY", ""),
			GroqModel:        getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
			GroqBaseURL:      getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			DeepSeekAPIKey:   getEnv("DEEPSEEK_API_KEY", ""),
			DeepSeekModel:    getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			DeepSeekBaseURL:  getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com"),
			CallTimeout:      getDurationEnv("LLM_CALL_TIMEOUT", 60*time.Second),
			CandidateTimeout: getDurationEnv("PROVIDER_CANDIDATE_TIMEOUT", 2*time.Minute),
			LookbackDays:     getIntEnv("HISTORY_LOOKBACK_DAYS", 3),
		},
		Search: SearchConfig{
			Backend:      strings.ToLower(getEnv("SEARCH_BACKEND", "")),
			TavilyAPIKey: getEnv("TAVILY_API_KEY", ""),
			TavilyURL:    getEnv("TAVILY_URL", "https://api.tavily.com/search"),
			SerpAPIKey:   getEnv("SERPAPI_API_KEY", ""),
			SerpAPIURL:   getEnv("SERPAPI_URL", "https://serpapi.com/search.json"),
			CallTimeout:  getDurationEnv("SEARCH_CALL_TIMEOUT", 30*time.Second),
			DefaultsFile: getEnv("SEARCH_DEFAULTS_FILE", ""),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@updateme.dev"),
			FromName:       getEnv("FROM_NAME", "UpdateMe"),
		},
		Redis: RedisConfig{
			Enabled:      getBoolEnv("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getBoolEnv("RATE_LIMIT_ENABLED", true),
			DefaultCallsPerMinute: getIntEnv("RATE_LIMIT_CPM", 60),
			OpenAICallsPerMinute:  getIntEnv("RATE_LIMIT_OPENAI_CPM", 0),
			GroqCallsPerMinute:    getIntEnv("RATE_LIMIT_GROQ_CPM", 30),
			DeepSeekCallsPerMin:   getIntEnv("RATE_LIMIT_DEEPSEEK_CPM", 0),
			TavilyCallsPerMinute:  getIntEnv("RATE_LIMIT_TAVILY_CPM", 0),
			SerpAPICallsPerMinute: getIntEnv("RATE_LIMIT_SERPAPI_CPM", 0),
			BurstMultiplier:       getFloatEnv("RATE_LIMIT_BURST", 1.0),
			Window:                getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:             getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:provider"),
		},
		Newsletter: NewsletterConfig{
			DaysInterval: getIntEnv("NEWSLETTER_DAYS_INTERVAL", 6),
			Workers:      getIntEnv("NEWSLETTER_WORKERS", 4),
			SendDelay:    getDurationEnv("NEWSLETTER_SEND_DELAY", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getBoolEnv("SCHEDULER_ENABLED", true),
			DeliveryInterval: getDurationEnv("SCHEDULER_DELIVERY_INTERVAL", time.Hour),
			SweepInterval:    getDurationEnv("SCHEDULER_SWEEP_INTERVAL", 24*time.Hour),
			JobTimeout:       getDurationEnv("SCHEDULER_JOB_TIMEOUT", time.Hour),
		},
		Ops: OpsConfig{
			JWTSecret: getEnv("OPS_JWT_SECRET", ""),
			Issuer:    getEnv("OPS_JWT_ISSUER", "updateme"),
			TokenTTL:  getDurationEnv("OPS_TOKEN_TTL", time.Hour),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if cfg.Cache.Backend != "postgres" && cfg.Cache.Backend != "sqlite" {
		return nil, fmt.Errorf("unsupported CACHE_BACKEND %q", cfg.Cache.Backend)
	}
	if _, err := time.LoadLocation(cfg.Cache.Timezone); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TIMEZONE %q: %w", cfg.Cache.Timezone, err)
	}

	return cfg, nil
}

// ProviderLimits returns the per-provider overrides keyed by provider or backend name.
func (c RateLimitConfig) ProviderLimits() map[string]int {
	return map[string]int{
		"openai":   c.OpenAICallsPerMinute,
		"groq":     c.GroqCallsPerMinute,
		"deepseek": c.DeepSeekCallsPerMin,
		"tavily":   c.TavilyCallsPerMinute,
		"serpapi":  c.SerpAPICallsPerMinute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
