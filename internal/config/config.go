package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment names recognised by Config.Env.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// DefaultJWTSecret is used when JWT_SECRET is unset. Production refuses it.
const DefaultJWTSecret = "fallback-secret-key-for-dev-only"

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// RateLimit describes one sliding-window budget.
type RateLimit struct {
	Max    int
	Window time.Duration
}

// Config holds application configuration
type Config struct {
	// Server
	Env        string
	Port       string
	CORSOrigin string

	// Database
	DBDriver      string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBPath        string
	MigrationsDir string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Cache
	CacheDriver     string
	CacheMaxEntries int
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	RedisDB         int

	// Messaging
	AMQPURL      string
	AMQPExchange string

	// Domain rules
	EnforceCategoryTypeMatch bool
	AllowAdminSignup         bool

	// Rate limits
	AuthRateLimit        RateLimit
	TransactionRateLimit RateLimit
	AnalyticsRateLimit   RateLimit
	GeneralRateLimit     RateLimit
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if present; real environment variables win.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Env:        getEnv("ENV", EnvDevelopment),
		Port:       getEnv("PORT", "5000"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		// Database
		DBDriver:      getEnv("DB_DRIVER", "postgres"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "fintrack"),
		DBPassword:    getEnv("DB_PASSWORD", "fintrack"),
		DBName:        getEnv("DB_NAME", "fintrack"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		DBPath:        getEnv("DB_PATH", "fintrack.db"),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),

		// JWT
		JWTSecret:        getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTExpirationDur: getDuration("JWT_EXPIRES_IN", 24*time.Hour),

		// Cache
		CacheMaxEntries: getInt("CACHE_MAX_ENTRIES", 10000),
		RedisHost:       getEnv("REDIS_HOST", ""),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getInt("REDIS_DB", 0),

		// Messaging
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack.events"),

		// Domain rules
		EnforceCategoryTypeMatch: getBool("ENFORCE_CATEGORY_TYPE_MATCH", false),
		AllowAdminSignup:         getBool("ALLOW_ADMIN_SIGNUP", false),

		// Rate limits
		AuthRateLimit:        getRateLimit("RATE_LIMIT_AUTH", 5, 15*time.Minute),
		TransactionRateLimit: getRateLimit("RATE_LIMIT_TRANSACTIONS", 100, time.Hour),
		AnalyticsRateLimit:   getRateLimit("RATE_LIMIT_ANALYTICS", 50, time.Hour),
		GeneralRateLimit:     getRateLimit("RATE_LIMIT_GENERAL", 200, 15*time.Minute),
	}

	// Redis is used by default as soon as a host is configured.
	defaultCache := CacheNone
	if config.RedisHost != "" {
		defaultCache = CacheRedis
	}
	config.CacheDriver = getEnv("CACHE_DRIVER", defaultCache)
	switch config.CacheDriver {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		log.Printf("Warning: unknown CACHE_DRIVER '%s', falling back to %s\n", config.CacheDriver, defaultCache)
		config.CacheDriver = defaultCache
	}

	return config, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %t\n", key, raw, defaultValue)
		return defaultValue
	}
	return b
}

// getRateLimit reads KEY (max requests) and KEY_WINDOW (duration).
func getRateLimit(key string, defaultMax int, defaultWindow time.Duration) RateLimit {
	limit := RateLimit{
		Max:    getInt(key, defaultMax),
		Window: getDuration(key+"_WINDOW", defaultWindow),
	}
	if limit.Max == 0 {
		limit.Max = defaultMax
	}
	return limit
}
