package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	RateLimitKeyIP    = "ip"
	RateLimitKeyRoute = "route"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Config holds application configuration loaded from environment variables
// Provide sane defaults for local development.
type Config struct {
	AppName    string
	AppVersion string
	Env        string // development, staging, production
	Port       string
	GinMode    string

	// Storage
	StorageDriver string // postgres, memory

	// Database
	DatabaseURL   string
	DBMaxConns    int32
	DBMinConns    int32
	DBMaxConnLife time.Duration
	DBAutoMigrate bool

	// Redis (optional; empty address disables cache and rate limiting)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	UserCacheTTL  time.Duration

	// Requests per minute per client on /users routes, 0 disables
	RateLimitPerMinute int
	// Bucket per client IP ("ip") or per client IP and matched route ("route")
	RateLimitKey string

	// CORS
	CORSAllowedOrigins string // comma-separated, empty or "*" allows all

	// Elasticsearch (optional)
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESUsersIndex       string
	ESRequestTimeout   time.Duration
	ESMaxRetries       int

	// RabbitMQ (optional)
	RabbitMQURL             string
	RabbitMQUserEventsQueue string
	RabbitMQPrefetch        int

	// Redirect plain-http requests to https (honours X-Forwarded-Proto)
	SSLRedirect bool

	// Indented JSON responses for every request, not only ?pretty ones
	PrettyJSON bool

	// HTTP access log toggle
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

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		AppName:    getenv("APP_NAME", "users-api"),
		AppVersion: getenv("APP_VERSION", "1.0.0"),
		Env:        getenv("APP_ENV", "development"),
		Port:       getenv("PORT", "8080"),
		GinMode:    getenv("GIN_MODE", "release"),

		StorageDriver: strings.ToLower(getenv("STORAGE_DRIVER", StorageDriverPostgres)),

		DatabaseURL:   getenv("DATABASE_URL", ""),
		DBMaxConns:    int32(getint("DB_MAX_CONNS", 10)),
		DBMinConns:    int32(getint("DB_MIN_CONNS", 2)),
		DBMaxConnLife: getdur("DB_MAX_CONN_LIFETIME", time.Hour),
		DBAutoMigrate: getbool("DB_AUTO_MIGRATE", false),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),
		UserCacheTTL:  getdur("USER_CACHE_TTL", 5*time.Minute),

		RateLimitPerMinute: getint("RATE_LIMIT_PER_MINUTE", 0),
		RateLimitKey:       strings.ToLower(getenv("RATE_LIMIT_KEY", RateLimitKeyIP)),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", ""),

		ElasticsearchAddrs: getenv("ELASTICSEARCH_ADDRS", ""),
		ElasticsearchUser:  getenv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPass:  getenv("ELASTICSEARCH_PASSWORD", ""),
		ESUsersIndex:       getenv("ES_USERS_INDEX", "users"),
		ESRequestTimeout:   getdur("ES_REQUEST_TIMEOUT", 3*time.Second),
		ESMaxRetries:       getint("ES_MAX_RETRIES", 3),

		RabbitMQURL:             getenv("RABBITMQ_URL", ""),
		RabbitMQUserEventsQueue: getenv("RABBITMQ_USER_EVENTS_QUEUE", "user_events"),
		RabbitMQPrefetch:        getint("RABBITMQ_PREFETCH", 16),

		SSLRedirect: getbool("SSL_REDIRECT", false),

		PrettyJSON: getbool("PRETTY_JSON", false),

		HTTPLogEnabled: getbool("HTTP_LOG_ENABLED", true),
	}
}

// Validate reports configuration that the server cannot start without.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return ErrMissingDatabaseURL
		}
	case StorageDriverMemory:
	default:
		return errors.New("unsupported STORAGE_DRIVER: " + c.StorageDriver)
	}
	switch c.RateLimitKey {
	case "", RateLimitKeyIP, RateLimitKeyRoute:
	default:
		return errors.New("unsupported RATE_LIMIT_KEY: " + c.RateLimitKey)
	}
	return nil
}

// CORSOrigins returns the allowed origins as slice.
// An empty result means every origin is allowed.
func (c *Config) CORSOrigins() []string {
	res := splitList(c.CORSAllowedOrigins)
	for _, o := range res {
		if o == "*" {
			return nil
		}
	}
	return res
}

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string {
	return splitList(c.ElasticsearchAddrs)
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
