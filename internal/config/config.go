// Package config loads application configuration.  Values come from the
// process environment, optionally seeded from a .env file, and are read
// through viper so every key has a single documented default.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration keys.  Each maps to the upper-case environment variable
// of the same name.
const (
	KeyEnv       = "APP_ENV"
	KeyPort      = "APP_PORT"
	KeyLogLevel  = "LOG_LEVEL"
	KeyLogFormat = "LOG_FORMAT"

	KeyStoreDriver = "STORE_DRIVER"
	KeyDBUser      = "DB_USER"
	KeyDBPass      = "DB_PASS"
	KeyDBHost      = "DB_HOST"
	KeyDBPort      = "DB_PORT"
	KeyDBName      = "DB_NAME"
	KeyDatabaseURL = "DATABASE_URL"

	KeyJWTSecret = "JWT_SECRET"

	KeyMaxTickets    = "MAX_TICKETS_PER_EVENT"
	KeyCASMaxRetries = "CAS_MAX_RETRIES"
	KeyDefaultDigest = "DEFAULT_DIGEST"
	KeyLockTTL       = "LOCK_TTL"
	KeyLockWait      = "LOCK_WAIT"

	KeyRabbitURL      = "RABBITMQ_URL"
	KeyLifecycleQueue = "LIFECYCLE_QUEUE"
	KeyAuditLogPath   = "AUDIT_LOG_PATH"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all runtime configuration values.
type Config struct {
	Env       string // application environment (dev, test, prod)
	Port      string // HTTP port to listen on
	LogLevel  string // logrus level name
	LogFormat string // json or text

	StoreDriver string // mysql, postgres or memory
	DBUser      string // MySQL user
	DBPass      string // MySQL password (optional)
	DBHost      string // MySQL host
	DBPort      string // MySQL port
	DBName      string // MySQL database
	DatabaseURL string // PostgreSQL connection URL

	JWTSecret string // HS256 key for owner tokens

	MaxTicketsPerEvent int           // upper bound for one create or extend
	CASMaxRetries      int           // reload attempts after a version conflict
	DefaultDigest      string        // digest for newly created events
	LockTTL            time.Duration // expiry of a per-event lock
	LockWait           time.Duration // how long to wait for a per-event lock

	RabbitURL      string // AMQP broker URL; empty disables publishing
	LifecycleQueue string // queue receiving ticket lifecycle messages
	AuditLogPath   string // file the audit consumer appends to

	Redis     RedisConfig
	RateLimit RateLimitConfig
}

func init() {
	viper.AutomaticEnv()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyEnv, "dev")
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyStoreDriver, DriverMySQL)
	v.SetDefault(KeyDBUser, "root")
	v.SetDefault(KeyDBHost, "localhost")
	v.SetDefault(KeyDBPort, "3306")
	v.SetDefault(KeyDBName, "tickets")
	v.SetDefault(KeyMaxTickets, 100000)
	v.SetDefault(KeyCASMaxRetries, 5)
	v.SetDefault(KeyDefaultDigest, "sha256")
	v.SetDefault(KeyLockTTL, 5*time.Second)
	v.SetDefault(KeyLockWait, 2*time.Second)
	v.SetDefault(KeyLifecycleQueue, "ticket.lifecycle")
	v.SetDefault(KeyAuditLogPath, "logs/ticket-audit.log")
}

// Load reads an optional .env file, then the environment, and validates
// the result.  Variables already set in the environment win over .env.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromViper(viper.GetViper())
}

// FromViper builds a Config from v.  Split out so tests can supply
// their own viper instance instead of mutating the process environment.
func FromViper(v *viper.Viper) (Config, error) {
	setDefaults(v)
	cfg := Config{
		Env:                v.GetString(KeyEnv),
		Port:               v.GetString(KeyPort),
		LogLevel:           v.GetString(KeyLogLevel),
		LogFormat:          v.GetString(KeyLogFormat),
		StoreDriver:        strings.ToLower(v.GetString(KeyStoreDriver)),
		DBUser:             v.GetString(KeyDBUser),
		DBPass:             v.GetString(KeyDBPass),
		DBHost:             v.GetString(KeyDBHost),
		DBPort:             v.GetString(KeyDBPort),
		DBName:             v.GetString(KeyDBName),
		DatabaseURL:        v.GetString(KeyDatabaseURL),
		JWTSecret:          v.GetString(KeyJWTSecret),
		MaxTicketsPerEvent: v.GetInt(KeyMaxTickets),
		CASMaxRetries:      v.GetInt(KeyCASMaxRetries),
		DefaultDigest:      v.GetString(KeyDefaultDigest),
		LockTTL:            v.GetDuration(KeyLockTTL),
		LockWait:           v.GetDuration(KeyLockWait),
		RabbitURL:          v.GetString(KeyRabbitURL),
		LifecycleQueue:     v.GetString(KeyLifecycleQueue),
		AuditLogPath:       v.GetString(KeyAuditLogPath),
		Redis:              LoadRedisConfig(v),
		RateLimit:          LoadRateLimitConfig(v),
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMySQL:
		if c.DBHost == "" || c.DBName == "" {
			errs = append(errs, errors.New("DB_HOST and DB_NAME are required for the mysql store"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	// Only the throwaway in-memory store may run without a signing key.
	if c.JWTSecret == "" && c.StoreDriver != DriverMemory {
		errs = append(errs, fmt.Errorf("missing required env var: %s", KeyJWTSecret))
	}
	if c.MaxTicketsPerEvent < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyMaxTickets))
	}
	if c.CASMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive", KeyCASMaxRetries))
	}
	return errors.Join(errs...)
}
