package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Addr                 string
	Environment          string
	LogLevel             string
	LogFilePath          string
	StoreDriver          string
	DatabaseURL          string
	SQLitePath           string
	RunMigrations        bool
	RunSeed              bool
	MigrationsDir        string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	PayrollLockTTL       time.Duration
	AutoGenerateInterval time.Duration
	GenerateRateLimit    int
	MaxBodyBytes         int64
	MetricsEnabled       bool
	ShutdownTimeout      time.Duration
}

// LoadDotEnv reads the given env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

func Load() Config {
	return Config{
		Addr:                 getEnv("APP_ADDR", ":8080"),
		Environment:          getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFilePath:          getEnv("LOG_FILE_PATH", ""),
		StoreDriver:          strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		SQLitePath:           getEnv("SQLITE_PATH", "hrops.db"),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:              getEnvBool("RUN_SEED", true),
		MigrationsDir:        getEnv("MIGRATIONS_DIR", "migrations"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		PayrollLockTTL:       getEnvDuration("PAYROLL_LOCK_TTL", 2*time.Minute),
		AutoGenerateInterval: getEnvDuration("PAYROLL_AUTO_GENERATE_INTERVAL", 0),
		GenerateRateLimit:    getEnvInt("PAYROLL_GENERATE_RATE_LIMIT", 30),
		MaxBodyBytes:         int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		ShutdownTimeout:      getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
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

func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	case StoreDriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	case StoreDriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER memory is not allowed in production")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of postgres, sqlite, memory")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.PayrollLockTTL <= 0 {
		return fmt.Errorf("PAYROLL_LOCK_TTL must be positive")
	}
	if c.AutoGenerateInterval < 0 {
		return fmt.Errorf("PAYROLL_AUTO_GENERATE_INTERVAL must not be negative")
	}
	if c.GenerateRateLimit < 0 {
		return fmt.Errorf("PAYROLL_GENERATE_RATE_LIMIT must not be negative")
	}
	if c.RedisDB < 0 {
		return fmt.Errorf("REDIS_DB must not be negative")
	}
	return nil
}
