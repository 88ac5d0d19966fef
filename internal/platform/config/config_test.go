package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"STORE_DRIVER", "PAYROLL_LOCK_TTL", "PAYROLL_GENERATE_RATE_LIMIT", "MAX_BODY_BYTES", "APP_ENV"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 2*time.Minute, cfg.PayrollLockTTL)
	assert.Equal(t, 30, cfg.GenerateRateLimit)
	assert.Equal(t, int64(1048576), cfg.MaxBodyBytes)
	assert.False(t, cfg.IsProduction())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/payroll.db")
	t.Setenv("PAYROLL_LOCK_TTL", "45s")
	t.Setenv("PAYROLL_AUTO_GENERATE_INTERVAL", "1h")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("METRICS_ENABLED", "not-a-bool")

	cfg := Load()
	assert.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "/tmp/payroll.db", cfg.SQLitePath)
	assert.Equal(t, 45*time.Second, cfg.PayrollLockTTL)
	assert.Equal(t, time.Hour, cfg.AutoGenerateInterval)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.True(t, cfg.MetricsEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := Config{StoreDriver: StoreDriverMemory, MaxBodyBytes: 4096, PayrollLockTTL: time.Minute}
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Config){
		"postgres without url": func(c *Config) { c.StoreDriver = StoreDriverPostgres },
		"sqlite without path":  func(c *Config) { c.StoreDriver = StoreDriverSQLite },
		"unknown driver":       func(c *Config) { c.StoreDriver = "mongo" },
		"memory in production": func(c *Config) { c.Environment = "production" },
		"tiny body limit":      func(c *Config) { c.MaxBodyBytes = 10 },
		"zero lock ttl":        func(c *Config) { c.PayrollLockTTL = 0 },
		"negative interval":    func(c *Config) { c.AutoGenerateInterval = -time.Second },
		"negative rate limit":  func(c *Config) { c.GenerateRateLimit = -1 },
		"negative redis db":    func(c *Config) { c.RedisDB = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("HROPS_TEST_DOTENV=from-file\nAPP_ADDR=:9999\n"), 0o600))
	t.Setenv("HROPS_TEST_DOTENV", "")
	os.Unsetenv("HROPS_TEST_DOTENV")
	t.Setenv("APP_ADDR", ":7000")

	require.NoError(t, LoadDotEnv(file, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("HROPS_TEST_DOTENV"))
	assert.Equal(t, ":7000", os.Getenv("APP_ADDR"))
}
