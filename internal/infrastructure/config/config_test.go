package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "hrms-backend", cfg.App.Name)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)

	assert.Equal(t, "Asia/Kolkata", cfg.Credit.ReferenceTimezone)
	assert.Equal(t, 5*time.Minute, cfg.Credit.CheckCacheTTL)
	assert.Equal(t, time.Minute, cfg.Credit.PollInterval)
	assert.Equal(t, time.Hour, cfg.Credit.HourlyInterval)
	assert.Equal(t, 5*time.Minute, cfg.Credit.MidnightWindow)
	assert.Equal(t, 5, cfg.Credit.LowCreditThreshold)
	assert.True(t, cfg.Credit.SchedulerEnabled)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HRMS_CREDIT_REFERENCE_TIMEZONE", "UTC")
	t.Setenv("HRMS_CREDIT_LOW_CREDIT_THRESHOLD", "10")
	t.Setenv("HRMS_DATABASE_PASSWORD", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.Credit.ReferenceTimezone)
	assert.Equal(t, 10, cfg.Credit.LowCreditThreshold)
	assert.Equal(t, "hunter2", cfg.Database.Password)
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("HRMS_CREDIT_REFERENCE_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "hrms",
		Password: "p@ss/word",
		DBName:   "hrms",
		SSLMode:  "require",
	}

	dsn := d.DSN()

	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5433")
	assert.Contains(t, dsn, "sslmode=require")
	// Password must be URL-escaped
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisAddr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}
