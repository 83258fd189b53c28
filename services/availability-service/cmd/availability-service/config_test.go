package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"SERVICE_NAME", "PORT", "GRPC_PORT", "HOLD_TTL", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "ENGINE_STAFF_CONCURRENCY", "MIGRATE_ON_START"} {
		t.Setenv(key, "")
	}
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/slots")
	t.Setenv("JWT_SECRET", "s")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "availability-service", cfg.Service)
	assert.Equal(t, "8085", cfg.Port)
	assert.Equal(t, "9095", cfg.GRPCPort)
	assert.Equal(t, 15*time.Minute, cfg.HoldTTL)
	assert.Equal(t, 20.0, cfg.RateLimitRPS)
	assert.Equal(t, 40, cfg.RateLimitBurst)
	assert.Equal(t, 8, cfg.StaffConcurrency)
	assert.False(t, cfg.MigrateOnStart)
}

func TestLoadConfigCollectsErrors(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("RATE_LIMIT_RPS", "fast")
	t.Setenv("HOLD_TTL", "soon")

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPS")
	assert.Contains(t, err.Error(), "HOLD_TTL")
}
