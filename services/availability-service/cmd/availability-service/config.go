package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/slotwise/slotwise/libs/config"
)

type serviceConfig struct {
	Service          string
	Port             string
	GRPCPort         string
	DatabaseURL      string
	DBMaxConns       int
	MigrateOnStart   bool
	RedisAddr        string
	HoldTTL          time.Duration
	KafkaBrokers     string
	OutboxPollEvery  time.Duration
	RateLimitRPS     float64
	RateLimitBurst   int
	JWTSecret        string
	StaffConcurrency int
	CORSOrigins      []string
}

func loadConfig() (serviceConfig, error) {
	cfg := serviceConfig{
		Service:        config.String("SERVICE_NAME", "availability-service"),
		RedisAddr:      config.String("REDIS_ADDR", ""),
		KafkaBrokers:   config.String("KAFKA_BROKERS", ""),
		MigrateOnStart: config.Bool("MIGRATE_ON_START", false),
		JWTSecret:      config.String("JWT_SECRET", ""),
		CORSOrigins:    config.List("CORS_ALLOWED_ORIGINS"),
	}
	var errs []error
	var err error

	if cfg.Port, err = config.Port("PORT", "8085"); err != nil {
		errs = append(errs, err)
	}
	if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9095"); err != nil {
		errs = append(errs, err)
	}
	if cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL"); err != nil {
		errs = append(errs, err)
	}
	if cfg.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.HoldTTL, err = config.Duration("HOLD_TTL", 15*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.OutboxPollEvery, err = config.Duration("OUTBOX_POLL_EVERY", 2*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.RateLimitBurst, err = config.Int("RATE_LIMIT_BURST", 40); err != nil {
		errs = append(errs, err)
	}
	if cfg.StaffConcurrency, err = config.Int("ENGINE_STAFF_CONCURRENCY", 8); err != nil {
		errs = append(errs, err)
	}
	rps, err := strconv.ParseFloat(config.String("RATE_LIMIT_RPS", "20"), 64)
	if err != nil || rps <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be a positive number"))
	}
	cfg.RateLimitRPS = rps
	if cfg.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required for the admin calendar"))
	}
	return cfg, errors.Join(errs...)
}
