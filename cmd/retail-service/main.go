package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/app"
)

const (
	envHTTPAddr            = "RETAIL_HTTP_ADDR"
	envGRPCAddr            = "RETAIL_GRPC_ADDR"
	envMetricsAddr         = "RETAIL_METRICS_ADDR"
	envStorageDriver       = "RETAIL_STORAGE_DRIVER"
	envPostgresDSN         = "RETAIL_POSTGRES_DSN"
	envPostgresAutoMigrate = "RETAIL_POSTGRES_AUTO_MIGRATE"
	envKafkaBrokers        = "RETAIL_KAFKA_BROKERS"
	envKafkaRestockGroup   = "RETAIL_KAFKA_RESTOCK_GROUP"
	envOutboxPollInterval  = "RETAIL_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "RETAIL_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "RETAIL_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "RETAIL_OUTBOX_RETRY_DELAY"
	envOutboxMaxPendingAge = "RETAIL_OUTBOX_MAX_PENDING_AGE"
	envLogLevel            = "RETAIL_LOG_LEVEL"
)

type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования для сервиса.
func setupLogger(level log.Level) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(level)
}

// readConfigFromEnv собирает конфигурацию из RETAIL_* переменных.
// Некорректные значения не применяются и возвращаются как предупреждения.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	readString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	warn := func(key, value string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
	}

	readString(envHTTPAddr, &cfg.HTTPAddr)
	readString(envGRPCAddr, &cfg.GRPCAddr)
	readString(envMetricsAddr, &cfg.MetricsAddr)
	readString(envPostgresDSN, &cfg.PostgresDSN)
	readString(envKafkaBrokers, &cfg.KafkaBrokers)
	readString(envKafkaRestockGroup, &cfg.KafkaRestockGroup)
	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}

	if v, ok := lookup(envPostgresAutoMigrate); ok && strings.TrimSpace(v) != "" {
		parsed, err := parseBool(v)
		if err != nil {
			warn(envPostgresAutoMigrate, v, err)
		} else {
			cfg.PostgresAutoMigrate = parsed
		}
	}

	positive := func(v int) bool { return v > 0 }
	for _, item := range []struct {
		key string
		dst *int
	}{
		{envOutboxBatchSize, &cfg.OutboxBatchSize},
		{envOutboxMaxAttempts, &cfg.OutboxMaxAttempts},
	} {
		if v, ok := lookup(item.key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseInt(v, positive, "must be > 0")
			if err != nil {
				warn(item.key, v, err)
				continue
			}
			*item.dst = parsed
		}
	}

	for _, item := range []struct {
		key     string
		dst     *time.Duration
		valid   func(time.Duration) bool
		message string
	}{
		{envOutboxPollInterval, &cfg.OutboxPollInterval, func(d time.Duration) bool { return d > 0 }, "must be > 0"},
		{envOutboxRetryDelay, &cfg.OutboxRetryDelay, func(d time.Duration) bool { return d >= 0 }, "must be >= 0"},
		{envOutboxMaxPendingAge, &cfg.OutboxMaxPendingAge, func(d time.Duration) bool { return d >= 0 }, "must be >= 0"},
	} {
		if v, ok := lookup(item.key); ok && strings.TrimSpace(v) != "" {
			parsed, err := parseDuration(v, item.valid, item.message)
			if err != nil {
				warn(item.key, v, err)
				continue
			}
			*item.dst = parsed
		}
	}

	return cfg, warnings
}

// readLogLevel возвращает уровень из RETAIL_LOG_LEVEL или info.
func readLogLevel(lookup envLookup) (log.Level, error) {
	v, ok := lookup(envLogLevel)
	if !ok || strings.TrimSpace(v) == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.TrimSpace(v))
	if err != nil {
		return log.InfoLevel, err
	}
	return level, nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, message string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, errors.New(message)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, message string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if !valid(value) {
		return 0, errors.New(message)
	}
	return value, nil
}

func main() {
	level, levelErr := readLogLevel(os.LookupEnv)
	setupLogger(level)
	if levelErr != nil {
		log.WithError(levelErr).Warn("invalid log level, using info")
	}
	gin.SetMode(gin.ReleaseMode)

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"kafka_enabled":  cfg.KafkaBrokers != "",
	}).Info("запускаем retail service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("retail service остановлен")
}
