// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/queue"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// environment are the environment variables for the attendance reconciler.
type environment struct {
	NatsURL       string `validate:"required"`
	MongoURI      string `validate:"required"`
	MongoDatabase string `validate:"required"`
	TeacherRoles  []string

	RedisAddr     string `validate:"required,hostname_port"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	ZoomConfig zoomConfig

	MaxDaysPerRun            int           `validate:"gte=1"`
	MaxExecutionTime         time.Duration `validate:"gt=0"`
	DayPause                 time.Duration `validate:"gte=0"`
	IrregularMinDuration     int           `validate:"gte=1"`
	IrregularMinParticipants int           `validate:"gte=1"`
	WorkerConcurrency        int           `validate:"gte=1"`
	ScheduleCron             string        `validate:"required"`
}

// zoomConfig holds the Zoom Server-to-Server OAuth credentials.
type zoomConfig struct {
	AccountID    string `validate:"required"`
	ClientID     string `validate:"required"`
	ClientSecret string `validate:"required"`
}

// loadDotEnv loads a .env file from the working directory when one exists.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.With(logging.ErrKey, err).Warn("error loading .env file")
	}
}

// parseEnv parses environment variables for the attendance reconciler
func parseEnv() (environment, error) {
	var errs []error

	env := environment{
		NatsURL:       envOr("NATS_URL", "nats://localhost:4222"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDatabase: envOr("MONGO_DATABASE", "lms"),
		TeacherRoles:  envList("TEACHER_ROLES"),
		RedisAddr:     envOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		ZoomConfig: zoomConfig{
			AccountID:    os.Getenv("ZOOM_ACCOUNT_ID"),
			ClientID:     os.Getenv("ZOOM_CLIENT_ID"),
			ClientSecret: os.Getenv("ZOOM_CLIENT_SECRET"),
		},
		ScheduleCron: envOr("SCHEDULE_CRON", queue.DefaultScheduleCron),
	}

	env.RedisDB = envInt("REDIS_DB", 0, &errs)
	env.MaxDaysPerRun = envInt("MAX_DAYS_PER_RUN", constants.DefaultMaxDaysPerRun, &errs)
	env.MaxExecutionTime = envDuration("MAX_EXECUTION_TIME", constants.DefaultMaxExecutionTime, &errs)
	env.DayPause = envDuration("DAY_PAUSE", constants.DefaultDayPause, &errs)
	env.IrregularMinDuration = envInt("IRREGULAR_MIN_DURATION", constants.DefaultIrregularMinDurationMinutes, &errs)
	env.IrregularMinParticipants = envInt("IRREGULAR_MIN_PARTICIPANTS", constants.DefaultIrregularMinParticipants, &errs)
	env.WorkerConcurrency = envInt("WORKER_CONCURRENCY", 4, &errs)

	return env, errors.Join(errs...)
}

// validate checks the settings needed by the reconciliation commands.
func (e environment) validate() error {
	if err := validator.New().Struct(e); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// validateScheduler checks only the settings the scheduler uses.
func (e environment) validateScheduler() error {
	if err := validator.New().StructPartial(e, "RedisAddr", "RedisDB", "ScheduleCron"); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envList splits a comma separated variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envInt(key string, fallback int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return value
}

// envDuration accepts a Go duration ("50m") or a bare number of seconds.
func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return value
}
