// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("ZOOM_ACCOUNT_ID", "account")
	t.Setenv("ZOOM_CLIENT_ID", "client")
	t.Setenv("ZOOM_CLIENT_SECRET", "secret")
}

func TestParseEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	env, err := parseEnv()
	require.NoError(t, err)
	require.NoError(t, env.validate())

	assert.Equal(t, "nats://localhost:4222", env.NatsURL)
	assert.Equal(t, "localhost:6379", env.RedisAddr)
	assert.Equal(t, 90, env.MaxDaysPerRun)
	assert.Equal(t, 50*time.Minute, env.MaxExecutionTime)
	assert.Equal(t, 100*time.Millisecond, env.DayPause)
	assert.Equal(t, 15, env.IrregularMinDuration)
	assert.Equal(t, 5, env.IrregularMinParticipants)
	assert.Equal(t, 4, env.WorkerConcurrency)
	assert.Equal(t, "0 1 * * *", env.ScheduleCron)
	assert.Empty(t, env.TeacherRoles)
}

func TestParseEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_DAYS_PER_RUN", "30")
	t.Setenv("MAX_EXECUTION_TIME", "600")
	t.Setenv("DAY_PAUSE", "250ms")
	t.Setenv("TEACHER_ROLES", "teacher, ,tutor")
	t.Setenv("REDIS_DB", "2")

	env, err := parseEnv()
	require.NoError(t, err)

	assert.Equal(t, 30, env.MaxDaysPerRun)
	assert.Equal(t, 10*time.Minute, env.MaxExecutionTime)
	assert.Equal(t, 250*time.Millisecond, env.DayPause)
	assert.Equal(t, []string{"teacher", "tutor"}, env.TeacherRoles)
	assert.Equal(t, 2, env.RedisDB)
}

func TestParseEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "non numeric day limit", key: "MAX_DAYS_PER_RUN", val: "many"},
		{name: "bad duration", key: "MAX_EXECUTION_TIME", val: "soon"},
		{name: "non numeric redis db", key: "REDIS_DB", val: "first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := parseEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestEnvironmentValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*environment)
		wantErr     bool
		schedulerOK bool
	}{
		{name: "valid", mutate: func(*environment) {}, schedulerOK: true},
		{name: "missing mongo", mutate: func(e *environment) { e.MongoURI = "" }, wantErr: true, schedulerOK: true},
		{name: "missing zoom secret", mutate: func(e *environment) { e.ZoomConfig.ClientSecret = "" }, wantErr: true, schedulerOK: true},
		{name: "zero day limit", mutate: func(e *environment) { e.MaxDaysPerRun = 0 }, wantErr: true, schedulerOK: true},
		{name: "bad redis address", mutate: func(e *environment) { e.RedisAddr = "redis" }, wantErr: true},
		{name: "empty cron", mutate: func(e *environment) { e.ScheduleCron = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			env, err := parseEnv()
			require.NoError(t, err)
			tt.mutate(&env)

			if tt.wantErr {
				assert.Error(t, env.validate())
			} else {
				assert.NoError(t, env.validate())
			}
			if tt.schedulerOK {
				assert.NoError(t, env.validateScheduler())
			} else {
				assert.Error(t, env.validateScheduler())
			}
		})
	}
}
