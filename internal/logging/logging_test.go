// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendCtx(t *testing.T) {
	ctx := AppendCtx(context.TODO(), slog.String("installation_id", "inst-1"))

	attrs, ok := ctx.Value(slogFields).([]slog.Attr)
	require.True(t, ok)
	require.Len(t, attrs, 1)
	assert.Equal(t, "installation_id", attrs[0].Key)
	assert.Equal(t, "inst-1", attrs[0].Value.String())
}

func TestAppendCtx_SiblingsDoNotShareAttributes(t *testing.T) {
	parent := AppendCtx(context.Background(), slog.String("installation_id", "inst-1"))
	parent = AppendCtx(parent, slog.String("day", "2024-03-01"))

	left := AppendCtx(parent, slog.String("session_uid", "s-left"))
	right := AppendCtx(parent, slog.String("session_uid", "s-right"))

	leftAttrs := left.Value(slogFields).([]slog.Attr)
	rightAttrs := right.Value(slogFields).([]slog.Attr)
	require.Len(t, leftAttrs, 3)
	require.Len(t, rightAttrs, 3)
	assert.Equal(t, "s-left", leftAttrs[2].Value.String())
	assert.Equal(t, "s-right", rightAttrs[2].Value.String())
	assert.Len(t, parent.Value(slogFields).([]slog.Attr), 2)
}

func TestNewHandler_WritesContextAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := AppendCtx(context.Background(), slog.String("installation_id", "inst-1"))
	logger.With("component", "run_loop").ErrorContext(ctx, "day skipped", "day", "2024-03-01", PriorityCritical())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "day skipped", line["msg"])
	assert.Equal(t, "inst-1", line["installation_id"])
	assert.Equal(t, "run_loop", line["component"])
	assert.Equal(t, "critical", line["priority"])
}

func TestNewHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	logger.Info("not written")
	assert.Empty(t, buf.String())

	logger.Warn("written")
	assert.Contains(t, buf.String(), "written")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", logLevelDefault},
		{"verbose", logLevelDefault},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.value))
		})
	}
}

func TestInitStructureLogConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("LOG_ADD_SOURCE", "true")

	handler := InitStructureLogConfig()
	require.NotNil(t, handler)
	assert.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelInfo))
}
