// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

const meterName = "github.com/linuxfoundation/lfx-v2-attendance-service/internal/service"

// RunLoopConfig bounds one chunked run.
type RunLoopConfig struct {
	MaxDays          int
	MaxExecutionTime time.Duration
	DayPause         time.Duration
}

// DefaultRunLoopConfig returns the production limits.
func DefaultRunLoopConfig() RunLoopConfig {
	return RunLoopConfig{
		MaxDays:          constants.DefaultMaxDaysPerRun,
		MaxExecutionTime: constants.DefaultMaxExecutionTime,
		DayPause:         constants.DefaultDayPause,
	}
}

type runLoopMetrics struct {
	daysProcessed metric.Int64Counter
	daysSkipped   metric.Int64Counter
	absent        metric.Int64Counter
}

// ChunkedRunLoop drives a DailyIngestionCursor within day and time budgets.
type ChunkedRunLoop struct {
	Cursor  *DailyIngestionCursor
	Config  RunLoopConfig
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	metrics runLoopMetrics
}

// NewChunkedRunLoop creates a new ChunkedRunLoop. Zero config values fall back
// to the defaults; a negative DayPause disables the pause.
func NewChunkedRunLoop(cursor *DailyIngestionCursor, config RunLoopConfig) *ChunkedRunLoop {
	defaults := DefaultRunLoopConfig()
	if config.MaxDays <= 0 {
		config.MaxDays = defaults.MaxDays
	}
	if config.MaxExecutionTime <= 0 {
		config.MaxExecutionTime = defaults.MaxExecutionTime
	}
	switch {
	case config.DayPause == 0:
		config.DayPause = defaults.DayPause
	case config.DayPause < 0:
		config.DayPause = 0
	}

	return &ChunkedRunLoop{
		Cursor:  cursor,
		Config:  config,
		now:     time.Now,
		sleep:   sleepContext,
		metrics: newRunLoopMetrics(),
	}
}

func newRunLoopMetrics() runLoopMetrics {
	meter := otel.Meter(meterName)
	m := runLoopMetrics{}
	var err error
	if m.daysProcessed, err = meter.Int64Counter("attendance.days.processed",
		metric.WithDescription("Days reconciled and committed by the run loop")); err != nil {
		slog.Warn("failed to create metric", logging.ErrKey, err)
	}
	if m.daysSkipped, err = meter.Int64Counter("attendance.days.skipped",
		metric.WithDescription("Days force-advanced after a recoverable error")); err != nil {
		slog.Warn("failed to create metric", logging.ErrKey, err)
	}
	if m.absent, err = meter.Int64Counter("attendance.absent.backfilled",
		metric.WithDescription("Absent entries created for roster members without data")); err != nil {
		slog.Warn("failed to create metric", logging.ErrKey, err)
	}
	return m
}

func (m runLoopMetrics) add(ctx context.Context, counter metric.Int64Counter, n int, installationID string) {
	if counter == nil || n == 0 {
		return
	}
	counter.Add(ctx, int64(n), metric.WithAttributes(attribute.String("installation_id", installationID)))
}

// Run processes days of the installation until a budget is spent, the cursor
// reaches today, or the schedule is exhausted. A recoverable day failure skips
// the day; any other failure ends the run with the error and the cursor on the
// last committed day.
func (l *ChunkedRunLoop) Run(ctx context.Context, installationID string) (models.RunSummary, error) {
	summary := models.RunSummary{InstallationID: installationID}
	ctx = logging.AppendCtx(ctx, slog.String("installation_id", installationID))

	started := l.now()

	days := 0
	for {
		if days >= l.Config.MaxDays {
			summary.StopReason = models.StopMaxDays
			break
		}
		if l.now().Sub(started) >= l.Config.MaxExecutionTime {
			summary.StopReason = models.StopTimeBudget
			break
		}
		if ctx.Err() != nil {
			summary.StopReason = models.StopCancelled
			break
		}

		if days > 0 && l.Config.DayPause > 0 {
			if err := l.sleep(ctx, l.Config.DayPause); err != nil {
				summary.StopReason = models.StopCancelled
				break
			}
		}

		result, err := l.Cursor.Process(ctx, installationID)
		if err != nil {
			if !domain.IsRecoverable(err) || result.Date.IsZero() {
				slog.ErrorContext(ctx, "run aborted on non-recoverable error",
					logging.ErrKey, err,
					"error_type", domain.GetErrorType(err).String(),
					"days_processed", summary.DaysProcessed,
				)
				l.finish(ctx, &summary, started)
				return summary, err
			}
			if advanceErr := l.Cursor.ForceAdvance(ctx, installationID, result.Date, err); advanceErr != nil {
				l.finish(ctx, &summary, started)
				return summary, advanceErr
			}
			days++
			summary.DaysSkipped++
			summary.LastDate = result.Date
			l.metrics.add(ctx, l.metrics.daysSkipped, 1, installationID)
			continue
		}

		if result.CaughtUp {
			summary.StopReason = models.StopCaughtUp
			break
		}
		if result.NoMoreData {
			summary.StopReason = models.StopNoMoreData
			break
		}

		days++
		summary.DaysProcessed++
		summary.AbsentCount += result.AbsentCount
		summary.LastDate = result.Date
		l.metrics.add(ctx, l.metrics.daysProcessed, 1, installationID)
		l.metrics.add(ctx, l.metrics.absent, result.AbsentCount, installationID)
	}

	l.finish(ctx, &summary, started)
	return summary, nil
}

func (l *ChunkedRunLoop) finish(ctx context.Context, summary *models.RunSummary, started time.Time) {
	summary.Elapsed = l.now().Sub(started)
	slog.InfoContext(ctx, "run finished",
		"stop_reason", summary.StopReason,
		"days_processed", summary.DaysProcessed,
		"days_skipped", summary.DaysSkipped,
		"absent", summary.AbsentCount,
		"elapsed", summary.Elapsed,
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
