// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/queue"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

func (c *cli) runCmd() *cobra.Command {
	var installationID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one chunk of reconciliation and exit",
		Long: `Run processes pending days of every installation, or of a single one
with --installation, within the configured day and time budgets.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.env.validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, c.env)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if installationID != "" {
				summary, err := a.runner.RunInstallation(ctx, installationID)
				if summary != nil {
					logSummary(summary)
				}
				return err
			}

			summaries, err := a.runner.RunAll(ctx)
			for _, summary := range summaries {
				logSummary(summary)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&installationID, "installation", "i", "", "run only this installation")
	return cmd
}

func (c *cli) workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume reconcile tasks from the queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.env.validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, c.env)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			srv := asynq.NewServer(redisClientOpt(c.env), asynq.Config{
				Concurrency:     c.env.WorkerConcurrency,
				Queues:          queue.Queues,
				Logger:          asynqLogger{logger: slog.Default().With("component", "asynq")},
				ShutdownTimeout: shutdownGracePeriod,
				ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
					slog.ErrorContext(ctx, "task failed", "task_type", task.Type(), logging.ErrKey, err)
				}),
			})
			mux := queue.NewServeMux(&queue.Handlers{
				Runner:        a.runner,
				Installations: a.repos.Installation,
				Queue:         a.queue,
			})

			if err := srv.Start(mux); err != nil {
				return fmt.Errorf("failed to start worker: %w", err)
			}
			slog.Info("worker started", "concurrency", c.env.WorkerConcurrency)

			<-ctx.Done()
			slog.Info("shutting down worker")
			srv.Shutdown()
			return nil
		},
	}
}

func (c *cli) scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Enqueue the reconcile fan-out on the configured cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.env.validateScheduler(); err != nil {
				return err
			}
			ctx := cmd.Context()

			scheduler := asynq.NewScheduler(redisClientOpt(c.env), &asynq.SchedulerOpts{
				Location: time.UTC,
				Logger:   asynqLogger{logger: slog.Default().With("component", "asynq")},
			})
			if _, err := queue.RegisterSchedule(scheduler, c.env.ScheduleCron); err != nil {
				return err
			}
			if err := scheduler.Start(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-ctx.Done()
			slog.Info("shutting down scheduler")
			scheduler.Shutdown()
			return nil
		},
	}
}

func logSummary(summary *models.RunSummary) {
	slog.Info("installation run summary",
		"installation_id", summary.InstallationID,
		"days_processed", summary.DaysProcessed,
		"days_skipped", summary.DaysSkipped,
		"absent", summary.AbsentCount,
		"stop_reason", summary.StopReason,
		"elapsed", summary.Elapsed.String(),
	)
}

// asynqLogger routes asynq's internal logging to slog.
type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...), logging.PriorityCritical())
	os.Exit(1)
}
