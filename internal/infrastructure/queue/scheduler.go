// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package queue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultScheduleCron runs the fan-out nightly.
const DefaultScheduleCron = "0 1 * * *"

// Registrar is the subset of asynq.Scheduler used to register periodic tasks.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// RegisterSchedule registers the nightly reconcile fan-out.
func RegisterSchedule(registrar Registrar, cronspec string) (string, error) {
	if cronspec == "" {
		cronspec = DefaultScheduleCron
	}
	entryID, err := registrar.Register(cronspec, NewReconcileAllTask(),
		asynq.Queue(QueueDefault),
		asynq.Unique(30*time.Minute),
		asynq.MaxRetry(1),
	)
	if err != nil {
		return "", fmt.Errorf("failed to register schedule %q: %w", cronspec, err)
	}
	slog.Info("registered reconcile schedule", "cron", cronspec, "entry_id", entryID)
	return entryID, nil
}
