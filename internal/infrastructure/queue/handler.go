// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// InstallationRunner runs the reconciliation of one installation.
type InstallationRunner interface {
	RunInstallation(ctx context.Context, installationID string) (*models.RunSummary, error)
}

// InstallationLister lists the installations to fan out to.
type InstallationLister interface {
	ListInstallations(ctx context.Context) ([]*models.Installation, error)
}

// ReconcileEnqueuer queues per-installation runs.
type ReconcileEnqueuer interface {
	EnqueueReconcileInstallation(ctx context.Context, installationID string) (bool, error)
}

// Handlers processes attendance tasks on a worker.
type Handlers struct {
	Runner        InstallationRunner
	Installations InstallationLister
	Queue         ReconcileEnqueuer
}

// NewServeMux registers the handlers on a new asynq.ServeMux.
func NewServeMux(h *Handlers) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeReconcileAll, h.HandleReconcileAll)
	mux.HandleFunc(TypeReconcileInstallation, h.HandleReconcileInstallation)
	return mux
}

// HandleReconcileAll enqueues one reconcile task per installation.
func (h *Handlers) HandleReconcileAll(ctx context.Context, _ *asynq.Task) error {
	installations, err := h.Installations.ListInstallations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list installations: %w", err)
	}

	queued := 0
	for _, installation := range installations {
		ok, err := h.Queue.EnqueueReconcileInstallation(ctx, installation.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to enqueue installation run",
				"installation_id", installation.ID,
				logging.ErrKey, err,
			)
			continue
		}
		if ok {
			queued++
		}
	}

	slog.InfoContext(ctx, "fanned out reconcile tasks",
		"installations", len(installations),
		"queued", queued,
	)
	return nil
}

// HandleReconcileInstallation runs one installation. Configuration errors are
// not retried since a retry cannot fix them.
func (h *Handlers) HandleReconcileInstallation(ctx context.Context, t *asynq.Task) error {
	payload, err := parseReconcileInstallation(t)
	if err != nil {
		return err
	}
	ctx = logging.AppendCtx(ctx, slog.String("installation_id", payload.InstallationID))

	summary, err := h.Runner.RunInstallation(ctx, payload.InstallationID)
	if err != nil {
		switch domain.GetErrorType(err) {
		case domain.ErrorTypeConfigMissing, domain.ErrorTypeNotFound, domain.ErrorTypeValidation:
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	slog.InfoContext(ctx, "reconcile task finished",
		"days_processed", summary.DaysProcessed,
		"days_skipped", summary.DaysSkipped,
		"stop_reason", summary.StopReason,
	)
	return nil
}
