// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package runner executes reconciliation runs over installations and keeps
// their processing status current.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/concurrent"
)

// Runner runs the chunked loop for installations.
type Runner struct {
	Installations domain.InstallationRepository
	Loop          *service.ChunkedRunLoop
	DataSource    domain.DataSource
	pool          *concurrent.WorkerPool
}

// NewRunner creates a new Runner. concurrency bounds how many installations
// RunAll processes at once.
func NewRunner(
	installations domain.InstallationRepository,
	loop *service.ChunkedRunLoop,
	dataSource domain.DataSource,
	concurrency int,
) *Runner {
	return &Runner{
		Installations: installations,
		Loop:          loop,
		DataSource:    dataSource,
		pool:          concurrent.NewWorkerPool(concurrency),
	}
}

// RunInstallation runs one chunk of days for the installation. Its status is
// running for the duration and ends as idle, or error when the run failed.
func (r *Runner) RunInstallation(ctx context.Context, installationID string) (*models.RunSummary, error) {
	ctx = logging.AppendCtx(ctx, slog.String("installation_id", installationID))

	installation, err := r.setStatus(ctx, installationID, models.ProcessingStatusRunning, "")
	if err != nil {
		slog.ErrorContext(ctx, "error marking installation running", logging.ErrKey, err)
		return nil, err
	}

	// The first pending day is captured before the loop moves the cursor.
	var firstDay time.Time
	if window, err := service.NextDay(installation); err == nil {
		firstDay = window.Start
	}

	summary, runErr := r.Loop.Run(ctx, installationID)

	if runErr == nil && installation.BackupRecordings && !summary.LastDate.IsZero() && !firstDay.IsZero() {
		r.backupRecordings(ctx, installation, firstDay, summary.LastDate)
	}

	status, lastError := models.ProcessingStatusIdle, ""
	if runErr != nil {
		status, lastError = models.ProcessingStatusError, runErr.Error()
		slog.ErrorContext(ctx, "installation run failed",
			logging.ErrKey, runErr,
			"error_type", domain.GetErrorType(runErr).String(),
			logging.PriorityCritical(),
		)
	}

	// Status is written on a fresh context so a cancelled run still leaves the
	// installation out of the running state.
	statusCtx := context.WithoutCancel(ctx)
	if _, err := r.setStatus(statusCtx, installationID, status, lastError); err != nil {
		slog.ErrorContext(ctx, "error recording installation status",
			logging.ErrKey, err,
			"status", status,
		)
		if runErr == nil {
			runErr = err
		}
	}

	return &summary, runErr
}

// backupRecordings queues the recordings of the days [firstDay, lastDay].
// Failures are logged only since the attendance of those days is already committed.
func (r *Runner) backupRecordings(ctx context.Context, installation *models.Installation, firstDay, lastDay time.Time) {
	if r.DataSource == nil {
		return
	}
	loc := installation.Location()
	end := time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day()+1, 0, 0, 0, 0, loc)

	queued, err := r.DataSource.ProcessRecordings(ctx, installation, firstDay.In(loc), end)
	if err != nil {
		slog.WarnContext(ctx, "error queueing recording backups", logging.ErrKey, err)
		return
	}
	slog.InfoContext(ctx, "queued recording backups",
		"from", firstDay.Format(time.DateOnly),
		"to", lastDay.Format(time.DateOnly),
		"queued", queued,
	)
}

func (r *Runner) setStatus(ctx context.Context, installationID string, status models.ProcessingStatus, lastError string) (*models.Installation, error) {
	installation, revision, err := r.Installations.GetInstallationWithRevision(ctx, installationID)
	if err != nil {
		if domain.IsErrorType(err, domain.ErrorTypeNotFound) {
			return nil, domain.NewConfigMissingError("installation "+installationID+" not found", err)
		}
		return nil, err
	}

	if status == models.ProcessingStatusRunning && installation.ProcessingStatus == models.ProcessingStatusRunning {
		slog.WarnContext(ctx, "installation already marked running, taking over")
	}

	installation.ProcessingStatus = status
	installation.LastError = lastError
	if err := r.Installations.UpdateInstallation(ctx, installation, revision); err != nil {
		return nil, err
	}
	return installation, nil
}

// RunAll runs every installation, a bounded number at a time. Each
// installation is owned by one goroutine. The returned error joins the
// failures of all installations.
func (r *Runner) RunAll(ctx context.Context) ([]*models.RunSummary, error) {
	installations, err := r.Installations.ListInstallations(ctx)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "running installations",
		"installations", len(installations),
		"concurrency", r.pool.Size(),
	)

	summaries := make([]*models.RunSummary, len(installations))
	errs := r.pool.RunEach(ctx, len(installations), func(ctx context.Context, i int) error {
		summary, err := r.RunInstallation(ctx, installations[i].ID)
		summaries[i] = summary
		return err
	})

	var failed []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed = append(failed, err)
		if summaries[i] == nil {
			summaries[i] = &models.RunSummary{InstallationID: installations[i].ID}
		}
	}

	slog.InfoContext(ctx, "all installations run",
		"installations", len(installations),
		"failed", len(failed),
	)
	return summaries, errors.Join(failed...)
}
