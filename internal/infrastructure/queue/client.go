// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

const (
	// DefaultReconcileUniqueTTL keeps a second reconcile task for the same
	// installation out of the queue while one is pending.
	DefaultReconcileUniqueTTL = time.Hour
	// DefaultRecordingMaxRetry is the retry limit of recording backup tasks.
	DefaultRecordingMaxRetry = 5
)

// Enqueuer is the subset of asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client submits attendance tasks.
type Client struct {
	enqueuer  Enqueuer
	uniqueTTL time.Duration
}

// Ensure Client implements RecordingQueue
var _ domain.RecordingQueue = (*Client)(nil)

// NewClient creates a new queue client.
func NewClient(enqueuer Enqueuer) *Client {
	return &Client{
		enqueuer:  enqueuer,
		uniqueTTL: DefaultReconcileUniqueTTL,
	}
}

// isDuplicate reports whether asynq refused the task because it is already queued.
func isDuplicate(err error) bool {
	return errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict)
}

// EnqueueReconcileInstallation queues a run of one installation. It returns
// false when a run of the installation is already queued.
func (c *Client) EnqueueReconcileInstallation(ctx context.Context, installationID string) (bool, error) {
	task, err := NewReconcileInstallationTask(installationID)
	if err != nil {
		return false, domain.NewInternalError("failed to build reconcile task", err)
	}

	info, err := c.enqueuer.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.Unique(c.uniqueTTL), asynq.MaxRetry(0))
	if isDuplicate(err) {
		slog.DebugContext(ctx, "reconcile task already queued", "installation_id", installationID)
		return false, nil
	}
	if err != nil {
		return false, domain.NewUnavailableError(fmt.Sprintf("failed to enqueue reconcile task for %s", installationID), err)
	}

	slog.InfoContext(ctx, "enqueued reconcile task", "installation_id", installationID, "task_id", info.ID)
	return true, nil
}

// EnqueueRecordingBackup implements domain.RecordingQueue. The file id is the
// task id, so a file is only queued once. Recordings of yesterday go to the
// critical queue and retroactive ones to the default queue.
func (c *Client) EnqueueRecordingBackup(ctx context.Context, backup models.RecordingBackupTask) (bool, error) {
	if backup.File.ID == "" {
		return false, domain.NewValidationError("recording file id is required")
	}
	task, err := NewRecordingBackupTask(backup)
	if err != nil {
		return false, domain.NewInternalError("failed to build recording backup task", err)
	}

	queue := QueueCritical
	if backup.Retroactive {
		queue = QueueDefault
	}

	_, err = c.enqueuer.EnqueueContext(ctx, task,
		asynq.Queue(queue),
		asynq.TaskID(backup.File.ID),
		asynq.MaxRetry(DefaultRecordingMaxRetry),
	)
	if isDuplicate(err) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewUnavailableError(fmt.Sprintf("failed to enqueue backup of recording %s", backup.File.ID), err)
	}

	slog.DebugContext(ctx, "enqueued recording backup",
		"file_id", backup.File.ID,
		"meeting_uuid", backup.File.MeetingUUID,
		"queue", queue,
	)
	return true, nil
}
