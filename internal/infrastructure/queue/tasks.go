// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package queue carries reconciliation and recording backup work over asynq.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// Task types
const (
	TypeReconcileAll          = "attendance:reconcile_all"
	TypeReconcileInstallation = "attendance:reconcile_installation"
	TypeRecordingBackup       = "attendance:recording_backup"
)

// Queue names and their weights on the worker.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// Queues is the priority configuration for asynq servers.
var Queues = map[string]int{
	QueueCritical: 6,
	QueueDefault:  3,
}

// ReconcileInstallationPayload is the payload of TypeReconcileInstallation.
type ReconcileInstallationPayload struct {
	InstallationID string `json:"installation_id"`
}

// NewReconcileAllTask creates the periodic task that fans out to every installation.
func NewReconcileAllTask() *asynq.Task {
	return asynq.NewTask(TypeReconcileAll, nil)
}

// NewReconcileInstallationTask creates a task that runs one installation.
func NewReconcileInstallationTask(installationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcileInstallationPayload{InstallationID: installationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReconcileInstallation, payload), nil
}

// NewRecordingBackupTask creates a recording backup task.
func NewRecordingBackupTask(task models.RecordingBackupTask) (*asynq.Task, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeRecordingBackup, payload), nil
}

// parseReconcileInstallation decodes a TypeReconcileInstallation payload.
func parseReconcileInstallation(t *asynq.Task) (ReconcileInstallationPayload, error) {
	var p ReconcileInstallationPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.InstallationID == "" {
		return p, fmt.Errorf("%s payload without installation_id: %w", t.Type(), asynq.SkipRetry)
	}
	return p, nil
}
