// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service holds the attendance reconciliation engine.
package service

// Service is implemented by the engine components that depend on injected
// collaborators.
type Service interface {
	ServiceReady() bool
}

var (
	_ Service = (*DailyIngestionCursor)(nil)
	_ Service = (*AttendanceReconciler)(nil)
)
