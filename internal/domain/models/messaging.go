// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// NATS subjects that the attendance service sends messages about.
const (
	// DayReconciledSubject is the subject for a completed reconciliation day.
	// The subject is of the form: lfx.attendance.day_reconciled
	DayReconciledSubject = "lfx.attendance.day_reconciled"

	// DaySkippedSubject is the subject for a day that was force-advanced.
	// The subject is of the form: lfx.attendance.day_skipped
	DaySkippedSubject = "lfx.attendance.day_skipped"
)

// DayReconciledEvent is published after the cursor moves past a reconciled day.
type DayReconciledEvent struct {
	InstallationID    string    `json:"installation_id"`
	CourseID          string    `json:"course_id"`
	Day               time.Time `json:"day"`
	AbsentCount       int       `json:"absent_count"`
	MeetingsScheduled bool      `json:"meetings_scheduled"`
}

// DaySkippedEvent is published when a day is skipped after a recoverable failure.
type DaySkippedEvent struct {
	InstallationID string    `json:"installation_id"`
	CourseID       string    `json:"course_id"`
	Day            time.Time `json:"day"`
	Reason         string    `json:"reason"`
	ErrorType      string    `json:"error_type"`
}
