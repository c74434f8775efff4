// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// ProcessingStatus is the runner-visible state of an installation.
type ProcessingStatus string

const (
	ProcessingStatusIdle    ProcessingStatus = "idle"
	ProcessingStatusRunning ProcessingStatus = "running"
	ProcessingStatusError   ProcessingStatus = "error"
)

// Installation binds a course to an attendance activity and carries the
// reconciliation settings for it. LastProcessedDate is the ingestion cursor.
type Installation struct {
	ID                   string           `json:"id"`
	CourseID             string           `json:"course_id"`
	AttendanceActivityID string           `json:"attendance_activity_id"`
	MeetingIDs           []string         `json:"meeting_ids"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              *time.Time       `json:"end_date,omitempty"`
	Timezone             string           `json:"timezone,omitempty"`
	ClassStartTime       time.Duration    `json:"class_start_time"`
	ClassEndTime         time.Duration    `json:"class_end_time"`
	MinPercentage        float64          `json:"min_percentage"`
	LateToleranceMinutes int              `json:"late_tolerance_minutes"`
	CameraRequired       bool             `json:"camera_required"`
	UseEmailMatching     bool             `json:"use_email_matching"`
	BackupRecordings     bool             `json:"backup_recordings"`
	DeleteFromSource     bool             `json:"delete_from_source"`
	LastProcessedDate    *time.Time       `json:"last_processed_date,omitempty"`
	ProcessingStatus     ProcessingStatus `json:"processing_status"`
	LastError            string           `json:"last_error,omitempty"`
	CreatedAt            *time.Time       `json:"created_at,omitempty"`
	UpdatedAt            *time.Time       `json:"updated_at,omitempty"`
}

// Location returns the installation timezone, falling back to UTC when the
// name is empty or cannot be loaded.
func (i *Installation) Location() *time.Location {
	if i == nil || i.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(i.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClassificationConfig returns the status rules configured for this installation.
func (i *Installation) ClassificationConfig() ClassificationConfig {
	return ClassificationConfig{
		MinPercentage:        i.MinPercentage,
		LateToleranceMinutes: i.LateToleranceMinutes,
		CameraRequired:       i.CameraRequired,
	}
}

// ClassificationConfig holds the thresholds used when deciding a status.
// LateToleranceMinutes of zero disables lateness entirely.
type ClassificationConfig struct {
	MinPercentage        float64
	LateToleranceMinutes int
	CameraRequired       bool
}
