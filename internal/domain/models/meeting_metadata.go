// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"strings"
	"time"
)

// MeetingMetadata describes one finished meeting occurrence at the source.
type MeetingMetadata struct {
	MeetingID        string    `json:"meeting_id"`
	Topic            string    `json:"topic"`
	StartTime        time.Time `json:"start_time"`
	EndTime          time.Time `json:"end_time"`
	ParticipantCount int       `json:"participant_count"`
}

// HasTimes reports whether both start and end timestamps are known.
func (m *MeetingMetadata) HasTimes() bool {
	return m != nil && !m.StartTime.IsZero() && !m.EndTime.IsZero()
}

// DurationMinutes returns floor((end-start)/60s), or 0 when timestamps are missing.
func (m *MeetingMetadata) DurationMinutes() int {
	if !m.HasTimes() {
		return 0
	}
	return int(m.EndTime.Sub(m.StartTime) / time.Minute)
}

// IrregularityReport is the outcome of the irregular meeting check.
type IrregularityReport struct {
	Irregular bool
	Reasons   []string
}

// Reason joins the accumulated reasons into one string.
func (r IrregularityReport) Reason() string {
	return strings.Join(r.Reasons, ", ")
}

// RosterUser is the subset of a course user needed for identity resolution.
type RosterUser struct {
	ID        string `json:"id" bson:"_id"`
	FirstName string `json:"first_name" bson:"firstname"`
	LastName  string `json:"last_name" bson:"lastname"`
	Email     string `json:"email" bson:"email"`
}

// RecordingFile is a single file of a cloud recording eligible for backup.
type RecordingFile struct {
	ID            string    `json:"id"`
	MeetingID     string    `json:"meeting_id"`
	MeetingUUID   string    `json:"meeting_uuid"`
	Topic         string    `json:"topic"`
	FileType      string    `json:"file_type"`
	FileSize      int64     `json:"file_size"`
	DownloadURL   string    `json:"download_url"`
	RecordingType string    `json:"recording_type"`
	StartTime     time.Time `json:"start_time"`
}

// RecordingBackupTask asks the backup pipeline to copy one recording file.
type RecordingBackupTask struct {
	InstallationID string        `json:"installation_id"`
	CourseID       string        `json:"course_id"`
	File           RecordingFile `json:"file"`
	DeleteSource   bool          `json:"delete_source"`
	Retroactive    bool          `json:"retroactive"`
}
