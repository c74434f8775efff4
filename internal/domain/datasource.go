// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// DataSource yields raw participation records from a meeting platform.
// Errors that mean the platform could not be reached are SourceUnavailable.
type DataSource interface {
	// ListParticipants returns the participants of meetings of the installation
	// that started within [dayStart, dayEnd).
	ListParticipants(ctx context.Context, installation *models.Installation, dayStart, dayEnd time.Time) (*models.DayParticipants, error)
	// GetMeetingMetadata returns the metadata of one meeting occurrence.
	GetMeetingMetadata(ctx context.Context, meetingID string) (*models.MeetingMetadata, error)
	// ProcessRecordings hands the recordings of meetings in [dayStart, dayEnd) to the backup queue.
	ProcessRecordings(ctx context.Context, installation *models.Installation, dayStart, dayEnd time.Time) (int, error)
}

// RosterProvider answers roster questions about a course.
type RosterProvider interface {
	EnrolledUsers(ctx context.Context, courseID string) ([]string, error)
	GroupMembers(ctx context.Context, groupID string) ([]string, error)
	IsTeacherRole(ctx context.Context, courseID, userID string) (bool, error)
	CourseUsers(ctx context.Context, courseID string) ([]models.RosterUser, error)
	UserGroups(ctx context.Context, courseID, userID string) ([]string, error)
}

// RecordingQueue accepts recording backup work.
type RecordingQueue interface {
	// EnqueueRecordingBackup returns false when an identical task is already queued.
	EnqueueRecordingBackup(ctx context.Context, task models.RecordingBackupTask) (bool, error)
}
