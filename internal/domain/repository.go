// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// InstallationRepository defines storage operations for installations.
type InstallationRepository interface {
	GetInstallation(ctx context.Context, id string) (*models.Installation, error)
	GetInstallationWithRevision(ctx context.Context, id string) (*models.Installation, uint64, error)
	CreateInstallation(ctx context.Context, installation *models.Installation) error
	UpdateInstallation(ctx context.Context, installation *models.Installation, revision uint64) error
	ListInstallations(ctx context.Context) ([]*models.Installation, error)
}

// SessionRepository defines storage operations for attendance sessions.
type SessionRepository interface {
	GetSession(ctx context.Context, uid string) (*models.Session, error)
	CreateSession(ctx context.Context, session *models.Session) error
	UpdateSession(ctx context.Context, session *models.Session) error
	// ListSessionsInWindow returns sessions of the activity and group whose
	// date lies within [from, to]. groupID is matched after normalization.
	ListSessionsInWindow(ctx context.Context, activityID, groupID string, from, to time.Time) ([]*models.Session, error)
}

// AttendanceLogRepository defines storage operations for attendance log entries.
type AttendanceLogRepository interface {
	GetEntry(ctx context.Context, sessionUID, userID string) (*models.AttendanceLogEntry, error)
	// UpsertEntry creates or replaces the entry for (SessionUID, UserID).
	UpsertEntry(ctx context.Context, entry *models.AttendanceLogEntry) error
	// CreateEntryIfAbsent inserts the entry and reports false when one already exists.
	CreateEntryIfAbsent(ctx context.Context, entry *models.AttendanceLogEntry) (bool, error)
	ListSessionEntries(ctx context.Context, sessionUID string) ([]*models.AttendanceLogEntry, error)
}

// SkippedDayRepository stores the audit trail of force-advanced days.
type SkippedDayRepository interface {
	RecordSkippedDay(ctx context.Context, day *models.SkippedDay) error
	ListSkippedDays(ctx context.Context, installationID string) ([]*models.SkippedDay, error)
}
