// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

func TestNatsInstallationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsInstallationRepository(newMockNatsKeyValue())

	inst := &models.Installation{
		ID:                   "inst-1",
		CourseID:             "course-1",
		AttendanceActivityID: "act-1",
		StartDate:            time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.CreateInstallation(ctx, inst))
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(repo.CreateInstallation(ctx, inst)))

	stored, revision, err := repo.GetInstallationWithRevision(ctx, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingStatusIdle, stored.ProcessingStatus)
	assert.Equal(t, 80.0, stored.MinPercentage)

	day := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	stored.LastProcessedDate = &day
	require.NoError(t, repo.UpdateInstallation(ctx, stored, revision))

	// The revision read before the first update is now stale.
	err = repo.UpdateInstallation(ctx, stored, revision)
	assert.Equal(t, domain.ErrorTypeConflict, domain.GetErrorType(err))

	reloaded, err := repo.GetInstallation(ctx, "inst-1")
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastProcessedDate)
	assert.True(t, day.Equal(*reloaded.LastProcessedDate))

	require.NoError(t, repo.CreateInstallation(ctx, &models.Installation{ID: "inst-0", AttendanceActivityID: "act-0"}))
	all, err := repo.ListInstallations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "inst-0", all[0].ID)

	_, err = repo.GetInstallation(ctx, "missing")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsSessionRepository_ListSessionsInWindow(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsSessionRepository(newMockNatsKeyValue())
	base := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	sessions := []*models.Session{
		{UID: "s-in", AttendanceActivityID: "act-1", GroupID: "7", SessionDate: base},
		{UID: "s-edge", AttendanceActivityID: "act-1", GroupID: "7", SessionDate: base.Add(24 * time.Hour)},
		{UID: "s-late", AttendanceActivityID: "act-1", GroupID: "7", SessionDate: base.Add(25 * time.Hour)},
		{UID: "s-other-group", AttendanceActivityID: "act-1", GroupID: "70", SessionDate: base},
		{UID: "s-other-activity", AttendanceActivityID: "act-10", GroupID: "7", SessionDate: base},
		{UID: "s-ungrouped", AttendanceActivityID: "act-1", GroupID: "", SessionDate: base},
	}
	for _, s := range sessions {
		require.NoError(t, repo.CreateSession(ctx, s))
	}

	found, err := repo.ListSessionsInWindow(ctx, "act-1", "7", base.Add(-24*time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "s-in", found[0].UID)
	assert.Equal(t, "s-edge", found[1].UID)

	ungrouped, err := repo.ListSessionsInWindow(ctx, "act-1", "0", base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, ungrouped, 1)
	assert.Equal(t, "s-ungrouped", ungrouped[0].UID)
	assert.Equal(t, models.UngroupedID, ungrouped[0].GroupID)
}

func TestNatsSessionRepository_UpdateMovesIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsSessionRepository(newMockNatsKeyValue())
	base := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	session := &models.Session{AttendanceActivityID: "act-1", GroupID: "7", SessionDate: base, Description: "Class"}
	require.NoError(t, repo.CreateSession(ctx, session))
	require.NotEmpty(t, session.UID)

	session.SessionDate = base.Add(72 * time.Hour)
	session.Description = "Class - moved"
	require.NoError(t, repo.UpdateSession(ctx, session))

	before, err := repo.ListSessionsInWindow(ctx, "act-1", "7", base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, before)

	after, err := repo.ListSessionsInWindow(ctx, "act-1", "7", base.Add(71*time.Hour), base.Add(73*time.Hour))
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "Class - moved", after[0].Description)

	err = repo.UpdateSession(ctx, &models.Session{UID: "missing", AttendanceActivityID: "act-1"})
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsSessionRepository_CreateRollsBackWithoutIndex(t *testing.T) {
	ctx := context.Background()
	kv := newMockNatsKeyValue()
	repo := NewNatsSessionRepository(kv)
	base := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	kv.putError = errors.New("nats: timeout")
	session := &models.Session{UID: "s-1", AttendanceActivityID: "act-1", GroupID: "7", SessionDate: base}
	err := repo.CreateSession(ctx, session)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))

	_, err = repo.GetSession(ctx, "s-1")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

	kv.putError = nil
	retry := &models.Session{AttendanceActivityID: "act-1", GroupID: "7", SessionDate: base}
	require.NoError(t, repo.CreateSession(ctx, retry))
	found, err := repo.ListSessionsInWindow(ctx, "act-1", "7", base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, retry.UID, found[0].UID)
}

func TestNatsAttendanceLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsAttendanceLogRepository(newMockNatsKeyValue())

	present := &models.AttendanceLogEntry{SessionUID: "s-1", UserID: "u-2", Status: models.StatusPresent, TakenBy: "bot"}
	require.NoError(t, repo.UpsertEntry(ctx, present))

	created, err := repo.CreateEntryIfAbsent(ctx, &models.AttendanceLogEntry{SessionUID: "s-1", UserID: "u-2", Status: models.StatusAbsent})
	require.NoError(t, err)
	assert.False(t, created)

	created, err = repo.CreateEntryIfAbsent(ctx, &models.AttendanceLogEntry{SessionUID: "s-1", UserID: "u-1", Status: models.StatusAbsent})
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, repo.UpsertEntry(ctx, &models.AttendanceLogEntry{SessionUID: "s-10", UserID: "u-1", Status: models.StatusLate}))

	entries, err := repo.ListSessionEntries(ctx, "s-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "u-1", entries[0].UserID)
	assert.Equal(t, models.StatusAbsent, entries[0].Status)
	assert.Equal(t, models.StatusPresent, entries[1].Status)

	entry, err := repo.GetEntry(ctx, "s-10", "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusLate, entry.Status)

	err = repo.UpsertEntry(ctx, &models.AttendanceLogEntry{SessionUID: "s-1"})
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))
}

func TestNatsSkippedDayRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewNatsSkippedDayRepository(newMockNatsKeyValue())
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, d := range []time.Time{day.AddDate(0, 0, 1), day} {
		require.NoError(t, repo.RecordSkippedDay(ctx, &models.SkippedDay{
			InstallationID: "inst-1",
			Day:            d,
			Reason:         "zoom down",
			ErrorType:      domain.ErrorTypeSourceUnavailable.String(),
			SkippedAt:      day.Add(time.Hour),
		}))
	}
	require.NoError(t, repo.RecordSkippedDay(ctx, &models.SkippedDay{InstallationID: "inst-2", Day: day}))

	days, err := repo.ListSkippedDays(ctx, "inst-1")
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.True(t, days[0].Day.Equal(day))
	assert.Equal(t, "source_unavailable", days[0].ErrorType)
	assert.Equal(t, "zoom down", days[1].Reason)

	assert.Error(t, repo.RecordSkippedDay(ctx, &models.SkippedDay{InstallationID: "inst-1"}))
}
