// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// MockInstallationRepository implements InstallationRepository for testing
type MockInstallationRepository struct {
	mock.Mock
}

func (m *MockInstallationRepository) GetInstallation(ctx context.Context, id string) (*models.Installation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Installation), args.Error(1)
}

func (m *MockInstallationRepository) GetInstallationWithRevision(ctx context.Context, id string) (*models.Installation, uint64, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Get(1).(uint64), args.Error(2)
	}
	return args.Get(0).(*models.Installation), args.Get(1).(uint64), args.Error(2)
}

func (m *MockInstallationRepository) CreateInstallation(ctx context.Context, installation *models.Installation) error {
	args := m.Called(ctx, installation)
	return args.Error(0)
}

func (m *MockInstallationRepository) UpdateInstallation(ctx context.Context, installation *models.Installation, revision uint64) error {
	args := m.Called(ctx, installation, revision)
	return args.Error(0)
}

func (m *MockInstallationRepository) ListInstallations(ctx context.Context) ([]*models.Installation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Installation), args.Error(1)
}

// MockSessionRepository implements SessionRepository for testing
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) GetSession(ctx context.Context, uid string) (*models.Session, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) UpdateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) ListSessionsInWindow(ctx context.Context, activityID, groupID string, from, to time.Time) ([]*models.Session, error) {
	args := m.Called(ctx, activityID, groupID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Session), args.Error(1)
}

// MockAttendanceLogRepository implements AttendanceLogRepository for testing
type MockAttendanceLogRepository struct {
	mock.Mock
}

func (m *MockAttendanceLogRepository) GetEntry(ctx context.Context, sessionUID, userID string) (*models.AttendanceLogEntry, error) {
	args := m.Called(ctx, sessionUID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AttendanceLogEntry), args.Error(1)
}

func (m *MockAttendanceLogRepository) UpsertEntry(ctx context.Context, entry *models.AttendanceLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAttendanceLogRepository) CreateEntryIfAbsent(ctx context.Context, entry *models.AttendanceLogEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockAttendanceLogRepository) ListSessionEntries(ctx context.Context, sessionUID string) ([]*models.AttendanceLogEntry, error) {
	args := m.Called(ctx, sessionUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AttendanceLogEntry), args.Error(1)
}

// MockSkippedDayRepository implements SkippedDayRepository for testing
type MockSkippedDayRepository struct {
	mock.Mock
}

func (m *MockSkippedDayRepository) RecordSkippedDay(ctx context.Context, day *models.SkippedDay) error {
	args := m.Called(ctx, day)
	return args.Error(0)
}

func (m *MockSkippedDayRepository) ListSkippedDays(ctx context.Context, installationID string) ([]*models.SkippedDay, error) {
	args := m.Called(ctx, installationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SkippedDay), args.Error(1)
}
