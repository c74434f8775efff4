// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// MockDataSource implements DataSource for testing
type MockDataSource struct {
	mock.Mock
}

func (m *MockDataSource) ListParticipants(ctx context.Context, installation *models.Installation, dayStart, dayEnd time.Time) (*models.DayParticipants, error) {
	args := m.Called(ctx, installation, dayStart, dayEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DayParticipants), args.Error(1)
}

func (m *MockDataSource) GetMeetingMetadata(ctx context.Context, meetingID string) (*models.MeetingMetadata, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MeetingMetadata), args.Error(1)
}

func (m *MockDataSource) ProcessRecordings(ctx context.Context, installation *models.Installation, dayStart, dayEnd time.Time) (int, error) {
	args := m.Called(ctx, installation, dayStart, dayEnd)
	return args.Int(0), args.Error(1)
}

// MockRosterProvider implements RosterProvider for testing
type MockRosterProvider struct {
	mock.Mock
}

func (m *MockRosterProvider) EnrolledUsers(ctx context.Context, courseID string) ([]string, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRosterProvider) GroupMembers(ctx context.Context, groupID string) ([]string, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRosterProvider) IsTeacherRole(ctx context.Context, courseID, userID string) (bool, error) {
	args := m.Called(ctx, courseID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRosterProvider) CourseUsers(ctx context.Context, courseID string) ([]models.RosterUser, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RosterUser), args.Error(1)
}

func (m *MockRosterProvider) UserGroups(ctx context.Context, courseID, userID string) ([]string, error) {
	args := m.Called(ctx, courseID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockRecordingQueue implements RecordingQueue for testing
type MockRecordingQueue struct {
	mock.Mock
}

func (m *MockRecordingQueue) EnqueueRecordingBackup(ctx context.Context, task models.RecordingBackupTask) (bool, error) {
	args := m.Called(ctx, task)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher implements EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishDayReconciled(ctx context.Context, event models.DayReconciledEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishDaySkipped(ctx context.Context, event models.DaySkippedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
