// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package runner

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/service"
)

type storedInstallation struct {
	installation models.Installation
	revision     uint64
}

// memoryInstallations is an in-memory InstallationRepository with revision checks.
type memoryInstallations struct {
	mu    sync.Mutex
	items map[string]*storedInstallation
}

func newMemoryInstallations(installations ...*models.Installation) *memoryInstallations {
	m := &memoryInstallations{items: make(map[string]*storedInstallation)}
	for _, inst := range installations {
		m.items[inst.ID] = &storedInstallation{installation: *inst, revision: 1}
	}
	return m
}

func (m *memoryInstallations) GetInstallation(ctx context.Context, id string) (*models.Installation, error) {
	inst, _, err := m.GetInstallationWithRevision(ctx, id)
	return inst, err
}

func (m *memoryInstallations) GetInstallationWithRevision(_ context.Context, id string) (*models.Installation, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[id]
	if !ok {
		return nil, 0, domain.NewNotFoundError("installation not found")
	}
	cp := stored.installation
	return &cp, stored.revision, nil
}

func (m *memoryInstallations) CreateInstallation(_ context.Context, installation *models.Installation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[installation.ID]; ok {
		return domain.NewConflictError("installation exists")
	}
	m.items[installation.ID] = &storedInstallation{installation: *installation, revision: 1}
	return nil
}

func (m *memoryInstallations) UpdateInstallation(_ context.Context, installation *models.Installation, revision uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.items[installation.ID]
	if !ok {
		return domain.NewNotFoundError("installation not found")
	}
	if stored.revision != revision {
		return domain.NewConflictError("revision mismatch")
	}
	stored.installation = *installation
	stored.revision++
	return nil
}

func (m *memoryInstallations) ListInstallations(_ context.Context) ([]*models.Installation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Installation, 0, len(m.items))
	for _, stored := range m.items {
		cp := stored.installation
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryInstallations) get(t *testing.T, id string) models.Installation {
	t.Helper()
	inst, err := m.GetInstallation(context.Background(), id)
	require.NoError(t, err)
	return *inst
}

func utcDay(offset int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+offset, 0, 0, 0, 0, time.UTC)
}

func newTestRunner(installations *memoryInstallations, dataSource *mocks.MockDataSource) *Runner {
	reconciler := service.NewAttendanceReconciler(
		&mocks.MockSessionRepository{},
		&mocks.MockAttendanceLogRepository{},
		dataSource,
		&mocks.MockRosterProvider{},
		nil,
	)
	cursor := service.NewDailyIngestionCursor(installations, nil, dataSource, reconciler, nil)
	loop := service.NewChunkedRunLoop(cursor, service.RunLoopConfig{DayPause: -1})
	return NewRunner(installations, loop, dataSource, 2)
}

func TestRunInstallation_ProcessesUntilCaughtUp(t *testing.T) {
	installations := newMemoryInstallations(&models.Installation{
		ID:                   "inst-1",
		CourseID:             "course-1",
		AttendanceActivityID: "activity-1",
		StartDate:            utcDay(-3),
		BackupRecordings:     true,
		ProcessingStatus:     models.ProcessingStatusError,
		LastError:            "previous failure",
	})

	dataSource := &mocks.MockDataSource{}
	dataSource.On("ListParticipants", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.DayParticipants{}, nil).Times(3)
	dataSource.On("ProcessRecordings", mock.Anything, mock.Anything, utcDay(-3), utcDay(0)).
		Return(2, nil).Once()

	summary, err := newTestRunner(installations, dataSource).RunInstallation(context.Background(), "inst-1")
	require.NoError(t, err)
	require.NotNil(t, summary)

	assert.Equal(t, 3, summary.DaysProcessed)
	assert.Equal(t, models.StopCaughtUp, summary.StopReason)
	assert.True(t, summary.LastDate.Equal(utcDay(-1)))

	stored := installations.get(t, "inst-1")
	assert.Equal(t, models.ProcessingStatusIdle, stored.ProcessingStatus)
	assert.Empty(t, stored.LastError)
	require.NotNil(t, stored.LastProcessedDate)
	assert.True(t, stored.LastProcessedDate.Equal(utcDay(-1)))
	dataSource.AssertExpectations(t)
}

func TestRunInstallation_BackupDisabled(t *testing.T) {
	installations := newMemoryInstallations(&models.Installation{
		ID:                   "inst-1",
		AttendanceActivityID: "activity-1",
		StartDate:            utcDay(-1),
	})

	dataSource := &mocks.MockDataSource{}
	dataSource.On("ListParticipants", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.DayParticipants{}, nil).Once()

	summary, err := newTestRunner(installations, dataSource).RunInstallation(context.Background(), "inst-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.DaysProcessed)
	dataSource.AssertNotCalled(t, "ProcessRecordings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunInstallation_FailureMarksError(t *testing.T) {
	installations := newMemoryInstallations(&models.Installation{
		ID:                   "inst-1",
		AttendanceActivityID: "activity-1",
		StartDate:            utcDay(-2),
		BackupRecordings:     true,
	})

	dataSource := &mocks.MockDataSource{}
	dataSource.On("ListParticipants", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.NewUnavailableError("store offline")).Once()

	summary, err := newTestRunner(installations, dataSource).RunInstallation(context.Background(), "inst-1")
	require.Error(t, err)
	assert.True(t, domain.IsErrorType(err, domain.ErrorTypeUnavailable))
	require.NotNil(t, summary)
	assert.Zero(t, summary.DaysProcessed)

	stored := installations.get(t, "inst-1")
	assert.Equal(t, models.ProcessingStatusError, stored.ProcessingStatus)
	assert.Contains(t, stored.LastError, "store offline")
	assert.Nil(t, stored.LastProcessedDate)
	dataSource.AssertNotCalled(t, "ProcessRecordings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRunInstallation_UnknownInstallation(t *testing.T) {
	r := newTestRunner(newMemoryInstallations(), &mocks.MockDataSource{})

	summary, err := r.RunInstallation(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, domain.IsErrorType(err, domain.ErrorTypeConfigMissing))
}

func TestRunAll(t *testing.T) {
	installations := newMemoryInstallations(
		&models.Installation{ID: "a", AttendanceActivityID: "activity-a", StartDate: utcDay(-1)},
		&models.Installation{ID: "b", StartDate: utcDay(-1)},
		&models.Installation{ID: "c", AttendanceActivityID: "activity-c", StartDate: utcDay(0)},
	)

	dataSource := &mocks.MockDataSource{}
	dataSource.On("ListParticipants", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.DayParticipants{}, nil)

	summaries, err := newTestRunner(installations, dataSource).RunAll(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsErrorType(err, domain.ErrorTypeConfigMissing))
	require.Len(t, summaries, 3)

	assert.Equal(t, "a", summaries[0].InstallationID)
	assert.Equal(t, 1, summaries[0].DaysProcessed)
	assert.Equal(t, "b", summaries[1].InstallationID)
	assert.Equal(t, models.StopCaughtUp, summaries[2].StopReason)
	assert.Zero(t, summaries[2].DaysProcessed)

	assert.Equal(t, models.ProcessingStatusIdle, installations.get(t, "a").ProcessingStatus)
	assert.Equal(t, models.ProcessingStatusError, installations.get(t, "b").ProcessingStatus)
	assert.Equal(t, models.ProcessingStatusIdle, installations.get(t, "c").ProcessingStatus)
	dataSource.AssertNumberOfCalls(t, "ListParticipants", 1)
}
