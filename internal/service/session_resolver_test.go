// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

func setupSessionResolverForTesting() (*SessionResolver, *mocks.MockSessionRepository, *mocks.MockDataSource) {
	sessionRepo := &mocks.MockSessionRepository{}
	dataSource := &mocks.MockDataSource{}
	resolver := NewSessionResolver(sessionRepo, dataSource, NewIrregularMeetingDetector(0, 0))
	resolver.now = func() time.Time { return time.Date(2024, 3, 2, 1, 0, 0, 0, time.UTC) }
	return resolver, sessionRepo, dataSource
}

func TestSessionResolver_ServiceReady(t *testing.T) {
	resolver, _, _ := setupSessionResolverForTesting()
	assert.True(t, resolver.ServiceReady())

	resolver.DataSource = nil
	assert.False(t, resolver.ServiceReady())

	_, err := resolver.Resolve(context.Background(), "act-1", "m1", "0", time.Now(), 1)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestSessionResolver_Resolve(t *testing.T) {
	date := time.Date(2024, 3, 1, 18, 32, 0, 0, time.UTC)
	from, to := date.Add(-24*time.Hour), date.Add(24*time.Hour)

	t.Run("grouped match picks the nearest session and marks it", func(t *testing.T) {
		resolver, sessionRepo, _ := setupSessionResolverForTesting()
		far := &models.Session{UID: "far", GroupID: "10", SessionDate: date.Add(-20 * time.Hour), Description: "Algebra"}
		near := &models.Session{UID: "near", GroupID: "10", SessionDate: date.Add(-2 * time.Minute), Description: "Algebra"}

		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", "10", from, to).Return([]*models.Session{far, near}, nil)
		sessionRepo.On("UpdateSession", mock.Anything, near).Return(nil)

		session, err := resolver.Resolve(context.Background(), "act-1", "m1", "10", date, 12)
		require.NoError(t, err)
		assert.Equal(t, "near", session.UID)
		assert.Equal(t, "Algebra - "+constants.GroupedSessionMarker, session.Description)
		sessionRepo.AssertExpectations(t)
	})

	t.Run("marker already present does not update", func(t *testing.T) {
		resolver, sessionRepo, _ := setupSessionResolverForTesting()
		existing := &models.Session{UID: "s1", GroupID: "10", SessionDate: date, Description: "Algebra - " + constants.GroupedSessionMarker}

		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", "10", from, to).Return([]*models.Session{existing}, nil)

		session, err := resolver.Resolve(context.Background(), "act-1", "m1", "10", date, 12)
		require.NoError(t, err)
		assert.Equal(t, "s1", session.UID)
		sessionRepo.AssertNotCalled(t, "UpdateSession", mock.Anything, mock.Anything)
	})

	t.Run("grouped cohort falls back to ungrouped session", func(t *testing.T) {
		resolver, sessionRepo, _ := setupSessionResolverForTesting()
		ungrouped := &models.Session{UID: "u1", GroupID: "0", SessionDate: date.Add(time.Hour), Description: "Physics"}

		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", "10", from, to).Return([]*models.Session{}, nil)
		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", models.UngroupedID, from, to).Return([]*models.Session{ungrouped}, nil)
		sessionRepo.On("UpdateSession", mock.Anything, ungrouped).Return(nil)

		session, err := resolver.Resolve(context.Background(), "act-1", "m1", "10", date, 12)
		require.NoError(t, err)
		assert.Equal(t, "u1", session.UID)
		assert.Equal(t, "Physics - "+constants.UngroupedSessionMarker, session.Description)
	})

	t.Run("ungrouped cohort marks ungrouped session as not normalized", func(t *testing.T) {
		resolver, sessionRepo, _ := setupSessionResolverForTesting()
		ungrouped := &models.Session{UID: "u1", GroupID: "0", SessionDate: date, Description: "Physics"}

		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", models.UngroupedID, from, to).Return([]*models.Session{ungrouped}, nil)
		sessionRepo.On("UpdateSession", mock.Anything, ungrouped).Return(nil)

		session, err := resolver.Resolve(context.Background(), "act-1", "m1", "", date, 12)
		require.NoError(t, err)
		assert.Equal(t, "Physics - "+constants.UngroupedSessionMarker, session.Description)
	})

	t.Run("creates session from metadata", func(t *testing.T) {
		resolver, sessionRepo, dataSource := setupSessionResolverForTesting()
		meta := &models.MeetingMetadata{
			MeetingID:        "m1",
			Topic:            "Algebra",
			StartTime:        date.Add(-2 * time.Minute),
			EndTime:          date.Add(88*time.Minute + 30*time.Second),
			ParticipantCount: 20,
		}

		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", "10", from, to).Return(nil, nil)
		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", models.UngroupedID, from, to).Return(nil, nil)
		dataSource.On("GetMeetingMetadata", mock.Anything, "m1").Return(meta, nil)
		sessionRepo.On("CreateSession", mock.Anything, mock.AnythingOfType("*models.Session")).Return(nil)

		session, err := resolver.Resolve(context.Background(), "act-1", "m1", "10", date, 12)
		require.NoError(t, err)
		assert.NotEmpty(t, session.UID)
		assert.Equal(t, 90, session.DurationMinutes)
		assert.Equal(t, "Algebra", session.Description)
		assert.Equal(t, "10", session.GroupID)
		assert.Equal(t, meta.StartTime, session.SessionDate)
		assert.False(t, session.StudentsCanMark)
		assert.False(t, session.CalendarEvent)
		assert.False(t, session.IncludeQRCode)
		assert.False(t, session.Geofencing)
	})

	t.Run("irregular meeting gets reasons in description", func(t *testing.T) {
		resolver, sessionRepo, dataSource := setupSessionResolverForTesting()
		meta := &models.MeetingMetadata{MeetingID: "m1", Topic: "Algebra", StartTime: date, EndTime: date.Add(10 * time.Minute)}

		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", models.UngroupedID, from, to).Return(nil, nil)
		dataSource.On("GetMeetingMetadata", mock.Anything, "m1").Return(meta, nil)
		sessionRepo.On("CreateSession", mock.Anything, mock.AnythingOfType("*models.Session")).Return(nil)

		session, err := resolver.Resolve(context.Background(), "act-1", "m1", "", date, 3)
		require.NoError(t, err)
		assert.Equal(t, "Algebra [short meeting (10 min), few participants (3)]", session.Description)
		assert.Equal(t, models.UngroupedID, session.GroupID)
	})

	t.Run("missing metadata", func(t *testing.T) {
		resolver, sessionRepo, dataSource := setupSessionResolverForTesting()
		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", models.UngroupedID, from, to).Return(nil, nil)
		dataSource.On("GetMeetingMetadata", mock.Anything, "m1").Return(nil, domain.NewNotFoundError("no meeting"))

		_, err := resolver.Resolve(context.Background(), "act-1", "m1", "0", date, 3)
		assert.Equal(t, domain.ErrorTypeMeetingDataMissing, domain.GetErrorType(err))
		sessionRepo.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
	})

	t.Run("end before start", func(t *testing.T) {
		resolver, sessionRepo, dataSource := setupSessionResolverForTesting()
		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", models.UngroupedID, from, to).Return(nil, nil)
		dataSource.On("GetMeetingMetadata", mock.Anything, "m1").Return(&models.MeetingMetadata{StartTime: date, EndTime: date}, nil)

		_, err := resolver.Resolve(context.Background(), "act-1", "m1", "0", date, 3)
		assert.Equal(t, domain.ErrorTypeMeetingDataMissing, domain.GetErrorType(err))
	})

	t.Run("sub-minute meeting is an invalid duration", func(t *testing.T) {
		resolver, sessionRepo, dataSource := setupSessionResolverForTesting()
		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", models.UngroupedID, from, to).Return(nil, nil)
		dataSource.On("GetMeetingMetadata", mock.Anything, "m1").Return(&models.MeetingMetadata{StartTime: date, EndTime: date.Add(45 * time.Second)}, nil)

		_, err := resolver.Resolve(context.Background(), "act-1", "m1", "0", date, 3)
		assert.Equal(t, domain.ErrorTypeInvalidDuration, domain.GetErrorType(err))
	})

	t.Run("store failure propagates", func(t *testing.T) {
		resolver, sessionRepo, _ := setupSessionResolverForTesting()
		storeErr := domain.NewUnavailableError("kv down", errors.New("timeout"))
		sessionRepo.On("ListSessionsInWindow", mock.Anything, "act-1", models.UngroupedID, from, to).Return(nil, storeErr)

		_, err := resolver.Resolve(context.Background(), "act-1", "m1", "0", date, 3)
		assert.ErrorIs(t, err, storeErr)
	})

	t.Run("missing activity is a configuration error", func(t *testing.T) {
		resolver, _, _ := setupSessionResolverForTesting()
		_, err := resolver.Resolve(context.Background(), "", "m1", "0", date, 3)
		assert.Equal(t, domain.ErrorTypeConfigMissing, domain.GetErrorType(err))
	})
}

func TestNearestSession(t *testing.T) {
	date := time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)

	assert.Nil(t, nearestSession(nil, date))

	before := &models.Session{UID: "b", SessionDate: date.Add(-time.Hour)}
	after := &models.Session{UID: "a", SessionDate: date.Add(time.Hour)}
	assert.Equal(t, "b", nearestSession([]*models.Session{after, before}, date).UID)

	twinA := &models.Session{UID: "a", SessionDate: date}
	twinB := &models.Session{UID: "b", SessionDate: date}
	assert.Equal(t, "a", nearestSession([]*models.Session{twinB, twinA}, date).UID)
}
