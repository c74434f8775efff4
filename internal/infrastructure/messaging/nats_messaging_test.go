// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNATSConn struct {
	mock.Mock
}

func (m *MockNATSConn) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockNATSConn) Publish(subj string, data []byte) error {
	args := m.Called(subj, data)
	return args.Error(0)
}

func TestMessageBuilder_publish(t *testing.T) {
	tests := []struct {
		name         string
		connected    bool
		publishError error
		expectError  bool
	}{
		{
			name:      "successful send",
			connected: true,
		},
		{
			name:         "publish error",
			connected:    true,
			publishError: errors.New("publish failed"),
			expectError:  true,
		},
		{
			name:        "disconnected",
			connected:   false,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockConn := new(MockNATSConn)
			mockConn.On("IsConnected").Return(tt.connected)
			if tt.connected {
				mockConn.On("Publish", "test.subject", []byte("test data")).Return(tt.publishError)
			}

			builder := &MessageBuilder{NatsConn: mockConn}
			err := builder.publish(context.Background(), "test.subject", []byte("test data"))

			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			mockConn.AssertExpectations(t)
		})
	}
}

func TestMessageBuilder_publishDisconnectedIsUnavailable(t *testing.T) {
	builder := NewMessageBuilder(nil)
	err := builder.publish(context.Background(), "x", nil)
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestMessageBuilder_PublishDayReconciled(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	event := models.DayReconciledEvent{
		InstallationID:    "inst-1",
		CourseID:          "course-1",
		Day:               day,
		AbsentCount:       4,
		MeetingsScheduled: true,
	}

	mockConn := new(MockNATSConn)
	mockConn.On("IsConnected").Return(true)
	mockConn.On("Publish", models.DayReconciledSubject, mock.AnythingOfType("[]uint8")).Return(nil)

	builder := NewMessageBuilder(mockConn)
	require.NoError(t, builder.PublishDayReconciled(context.Background(), event))

	data := mockConn.Calls[1].Arguments.Get(1).([]byte)
	var decoded models.DayReconciledEvent
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, event, decoded)
}

func TestMessageBuilder_PublishDaySkipped(t *testing.T) {
	mockConn := new(MockNATSConn)
	mockConn.On("IsConnected").Return(true)
	mockConn.On("Publish", models.DaySkippedSubject, mock.AnythingOfType("[]uint8")).Return(nil)

	builder := NewMessageBuilder(mockConn)
	err := builder.PublishDaySkipped(context.Background(), models.DaySkippedEvent{
		InstallationID: "inst-1",
		Day:            time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Reason:         "zoom unavailable",
		ErrorType:      domain.ErrorTypeSourceUnavailable.String(),
	})
	require.NoError(t, err)
	mockConn.AssertExpectations(t)
}
