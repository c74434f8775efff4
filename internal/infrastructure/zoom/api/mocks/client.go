// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/zoom/api"
)

// MockClient is a mock implementation of the Zoom API client. Unset functions
// return empty results.
type MockClient struct {
	ListPastMeetingInstancesFunc func(ctx context.Context, meetingID string) ([]api.PastMeetingInstance, error)
	GetPastMeetingFunc           func(ctx context.Context, meetingUUID string) (*api.PastMeetingDetails, error)
	ListReportParticipantsFunc   func(ctx context.Context, meetingUUID string) ([]api.ReportParticipant, error)
	ListMetricsParticipantsFunc  func(ctx context.Context, meetingUUID string) ([]api.MetricsParticipant, error)
	GetMeetingRecordingsFunc     func(ctx context.Context, meetingUUID string) (*api.MeetingRecordings, error)
}

// NewMockClient creates a new mock client with default implementations
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Ensure MockClient implements ClientAPI interface
var _ api.ClientAPI = (*MockClient)(nil)

// ListPastMeetingInstances mocks the ListPastMeetingInstances API call
func (m *MockClient) ListPastMeetingInstances(ctx context.Context, meetingID string) ([]api.PastMeetingInstance, error) {
	if m.ListPastMeetingInstancesFunc != nil {
		return m.ListPastMeetingInstancesFunc(ctx, meetingID)
	}
	return nil, nil
}

// GetPastMeeting mocks the GetPastMeeting API call
func (m *MockClient) GetPastMeeting(ctx context.Context, meetingUUID string) (*api.PastMeetingDetails, error) {
	if m.GetPastMeetingFunc != nil {
		return m.GetPastMeetingFunc(ctx, meetingUUID)
	}
	return &api.PastMeetingDetails{UUID: meetingUUID}, nil
}

// ListReportParticipants mocks the ListReportParticipants API call
func (m *MockClient) ListReportParticipants(ctx context.Context, meetingUUID string) ([]api.ReportParticipant, error) {
	if m.ListReportParticipantsFunc != nil {
		return m.ListReportParticipantsFunc(ctx, meetingUUID)
	}
	return nil, nil
}

// ListMetricsParticipants mocks the ListMetricsParticipants API call
func (m *MockClient) ListMetricsParticipants(ctx context.Context, meetingUUID string) ([]api.MetricsParticipant, error) {
	if m.ListMetricsParticipantsFunc != nil {
		return m.ListMetricsParticipantsFunc(ctx, meetingUUID)
	}
	return nil, nil
}

// GetMeetingRecordings mocks the GetMeetingRecordings API call
func (m *MockClient) GetMeetingRecordings(ctx context.Context, meetingUUID string) (*api.MeetingRecordings, error) {
	if m.GetMeetingRecordingsFunc != nil {
		return m.GetMeetingRecordingsFunc(ctx, meetingUUID)
	}
	return nil, nil
}
