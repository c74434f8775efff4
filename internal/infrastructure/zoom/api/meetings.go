// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// Timestamp decodes Zoom RFC 3339 times. An empty or null value is the zero time.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("zoom timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("zoom timestamp: %w", err)
	}
	t.Time = parsed
	return nil
}

// PastMeetingInstance is one ended occurrence of a meeting.
type PastMeetingInstance struct {
	UUID      string    `json:"uuid"`
	StartTime Timestamp `json:"start_time"`
}

type pastMeetingInstancesResponse struct {
	Meetings []PastMeetingInstance `json:"meetings"`
}

// PastMeetingDetails describes an ended meeting occurrence.
type PastMeetingDetails struct {
	ID                int64     `json:"id"`
	UUID              string    `json:"uuid"`
	Topic             string    `json:"topic"`
	StartTime         Timestamp `json:"start_time"`
	EndTime           Timestamp `json:"end_time"`
	Duration          int       `json:"duration"`
	TotalMinutes      int       `json:"total_minutes"`
	ParticipantsCount int       `json:"participants_count"`
}

// ReportParticipant is one join/leave segment of a participant. A participant
// who rejoins appears once per segment.
type ReportParticipant struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	ParticipantUserID string    `json:"participant_user_id"`
	Name              string    `json:"name"`
	UserEmail         string    `json:"user_email"`
	JoinTime          Timestamp `json:"join_time"`
	LeaveTime         Timestamp `json:"leave_time"`
	// Duration is in seconds.
	Duration int `json:"duration"`
}

// StableID returns the most durable identifier Zoom reported for the row:
// the account-level participant id, then the meeting user id, then the
// per-join id.
func (p ReportParticipant) StableID() string {
	switch {
	case p.ParticipantUserID != "":
		return p.ParticipantUserID
	case p.UserID != "":
		return p.UserID
	default:
		return p.ID
	}
}

// MetricsParticipant is a participant row of the dashboard metrics.
type MetricsParticipant struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	HasVideo bool   `json:"has_video"`
}

type pagedResponse struct {
	NextPageToken string `json:"next_page_token"`
}

type reportParticipantsResponse struct {
	pagedResponse
	Participants []ReportParticipant `json:"participants"`
}

type metricsParticipantsResponse struct {
	pagedResponse
	Participants []MetricsParticipant `json:"participants"`
}

// EncodeMeetingUUID escapes a meeting UUID for use as a path segment. Zoom
// requires UUIDs starting with "/" or containing "//" to be encoded twice.
func EncodeMeetingUUID(uuid string) string {
	escaped := url.PathEscape(uuid)
	if strings.HasPrefix(uuid, "/") || strings.Contains(uuid, "//") {
		escaped = url.PathEscape(escaped)
	}
	return escaped
}

// ListPastMeetingInstances lists the ended occurrences of a meeting.
func (c *Client) ListPastMeetingInstances(ctx context.Context, meetingID string) ([]PastMeetingInstance, error) {
	ctx = logging.AppendCtx(ctx, slog.String("zoom_operation", "list_past_meeting_instances"))

	var resp pastMeetingInstancesResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/past_meetings/%s/instances", url.PathEscape(meetingID)), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Meetings, nil
}

// GetPastMeeting returns the details of an ended occurrence.
func (c *Client) GetPastMeeting(ctx context.Context, meetingUUID string) (*PastMeetingDetails, error) {
	ctx = logging.AppendCtx(ctx, slog.String("zoom_operation", "get_past_meeting"))

	var details PastMeetingDetails
	if err := c.getJSON(ctx, "/past_meetings/"+EncodeMeetingUUID(meetingUUID), nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// ListReportParticipants returns every participant segment of an occurrence,
// following next_page_token until the last page.
func (c *Client) ListReportParticipants(ctx context.Context, meetingUUID string) ([]ReportParticipant, error) {
	ctx = logging.AppendCtx(ctx, slog.String("zoom_operation", "list_report_participants"))
	path := fmt.Sprintf("/report/meetings/%s/participants", EncodeMeetingUUID(meetingUUID))

	var all []ReportParticipant
	err := c.paginate(ctx, path, func(token string) (string, error) {
		var page reportParticipantsResponse
		query := url.Values{"page_size": []string{strconv.Itoa(DefaultPageSize)}}
		if token != "" {
			query.Set("next_page_token", token)
		}
		if err := c.getJSON(ctx, path, query, &page); err != nil {
			return "", err
		}
		all = append(all, page.Participants...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "retrieved zoom report participants", "segments", len(all))
	return all, nil
}

// ListMetricsParticipants returns the dashboard participants of an ended occurrence.
func (c *Client) ListMetricsParticipants(ctx context.Context, meetingUUID string) ([]MetricsParticipant, error) {
	ctx = logging.AppendCtx(ctx, slog.String("zoom_operation", "list_metrics_participants"))
	path := fmt.Sprintf("/metrics/meetings/%s/participants", EncodeMeetingUUID(meetingUUID))

	var all []MetricsParticipant
	err := c.paginate(ctx, path, func(token string) (string, error) {
		var page metricsParticipantsResponse
		query := url.Values{
			"type":      []string{"past"},
			"page_size": []string{strconv.Itoa(DefaultPageSize)},
		}
		if token != "" {
			query.Set("next_page_token", token)
		}
		if err := c.getJSON(ctx, path, query, &page); err != nil {
			return "", err
		}
		all = append(all, page.Participants...)
		return page.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// maxPages bounds pagination against a server that keeps returning tokens.
const maxPages = 100

// paginate calls fetch with successive page tokens until one returns an empty token.
func (c *Client) paginate(ctx context.Context, path string, fetch func(token string) (string, error)) error {
	token := ""
	for page := 0; page < maxPages; page++ {
		next, err := fetch(token)
		if err != nil {
			return err
		}
		if next == "" {
			return nil
		}
		token = next
	}
	slog.WarnContext(ctx, "pagination stopped at page limit", "path", path, "pages", maxPages)
	return nil
}
