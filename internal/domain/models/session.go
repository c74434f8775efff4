// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"strings"
	"time"
)

// Session is one class occurrence inside an attendance activity.
type Session struct {
	UID                  string     `json:"uid"`
	AttendanceActivityID string     `json:"attendance_activity_id"`
	GroupID              string     `json:"group_id"`
	MeetingID            string     `json:"meeting_id,omitempty"`
	SessionDate          time.Time  `json:"session_date"`
	DurationMinutes      int        `json:"duration_minutes"`
	Description          string     `json:"description"`
	LastTaken            *time.Time `json:"last_taken,omitempty"`
	LastTakenBy          string     `json:"last_taken_by,omitempty"`
	StudentsCanMark      bool       `json:"students_can_mark"`
	CalendarEvent        bool       `json:"calendar_event"`
	IncludeQRCode        bool       `json:"include_qr_code"`
	Geofencing           bool       `json:"geofencing"`
	CreatedAt            *time.Time `json:"created_at,omitempty"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty"`
}

// IsGrouped reports whether the session belongs to a real group.
func (s *Session) IsGrouped() bool {
	return IsGroupedID(s.GroupID)
}

// StartTime is the session date; kept as a named accessor for the classifier.
func (s *Session) StartTime() time.Time {
	return s.SessionDate
}

// HasMarker reports whether the description already carries marker, ignoring case.
func (s *Session) HasMarker(marker string) bool {
	return strings.Contains(strings.ToLower(s.Description), strings.ToLower(marker))
}

// AddMarker appends marker to the description unless it is already present.
// It returns true when the description changed.
func (s *Session) AddMarker(marker string) bool {
	if marker == "" || s.HasMarker(marker) {
		return false
	}
	desc := strings.TrimSpace(s.Description)
	if desc == "" {
		s.Description = marker
	} else {
		s.Description = desc + " - " + marker
	}
	return true
}
