// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// ParticipantRole separates teaching staff from students in a meeting.
type ParticipantRole string

const (
	RoleStudent ParticipantRole = "student"
	RoleTeacher ParticipantRole = "teacher"
)

// UngroupedID is the canonical group identifier for sessions without a group.
const UngroupedID = "0"

// RawParticipant is one person's aggregated presence in one meeting occurrence,
// already resolved to a roster user. A person in several groups produces one
// entry per group.
type RawParticipant struct {
	UserID          string          `json:"user_id"`
	ProviderUserID  string          `json:"provider_user_id,omitempty"`
	Name            string          `json:"name,omitempty"`
	Email           string          `json:"email,omitempty"`
	MeetingID       string          `json:"meeting_id"`
	GroupID         string          `json:"group_id"`
	JoinTime        time.Time       `json:"join_time"`
	LeaveTime       time.Time       `json:"leave_time"`
	DurationMinutes float64         `json:"duration_minutes"`
	HasVideo        bool            `json:"has_video"`
	Role            ParticipantRole `json:"role"`
}

// IsGrouped reports whether the participant belongs to a real group.
func (p *RawParticipant) IsGrouped() bool {
	return IsGroupedID(p.GroupID)
}

// NormalizedGroupID maps every ungrouped spelling to UngroupedID.
func (p *RawParticipant) NormalizedGroupID() string {
	return NormalizeGroupID(p.GroupID)
}

// IsGroupedID reports whether id names a real group.
func IsGroupedID(id string) bool {
	return id != "" && id != UngroupedID
}

// NormalizeGroupID maps "" to UngroupedID and leaves real ids alone.
func NormalizeGroupID(id string) string {
	if !IsGroupedID(id) {
		return UngroupedID
	}
	return id
}

// DayParticipants is what a data source yields for one calendar day.
// MeetingsScheduled is false when no meeting occurrence fell inside the day.
type DayParticipants struct {
	Participants      []RawParticipant
	MeetingsScheduled bool
}
