// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// AttendanceStatus is the acronym of an attendance status.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "P"
	StatusLate    AttendanceStatus = "L"
	StatusAbsent  AttendanceStatus = "A"
)

// String returns the human readable status name.
func (s AttendanceStatus) String() string {
	switch s {
	case StatusPresent:
		return "present"
	case StatusLate:
		return "late"
	case StatusAbsent:
		return "absent"
	}
	return string(s)
}

// AttendanceLogEntry is the recorded status of one user in one session.
// There is at most one entry per (SessionUID, UserID).
type AttendanceLogEntry struct {
	SessionUID string           `json:"session_uid"`
	UserID     string           `json:"user_id"`
	Status     AttendanceStatus `json:"status"`
	Remarks    string           `json:"remarks"`
	TimeTaken  time.Time        `json:"time_taken"`
	TakenBy    string           `json:"taken_by"`
}

// SkippedDay records a day that was force-advanced after a recoverable failure.
type SkippedDay struct {
	InstallationID string    `msgpack:"installation_id" json:"installation_id"`
	Day            time.Time `msgpack:"day" json:"day"`
	Reason         string    `msgpack:"reason" json:"reason"`
	ErrorType      string    `msgpack:"error_type" json:"error_type"`
	SkippedAt      time.Time `msgpack:"skipped_at" json:"skipped_at"`
}
