// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Session description markers
const (
	// GroupedSessionMarker tags a pre-existing grouped session the engine reconciled.
	GroupedSessionMarker = "automatic session attendance"

	// UngroupedSessionMarker tags an ungrouped session reused for a grouped or ungrouped cohort.
	UngroupedSessionMarker = "session not normalized"
)

// Attendance log defaults
const (
	// AutomatedActor is the taken-by marker of every row written by the engine.
	AutomatedActor = "attendance-reconciler"

	// AttendanceRemark prefixes every remark the engine writes.
	AttendanceRemark = "Auto attendance"

	// RemarkTimeLayout formats the join/leave window in remarks.
	RemarkTimeLayout = "15:04"
)

// Reconciliation defaults
const (
	// DefaultMinPercentage is the minimum attended share of the session for a non-absent status.
	DefaultMinPercentage = 80.0

	// DefaultIrregularMinDurationMinutes flags meetings shorter than this.
	DefaultIrregularMinDurationMinutes = 15

	// DefaultIrregularMinParticipants flags meetings with fewer participants than this.
	DefaultIrregularMinParticipants = 5

	// SessionMatchWindow is how far from the cohort date an existing session may be.
	SessionMatchWindow = 24 * time.Hour
)

// Run loop defaults
const (
	// DefaultMaxDaysPerRun bounds the number of days one run processes.
	DefaultMaxDaysPerRun = 90

	// DefaultMaxExecutionTime is the wall-clock budget of one run.
	DefaultMaxExecutionTime = 50 * time.Minute

	// DefaultDayPause is the pause between two processed days.
	DefaultDayPause = 100 * time.Millisecond
)

// Source filters
const (
	// MinMeetingDurationMinutes drops meeting instances at or under this duration.
	MinMeetingDurationMinutes = 1

	// MinMeetingParticipants drops meeting instances at or under this participant count.
	MinMeetingParticipants = 1
)
