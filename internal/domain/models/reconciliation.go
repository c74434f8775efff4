// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"time"
)

// ReconciliationResult is the outcome of processing a single day.
// Exactly one of Completed, CaughtUp or NoMoreData is set on success.
type ReconciliationResult struct {
	Completed         bool      `json:"completed"`
	CaughtUp          bool      `json:"caught_up"`
	NoMoreData        bool      `json:"no_more_data"`
	Date              time.Time `json:"date"`
	AbsentCount       int       `json:"absent_count"`
	MeetingsScheduled bool      `json:"meetings_scheduled"`
}

// DayReport summarizes what the reconciler did with one day of participants.
type DayReport struct {
	Cohorts          int `json:"cohorts"`
	SessionsResolved int `json:"sessions_resolved"`
	CohortsFailed    int `json:"cohorts_failed"`
	Recorded         int `json:"recorded"`
	Teachers         int `json:"teachers"`
	Skipped          int `json:"skipped"`
	Absent           int `json:"absent"`
}

// Add accumulates another report into r.
func (r *DayReport) Add(other DayReport) {
	r.Cohorts += other.Cohorts
	r.SessionsResolved += other.SessionsResolved
	r.CohortsFailed += other.CohortsFailed
	r.Recorded += other.Recorded
	r.Teachers += other.Teachers
	r.Skipped += other.Skipped
	r.Absent += other.Absent
}

// RunStopReason explains why a chunked run ended.
type RunStopReason string

const (
	StopCaughtUp   RunStopReason = "caught_up"
	StopNoMoreData RunStopReason = "no_more_data"
	StopMaxDays    RunStopReason = "max_days"
	StopTimeBudget RunStopReason = "time_budget"
	StopCancelled  RunStopReason = "cancelled"
)

// RunSummary is returned by one chunked run over an installation.
type RunSummary struct {
	InstallationID string        `json:"installation_id"`
	DaysProcessed  int           `json:"days_processed"`
	DaysSkipped    int           `json:"days_skipped"`
	AbsentCount    int           `json:"absent_count"`
	LastDate       time.Time     `json:"last_date,omitempty"`
	StopReason     RunStopReason `json:"stop_reason"`
	Elapsed        time.Duration `json:"elapsed"`
}
