// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// StatusClassifier decides the attendance status of one participant in one session.
// It is pure and never fails.
type StatusClassifier struct{}

// NewStatusClassifier creates a new StatusClassifier.
func NewStatusClassifier() *StatusClassifier {
	return &StatusClassifier{}
}

// Classify applies the rules in order; the first matching rule wins.
//
//  1. no session duration or no participant duration: absent
//  2. attended share under MinPercentage: absent
//  3. camera required and no video: absent
//  4. unknown join time: present
//  5. joined after start + tolerance (tolerance > 0): late
//  6. otherwise: present
func (c *StatusClassifier) Classify(p *models.RawParticipant, sessionStart time.Time, sessionDurationMinutes int, cfg models.ClassificationConfig) models.AttendanceStatus {
	if p == nil || sessionDurationMinutes <= 0 || p.DurationMinutes <= 0 {
		return models.StatusAbsent
	}

	attendedPercent := AttendedPercent(p.DurationMinutes, sessionDurationMinutes)
	if attendedPercent < cfg.MinPercentage {
		return models.StatusAbsent
	}

	if cfg.CameraRequired && !p.HasVideo {
		return models.StatusAbsent
	}

	if p.JoinTime.IsZero() {
		return models.StatusPresent
	}

	if cfg.LateToleranceMinutes > 0 {
		deadline := sessionStart.Add(time.Duration(cfg.LateToleranceMinutes) * time.Minute)
		if p.JoinTime.After(deadline) {
			return models.StatusLate
		}
	}

	return models.StatusPresent
}

// AttendedPercent returns the share of the session the participant attended, in percent.
func AttendedPercent(participantMinutes float64, sessionDurationMinutes int) float64 {
	if sessionDurationMinutes <= 0 {
		return 0
	}
	return participantMinutes / float64(sessionDurationMinutes) * 100
}
