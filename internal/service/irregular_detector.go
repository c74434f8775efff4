// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// IrregularMeetingDetector flags meetings that are too short or too small.
type IrregularMeetingDetector struct {
	MinDurationMinutes int
	MinParticipants    int
}

// NewIrregularMeetingDetector creates a detector; non-positive thresholds fall back to the defaults.
func NewIrregularMeetingDetector(minDurationMinutes, minParticipants int) *IrregularMeetingDetector {
	if minDurationMinutes <= 0 {
		minDurationMinutes = constants.DefaultIrregularMinDurationMinutes
	}
	if minParticipants <= 0 {
		minParticipants = constants.DefaultIrregularMinParticipants
	}
	return &IrregularMeetingDetector{
		MinDurationMinutes: minDurationMinutes,
		MinParticipants:    minParticipants,
	}
}

// Detect evaluates both checks independently; reasons accumulate.
// The duration check is skipped when the meeting timestamps are unknown.
func (d *IrregularMeetingDetector) Detect(meta *models.MeetingMetadata, participantCount int) models.IrregularityReport {
	report := models.IrregularityReport{}

	if meta.HasTimes() {
		minutes := meta.DurationMinutes()
		if minutes < d.MinDurationMinutes {
			report.Reasons = append(report.Reasons, fmt.Sprintf("short meeting (%d min)", minutes))
		}
	}

	if participantCount < d.MinParticipants {
		report.Reasons = append(report.Reasons, fmt.Sprintf("few participants (%d)", participantCount))
	}

	report.Irregular = len(report.Reasons) > 0
	return report
}
