// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// SessionResolver finds or creates the session a cohort is reconciled into.
type SessionResolver struct {
	SessionRepository domain.SessionRepository
	DataSource        domain.DataSource
	Detector          *IrregularMeetingDetector
	Window            time.Duration
	now               func() time.Time
}

// NewSessionResolver creates a new SessionResolver.
func NewSessionResolver(sessionRepository domain.SessionRepository, dataSource domain.DataSource, detector *IrregularMeetingDetector) *SessionResolver {
	if detector == nil {
		detector = NewIrregularMeetingDetector(0, 0)
	}
	return &SessionResolver{
		SessionRepository: sessionRepository,
		DataSource:        dataSource,
		Detector:          detector,
		Window:            constants.SessionMatchWindow,
		now:               time.Now,
	}
}

// ServiceReady checks if the resolver is ready for use.
func (r *SessionResolver) ServiceReady() bool {
	return r.SessionRepository != nil && r.DataSource != nil
}

// Resolve returns the session for the cohort identified by
// (activityID, meetingID, groupID) on sessionDate.
//
// A session of the same group within the window wins; a grouped cohort then
// falls back to an ungrouped session; otherwise a new session is created from
// the meeting metadata. participantCount feeds the irregularity check of a
// newly created session, which is dated at the meeting start.
func (r *SessionResolver) Resolve(ctx context.Context, activityID, meetingID, groupID string, sessionDate time.Time, participantCount int) (*models.Session, error) {
	if !r.ServiceReady() {
		slog.ErrorContext(ctx, "session resolver not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("session resolver not initialized")
	}
	if activityID == "" {
		return nil, domain.NewConfigMissingError("attendance activity is required")
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))
	ctx = logging.AppendCtx(ctx, slog.String("group_id", groupID))

	from, to := sessionDate.Add(-r.Window), sessionDate.Add(r.Window)

	// Same group first; for an ungrouped cohort this is already the ungrouped search.
	candidates, err := r.SessionRepository.ListSessionsInWindow(ctx, activityID, models.NormalizeGroupID(groupID), from, to)
	if err != nil {
		return nil, err
	}
	if session := nearestSession(candidates, sessionDate); session != nil {
		slog.DebugContext(ctx, "matched session of the same group", "session_uid", session.UID)
		marker := constants.UngroupedSessionMarker
		if models.IsGroupedID(groupID) {
			marker = constants.GroupedSessionMarker
		}
		return r.mark(ctx, session, marker)
	}

	if models.IsGroupedID(groupID) {
		candidates, err = r.SessionRepository.ListSessionsInWindow(ctx, activityID, models.UngroupedID, from, to)
		if err != nil {
			return nil, err
		}
		if session := nearestSession(candidates, sessionDate); session != nil {
			slog.DebugContext(ctx, "matched ungrouped session for grouped cohort", "session_uid", session.UID)
			return r.mark(ctx, session, constants.UngroupedSessionMarker)
		}
	}

	return r.create(ctx, activityID, meetingID, groupID, participantCount)
}

func (r *SessionResolver) mark(ctx context.Context, session *models.Session, marker string) (*models.Session, error) {
	if !session.AddMarker(marker) {
		return session, nil
	}
	if err := r.SessionRepository.UpdateSession(ctx, session); err != nil {
		slog.ErrorContext(ctx, "error updating session description", logging.ErrKey, err, "session_uid", session.UID)
		return nil, err
	}
	return session, nil
}

func (r *SessionResolver) create(ctx context.Context, activityID, meetingID, groupID string, participantCount int) (*models.Session, error) {
	meta, err := r.DataSource.GetMeetingMetadata(ctx, meetingID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			return nil, domain.NewMeetingDataMissingError(fmt.Sprintf("meeting %s has no metadata", meetingID), err)
		}
		return nil, err
	}
	if !meta.HasTimes() {
		return nil, domain.NewMeetingDataMissingError(fmt.Sprintf("meeting %s has no start or end time", meetingID))
	}
	if !meta.EndTime.After(meta.StartTime) {
		return nil, domain.NewMeetingDataMissingError(fmt.Sprintf("meeting %s ends before it starts", meetingID))
	}

	duration := meta.DurationMinutes()
	if duration <= 0 {
		return nil, domain.NewInvalidDurationError(fmt.Sprintf("meeting %s lasted under a minute", meetingID))
	}

	if participantCount <= 0 {
		participantCount = meta.ParticipantCount
	}
	report := r.Detector.Detect(meta, participantCount)

	description := strings.TrimSpace(meta.Topic)
	if report.Irregular {
		description = strings.TrimSpace(description + " [" + report.Reason() + "]")
	}

	now := r.now()
	session := &models.Session{
		UID:                  uuid.New().String(),
		AttendanceActivityID: activityID,
		GroupID:              models.NormalizeGroupID(groupID),
		MeetingID:            meetingID,
		SessionDate:          meta.StartTime,
		DurationMinutes:      duration,
		Description:          description,
		StudentsCanMark:      false,
		CalendarEvent:        false,
		IncludeQRCode:        false,
		Geofencing:           false,
		CreatedAt:            &now,
		UpdatedAt:            &now,
	}
	if err := r.SessionRepository.CreateSession(ctx, session); err != nil {
		slog.ErrorContext(ctx, "error creating session", logging.ErrKey, err)
		return nil, err
	}

	slog.InfoContext(ctx, "created session",
		"session_uid", session.UID,
		"duration_minutes", duration,
		"irregular", report.Irregular,
	)
	return session, nil
}

// nearestSession picks the candidate closest to date; ties go to the earlier
// session, then to the lower UID.
func nearestSession(candidates []*models.Session, date time.Time) *models.Session {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]*models.Session, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := absDuration(sorted[i].SessionDate.Sub(date)), absDuration(sorted[j].SessionDate.Sub(date))
		if di != dj {
			return di < dj
		}
		if !sorted[i].SessionDate.Equal(sorted[j].SessionDate) {
			return sorted[i].SessionDate.Before(sorted[j].SessionDate)
		}
		return sorted[i].UID < sorted[j].UID
	})
	return sorted[0]
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
