// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// DailyIngestionCursor reconciles an installation one calendar day at a time.
// Installation date fields are calendar dates: only their year, month and day
// are meaningful, and day boundaries are taken in the installation timezone.
type DailyIngestionCursor struct {
	InstallationRepository domain.InstallationRepository
	SkippedDayRepository   domain.SkippedDayRepository
	DataSource             domain.DataSource
	Reconciler             *AttendanceReconciler
	Publisher              domain.EventPublisher
	now                    func() time.Time
}

// NewDailyIngestionCursor creates a new DailyIngestionCursor. publisher may be nil.
func NewDailyIngestionCursor(
	installationRepository domain.InstallationRepository,
	skippedDayRepository domain.SkippedDayRepository,
	dataSource domain.DataSource,
	reconciler *AttendanceReconciler,
	publisher domain.EventPublisher,
) *DailyIngestionCursor {
	return &DailyIngestionCursor{
		InstallationRepository: installationRepository,
		SkippedDayRepository:   skippedDayRepository,
		DataSource:             dataSource,
		Reconciler:             reconciler,
		Publisher:              publisher,
		now:                    time.Now,
	}
}

// ServiceReady checks if the cursor is ready for use.
func (c *DailyIngestionCursor) ServiceReady() bool {
	return c.InstallationRepository != nil &&
		c.DataSource != nil &&
		c.Reconciler != nil
}

// DayWindow is the half-open interval [Start, End) of one calendar day.
type DayWindow struct {
	Start time.Time
	End   time.Time
}

// NextDay returns the day after the cursor, or the start date when the cursor
// is unset. Successive days come from a daily recurrence anchored at local
// midnight, so DST changes never shift a day boundary.
func NextDay(installation *models.Installation) (DayWindow, error) {
	loc := installation.Location()
	start := calendarDay(installation.StartDate, loc)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.DAILY,
		Dtstart: start,
	})
	if err != nil {
		return DayWindow{}, fmt.Errorf("build daily recurrence: %w", err)
	}

	target := start
	if installation.LastProcessedDate != nil {
		last := calendarDay(*installation.LastProcessedDate, loc)
		if !last.Before(start) {
			target = rule.After(last, false)
		}
	}
	if target.IsZero() {
		return DayWindow{}, fmt.Errorf("no day after %s", installation.LastProcessedDate)
	}

	end := rule.After(target, false)
	if end.IsZero() {
		end = target.AddDate(0, 0, 1)
	}
	return DayWindow{Start: target, End: end}, nil
}

// Process reconciles the next pending day of the installation.
//
// On success exactly one of Completed, CaughtUp or NoMoreData is set. On error
// the cursor is untouched and the returned result carries the failing date so
// the caller can decide to skip it.
func (c *DailyIngestionCursor) Process(ctx context.Context, installationID string) (models.ReconciliationResult, error) {
	result := models.ReconciliationResult{}

	if !c.ServiceReady() {
		slog.ErrorContext(ctx, "ingestion cursor not initialized", logging.PriorityCritical())
		return result, domain.NewUnavailableError("ingestion cursor not initialized")
	}

	ctx = logging.AppendCtx(ctx, slog.String("installation_id", installationID))

	installation, revision, err := c.loadInstallation(ctx, installationID)
	if err != nil {
		return result, err
	}

	window, err := NextDay(installation)
	if err != nil {
		return result, domain.NewConfigMissingError("cannot compute next day", err)
	}
	result.Date = window.Start
	ctx = logging.AppendCtx(ctx, slog.String("day", window.Start.Format(time.DateOnly)))

	loc := installation.Location()
	today := calendarDay(c.now().In(loc), loc)
	if !window.Start.Before(today) {
		slog.DebugContext(ctx, "installation caught up")
		result.CaughtUp = true
		return result, nil
	}

	if installation.EndDate != nil && window.Start.After(calendarDay(*installation.EndDate, loc)) {
		slog.DebugContext(ctx, "installation schedule exhausted")
		result.NoMoreData = true
		return result, nil
	}

	day, err := c.DataSource.ListParticipants(ctx, installation, window.Start, window.End)
	if err != nil {
		slog.WarnContext(ctx, "error listing participants", logging.ErrKey, err)
		return result, err
	}
	if day == nil {
		day = &models.DayParticipants{}
	}
	result.MeetingsScheduled = day.MeetingsScheduled

	report, err := c.Reconciler.Reconcile(ctx, installation, day.Participants)
	if err != nil {
		slog.ErrorContext(ctx, "error reconciling day", logging.ErrKey, err)
		return result, err
	}

	committed := window.Start
	installation.LastProcessedDate = &committed
	if err := c.InstallationRepository.UpdateInstallation(ctx, installation, revision); err != nil {
		slog.ErrorContext(ctx, "error advancing cursor", logging.ErrKey, err)
		return result, err
	}

	result.Completed = true
	result.AbsentCount = report.Absent

	slog.InfoContext(ctx, "day reconciled",
		"participants", len(day.Participants),
		"meetings_scheduled", day.MeetingsScheduled,
		"cohorts", report.Cohorts,
		"cohorts_failed", report.CohortsFailed,
		"recorded", report.Recorded,
		"absent", report.Absent,
	)

	if c.Publisher != nil {
		event := models.DayReconciledEvent{
			InstallationID:    installation.ID,
			CourseID:          installation.CourseID,
			Day:               window.Start,
			AbsentCount:       report.Absent,
			MeetingsScheduled: day.MeetingsScheduled,
		}
		if err := c.Publisher.PublishDayReconciled(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish day reconciled event", logging.ErrKey, err)
		}
	}

	return result, nil
}

// ForceAdvance moves the cursor past day after a recoverable failure and keeps
// an audit record of the skip. The cursor never moves backwards.
func (c *DailyIngestionCursor) ForceAdvance(ctx context.Context, installationID string, day time.Time, cause error) error {
	ctx = logging.AppendCtx(ctx, slog.String("installation_id", installationID))
	ctx = logging.AppendCtx(ctx, slog.String("day", day.Format(time.DateOnly)))

	installation, revision, err := c.loadInstallation(ctx, installationID)
	if err != nil {
		return err
	}

	loc := installation.Location()
	skipped := calendarDay(day, loc)
	if installation.LastProcessedDate == nil || calendarDay(*installation.LastProcessedDate, loc).Before(skipped) {
		installation.LastProcessedDate = &skipped
		if err := c.InstallationRepository.UpdateInstallation(ctx, installation, revision); err != nil {
			slog.ErrorContext(ctx, "error force-advancing cursor", logging.ErrKey, err)
			return err
		}
	}

	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	errorType := domain.GetErrorType(cause).String()

	slog.WarnContext(ctx, "day skipped after recoverable error",
		logging.ErrKey, cause,
		"error_type", errorType,
		logging.PriorityCritical(),
	)

	if c.SkippedDayRepository != nil {
		record := &models.SkippedDay{
			InstallationID: installationID,
			Day:            skipped,
			Reason:         reason,
			ErrorType:      errorType,
			SkippedAt:      c.now(),
		}
		if err := c.SkippedDayRepository.RecordSkippedDay(ctx, record); err != nil {
			slog.WarnContext(ctx, "failed to record skipped day", logging.ErrKey, err)
		}
	}

	if c.Publisher != nil {
		event := models.DaySkippedEvent{
			InstallationID: installationID,
			CourseID:       installation.CourseID,
			Day:            skipped,
			Reason:         reason,
			ErrorType:      errorType,
		}
		if err := c.Publisher.PublishDaySkipped(ctx, event); err != nil {
			slog.WarnContext(ctx, "failed to publish day skipped event", logging.ErrKey, err)
		}
	}

	return nil
}

func (c *DailyIngestionCursor) loadInstallation(ctx context.Context, installationID string) (*models.Installation, uint64, error) {
	installation, revision, err := c.InstallationRepository.GetInstallationWithRevision(ctx, installationID)
	if err != nil {
		if domain.IsErrorType(err, domain.ErrorTypeNotFound) {
			return nil, 0, domain.NewConfigMissingError(fmt.Sprintf("installation %s not found", installationID), err)
		}
		slog.ErrorContext(ctx, "error loading installation", logging.ErrKey, err)
		return nil, 0, err
	}
	if installation.AttendanceActivityID == "" {
		return nil, 0, domain.NewConfigMissingError(fmt.Sprintf("installation %s has no attendance activity", installationID))
	}
	if installation.StartDate.IsZero() {
		return nil, 0, domain.NewConfigMissingError(fmt.Sprintf("installation %s has no start date", installationID))
	}
	return installation, revision, nil
}

// calendarDay returns local midnight of t's calendar date in loc.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
