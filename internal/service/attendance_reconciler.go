// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// AttendanceReconciler turns one day of raw participants into attendance log
// entries, one per roster member per session.
type AttendanceReconciler struct {
	SessionRepository       domain.SessionRepository
	AttendanceLogRepository domain.AttendanceLogRepository
	DataSource              domain.DataSource
	Roster                  domain.RosterProvider
	Resolver                *SessionResolver
	Classifier              *StatusClassifier
	Detector                *IrregularMeetingDetector
	now                     func() time.Time
}

// NewAttendanceReconciler creates a new AttendanceReconciler.
func NewAttendanceReconciler(
	sessionRepository domain.SessionRepository,
	attendanceLogRepository domain.AttendanceLogRepository,
	dataSource domain.DataSource,
	roster domain.RosterProvider,
	detector *IrregularMeetingDetector,
) *AttendanceReconciler {
	if detector == nil {
		detector = NewIrregularMeetingDetector(0, 0)
	}
	return &AttendanceReconciler{
		SessionRepository:       sessionRepository,
		AttendanceLogRepository: attendanceLogRepository,
		DataSource:              dataSource,
		Roster:                  roster,
		Resolver:                NewSessionResolver(sessionRepository, dataSource, detector),
		Classifier:              NewStatusClassifier(),
		Detector:                detector,
		now:                     time.Now,
	}
}

// ServiceReady checks if the reconciler is ready for use.
func (r *AttendanceReconciler) ServiceReady() bool {
	return r.SessionRepository != nil &&
		r.AttendanceLogRepository != nil &&
		r.DataSource != nil &&
		r.Roster != nil &&
		r.Resolver != nil
}

// Reconcile processes every cohort of the given participants. Cohort and
// participant failures are logged and counted; only configuration problems
// abort the call.
func (r *AttendanceReconciler) Reconcile(ctx context.Context, installation *models.Installation, participants []models.RawParticipant) (models.DayReport, error) {
	report := models.DayReport{}

	if !r.ServiceReady() {
		slog.ErrorContext(ctx, "attendance reconciler not initialized", logging.PriorityCritical())
		return report, domain.NewUnavailableError("attendance reconciler not initialized")
	}
	if installation == nil {
		return report, domain.NewConfigMissingError("installation is required")
	}
	if installation.AttendanceActivityID == "" {
		return report, domain.NewConfigMissingError(fmt.Sprintf("installation %s has no attendance activity", installation.ID))
	}

	cohorts := BuildCohorts(participants)
	report.Cohorts = len(cohorts)

	for _, cohort := range cohorts {
		cohortCtx := logging.AppendCtx(ctx, slog.String("cohort_key", cohort.Key))

		cohortReport, err := r.reconcileCohort(cohortCtx, installation, cohort)
		report.Add(cohortReport)
		if err != nil {
			if domain.IsErrorType(err, domain.ErrorTypeConfigMissing) {
				return report, err
			}
			report.CohortsFailed++
			slog.WarnContext(cohortCtx, "skipping cohort",
				logging.ErrKey, err,
				"error_type", domain.GetErrorType(err).String(),
			)
			continue
		}
		report.SessionsResolved++
	}

	return report, nil
}

func (r *AttendanceReconciler) reconcileCohort(ctx context.Context, installation *models.Installation, cohort *Cohort) (models.DayReport, error) {
	report := models.DayReport{}

	meta, metaErr := r.DataSource.GetMeetingMetadata(ctx, cohort.MeetingID)
	if metaErr != nil {
		slog.DebugContext(ctx, "meeting metadata unavailable for irregularity check", logging.ErrKey, metaErr)
		meta = nil
	}

	sessionDate := cohort.SessionDate
	if sessionDate.IsZero() && meta != nil {
		sessionDate = meta.StartTime
	}
	if sessionDate.IsZero() {
		return report, domain.NewMeetingDataMissingError(fmt.Sprintf("no join time or start time for meeting %s", cohort.MeetingID))
	}

	session, err := r.Resolver.Resolve(ctx, installation.AttendanceActivityID, cohort.MeetingID, cohort.GroupID, sessionDate, len(cohort.Participants))
	if err != nil {
		return report, err
	}
	ctx = logging.AppendCtx(ctx, slog.String("session_uid", session.UID))

	irregularReason := ""
	if meta != nil {
		if irregularity := r.Detector.Detect(meta, len(cohort.Participants)); irregularity.Irregular {
			irregularReason = irregularity.Reason()
		}
	}

	loc := installation.Location()
	cfg := installation.ClassificationConfig()

	for i := range cohort.Participants {
		participant := &cohort.Participants[i]
		if err := r.recordParticipant(ctx, session, participant, cfg, loc, irregularReason); err != nil {
			report.Skipped++
			slog.WarnContext(ctx, "skipping participant",
				logging.ErrKey, err,
				"user_id", participant.UserID,
				"error_type", domain.GetErrorType(err).String(),
			)
			continue
		}
		report.Recorded++
		if participant.Role == models.RoleTeacher {
			report.Teachers++
		}
	}

	absent, err := r.backfillAbsentees(ctx, installation, session)
	report.Absent += absent
	if err != nil {
		return report, err
	}

	now := r.now()
	session.LastTaken = &now
	session.LastTakenBy = constants.AutomatedActor
	session.UpdatedAt = &now
	if err := r.SessionRepository.UpdateSession(ctx, session); err != nil {
		slog.WarnContext(ctx, "failed to mark session as taken", logging.ErrKey, err)
	}

	slog.InfoContext(ctx, "reconciled cohort",
		"recorded", report.Recorded,
		"teachers", report.Teachers,
		"skipped", report.Skipped,
		"absent", report.Absent,
	)
	return report, nil
}

func (r *AttendanceReconciler) recordParticipant(ctx context.Context, session *models.Session, participant *models.RawParticipant, cfg models.ClassificationConfig, loc *time.Location, irregularReason string) error {
	if participant.UserID == "" {
		return domain.NewIdentityUnresolvedError(fmt.Sprintf("participant %q has no roster identity", participant.Name))
	}

	existing, err := r.AttendanceLogRepository.GetEntry(ctx, session.UID, participant.UserID)
	if err != nil && !domain.IsErrorType(err, domain.ErrorTypeNotFound) {
		return err
	}
	if existing != nil && existing.TakenBy != constants.AutomatedActor {
		slog.DebugContext(ctx, "keeping manually taken entry", "user_id", participant.UserID, "taken_by", existing.TakenBy)
		return nil
	}

	status := r.Classifier.Classify(participant, session.StartTime(), session.DurationMinutes, cfg)

	entry := &models.AttendanceLogEntry{
		SessionUID: session.UID,
		UserID:     participant.UserID,
		Status:     status,
		Remarks:    BuildRemark(participant, status, loc, irregularReason),
		TimeTaken:  r.now(),
		TakenBy:    constants.AutomatedActor,
	}
	return r.AttendanceLogRepository.UpsertEntry(ctx, entry)
}

// backfillAbsentees inserts an absent entry for every member of the session's
// roster universe that has no entry yet.
func (r *AttendanceReconciler) backfillAbsentees(ctx context.Context, installation *models.Installation, session *models.Session) (int, error) {
	var (
		universe []string
		err      error
	)
	if session.IsGrouped() {
		universe, err = r.Roster.GroupMembers(ctx, session.GroupID)
	} else {
		universe, err = r.Roster.EnrolledUsers(ctx, installation.CourseID)
	}
	if err != nil {
		slog.ErrorContext(ctx, "error loading roster universe", logging.ErrKey, err)
		return 0, err
	}

	absent := 0
	seen := make(map[string]struct{}, len(universe))
	for _, userID := range universe {
		if _, dup := seen[userID]; dup || userID == "" {
			continue
		}
		seen[userID] = struct{}{}

		created, err := r.AttendanceLogRepository.CreateEntryIfAbsent(ctx, &models.AttendanceLogEntry{
			SessionUID: session.UID,
			UserID:     userID,
			Status:     models.StatusAbsent,
			Remarks:    constants.AttendanceRemark,
			TimeTaken:  r.now(),
			TakenBy:    constants.AutomatedActor,
		})
		if err != nil {
			slog.WarnContext(ctx, "failed to backfill absent entry", logging.ErrKey, err, "user_id", userID)
			continue
		}
		if created {
			absent++
		}
	}

	slog.DebugContext(ctx, "backfilled absentees", "universe", len(universe), "absent", absent)
	return absent, nil
}

// BuildRemark renders the remark of an entry: the join and leave window is only
// included for non-absent statuses with both timestamps known.
func BuildRemark(participant *models.RawParticipant, status models.AttendanceStatus, loc *time.Location, irregularReason string) string {
	remark := constants.AttendanceRemark
	if status != models.StatusAbsent && !participant.JoinTime.IsZero() && !participant.LeaveTime.IsZero() {
		if loc == nil {
			loc = time.UTC
		}
		remark += fmt.Sprintf(" / %s - %s",
			participant.JoinTime.In(loc).Format(constants.RemarkTimeLayout),
			participant.LeaveTime.In(loc).Format(constants.RemarkTimeLayout),
		)
	}
	if irregularReason != "" {
		remark += " - " + irregularReason
	}
	return remark
}
