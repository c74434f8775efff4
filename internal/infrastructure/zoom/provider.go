// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package zoom adapts the Zoom REST API to the attendance data source.
package zoom

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/identity"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/zoom/api"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// Provider reads meeting participation from Zoom.
type Provider struct {
	client api.ClientAPI
	roster domain.RosterProvider
	queue  domain.RecordingQueue
	now    func() time.Time

	mu       sync.RWMutex
	metadata map[string]*models.MeetingMetadata
}

// Ensure Provider implements DataSource
var _ domain.DataSource = (*Provider)(nil)

// NewProvider creates a Zoom data source. queue may be nil when recordings are not backed up.
func NewProvider(client api.ClientAPI, roster domain.RosterProvider, queue domain.RecordingQueue) *Provider {
	return &Provider{
		client:   client,
		roster:   roster,
		queue:    queue,
		now:      time.Now,
		metadata: make(map[string]*models.MeetingMetadata),
	}
}

// occurrence is an in-day meeting instance that passed the size checks.
type occurrence struct {
	meeting string
	details *api.PastMeetingDetails
}

// membership is the course role and groups of one roster user, looked up once
// per ListParticipants call.
type membership struct {
	role   models.ParticipantRole
	groups []string
}

// ListParticipants implements domain.DataSource.
func (p *Provider) ListParticipants(ctx context.Context, installation *models.Installation, dayStart, dayEnd time.Time) (*models.DayParticipants, error) {
	ctx = logging.AppendCtx(ctx, slog.String("course_id", installation.CourseID))

	scheduled, occurrences, err := p.occurrencesInDay(ctx, installation, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	result := &models.DayParticipants{MeetingsScheduled: scheduled}
	if len(occurrences) == 0 {
		return result, nil
	}

	users, err := p.roster.CourseUsers(ctx, installation.CourseID)
	if err != nil {
		return nil, err
	}
	matcher := identity.NewMatcher(users, installation.UseEmailMatching)
	memberships := make(map[string]membership)

	for _, occ := range occurrences {
		rows, err := p.occurrenceParticipants(ctx, installation, matcher, memberships, occ)
		if err != nil {
			return nil, err
		}
		result.Participants = append(result.Participants, rows...)
	}

	slog.InfoContext(ctx, "collected zoom participants",
		"day", dayStart.Format(time.DateOnly),
		"occurrences", len(occurrences),
		"participants", len(result.Participants),
	)
	return result, nil
}

// occurrencesInDay lists the instances of every installation meeting that
// started within [dayStart, dayEnd). scheduled is true when at least one
// instance fell in the day, even if it was later ignored as too small.
func (p *Provider) occurrencesInDay(ctx context.Context, installation *models.Installation, dayStart, dayEnd time.Time) (bool, []occurrence, error) {
	scheduled := false
	var occurrences []occurrence

	for _, meetingID := range installation.MeetingIDs {
		instances, err := p.client.ListPastMeetingInstances(ctx, meetingID)
		if err != nil {
			if api.IsNotFound(err) {
				slog.WarnContext(ctx, "zoom meeting not found", "meeting_id", meetingID)
				continue
			}
			return false, nil, domain.NewSourceUnavailableError(fmt.Sprintf("failed to list instances of meeting %s", meetingID), err)
		}

		for _, instance := range instances {
			if instance.StartTime.Before(dayStart) || !instance.StartTime.Before(dayEnd) {
				continue
			}
			scheduled = true

			details, err := p.client.GetPastMeeting(ctx, instance.UUID)
			if err != nil {
				if api.IsNotFound(err) {
					slog.WarnContext(ctx, "zoom meeting occurrence not found", "meeting_uuid", instance.UUID)
					continue
				}
				return false, nil, domain.NewSourceUnavailableError(fmt.Sprintf("failed to get meeting occurrence %s", instance.UUID), err)
			}
			if details.UUID == "" {
				details.UUID = instance.UUID
			}
			if details.StartTime.IsZero() {
				details.StartTime = instance.StartTime
			}
			p.cacheMetadata(details)

			if details.Duration <= constants.MinMeetingDurationMinutes || details.ParticipantsCount <= constants.MinMeetingParticipants {
				slog.DebugContext(ctx, "ignoring short or empty meeting occurrence",
					"meeting_uuid", details.UUID,
					"duration", details.Duration,
					"participants_count", details.ParticipantsCount,
				)
				continue
			}
			occurrences = append(occurrences, occurrence{meeting: meetingID, details: details})
		}
	}
	return scheduled, occurrences, nil
}

// occurrenceParticipants resolves the participants of one occurrence to roster
// users and emits one row per group membership.
func (p *Provider) occurrenceParticipants(ctx context.Context, installation *models.Installation, matcher *identity.Matcher, memberships map[string]membership, occ occurrence) ([]models.RawParticipant, error) {
	uuid := occ.details.UUID
	ctx = logging.AppendCtx(ctx, slog.String("meeting_uuid", uuid))

	segments, err := p.client.ListReportParticipants(ctx, uuid)
	if err != nil {
		return nil, domain.NewSourceUnavailableError(fmt.Sprintf("failed to list participants of %s", uuid), err)
	}

	var video map[string]bool
	if installation.CameraRequired {
		metrics, err := p.client.ListMetricsParticipants(ctx, uuid)
		if err != nil {
			return nil, domain.NewSourceUnavailableError(fmt.Sprintf("failed to list participant metrics of %s", uuid), err)
		}
		video = usersWithVideo(matcher, metrics)
	}

	attendees, unresolved := aggregateSegments(matcher, segments)
	for _, name := range unresolved {
		slog.WarnContext(ctx, "participant not matched to a course user",
			"participant_name", name,
			logging.ErrKey, domain.NewIdentityUnresolvedError("no roster user for participant"),
		)
	}

	var rows []models.RawParticipant
	for _, a := range attendees {
		member, err := p.membership(ctx, installation.CourseID, a.UserID, memberships)
		if err != nil {
			return nil, err
		}

		a.MeetingID = uuid
		a.HasVideo = !installation.CameraRequired || video[a.UserID]
		a.Role = member.role
		for _, group := range member.groups {
			row := a
			row.GroupID = group
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (p *Provider) membership(ctx context.Context, courseID, userID string, memberships map[string]membership) (membership, error) {
	if member, ok := memberships[userID]; ok {
		return member, nil
	}

	isTeacher, err := p.roster.IsTeacherRole(ctx, courseID, userID)
	if err != nil {
		return membership{}, err
	}
	groups, err := p.roster.UserGroups(ctx, courseID, userID)
	if err != nil {
		return membership{}, err
	}

	member := membership{role: models.RoleStudent, groups: groups}
	if isTeacher {
		member.role = models.RoleTeacher
	}
	if len(member.groups) == 0 {
		member.groups = []string{models.UngroupedID}
	}
	memberships[userID] = member
	return member, nil
}

// GetMeetingMetadata implements domain.DataSource. meetingID is an occurrence UUID.
func (p *Provider) GetMeetingMetadata(ctx context.Context, meetingID string) (*models.MeetingMetadata, error) {
	p.mu.RLock()
	meta, ok := p.metadata[meetingID]
	p.mu.RUnlock()
	if ok {
		return meta, nil
	}

	details, err := p.client.GetPastMeeting(ctx, meetingID)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, domain.NewMeetingDataMissingError(fmt.Sprintf("meeting occurrence %s not found", meetingID), err)
		}
		return nil, domain.NewSourceUnavailableError(fmt.Sprintf("failed to get meeting occurrence %s", meetingID), err)
	}
	if details.UUID == "" {
		details.UUID = meetingID
	}
	return p.cacheMetadata(details), nil
}

func (p *Provider) cacheMetadata(details *api.PastMeetingDetails) *models.MeetingMetadata {
	meta := &models.MeetingMetadata{
		MeetingID:        details.UUID,
		Topic:            details.Topic,
		StartTime:        details.StartTime.Time,
		EndTime:          details.EndTime.Time,
		ParticipantCount: details.ParticipantsCount,
	}
	p.mu.Lock()
	p.metadata[details.UUID] = meta
	p.mu.Unlock()
	return meta
}

// ProcessRecordings implements domain.DataSource. Recordings of yesterday's
// meetings are queued ahead of older ones.
func (p *Provider) ProcessRecordings(ctx context.Context, installation *models.Installation, dayStart, dayEnd time.Time) (int, error) {
	if p.queue == nil || !installation.BackupRecordings {
		return 0, nil
	}
	ctx = logging.AppendCtx(ctx, slog.String("course_id", installation.CourseID))

	loc := installation.Location()
	yesterday := p.now().In(loc).AddDate(0, 0, -1).Format(time.DateOnly)

	queued := 0
	for _, meetingID := range installation.MeetingIDs {
		instances, err := p.client.ListPastMeetingInstances(ctx, meetingID)
		if err != nil {
			if api.IsNotFound(err) {
				continue
			}
			return queued, domain.NewSourceUnavailableError(fmt.Sprintf("failed to list instances of meeting %s", meetingID), err)
		}

		for _, instance := range instances {
			if instance.StartTime.Before(dayStart) || !instance.StartTime.Before(dayEnd) {
				continue
			}
			recordings, err := p.client.GetMeetingRecordings(ctx, instance.UUID)
			if err != nil {
				return queued, domain.NewSourceUnavailableError(fmt.Sprintf("failed to get recordings of %s", instance.UUID), err)
			}
			file := recordings.BackupCandidate()
			if file == nil {
				continue
			}

			task := models.RecordingBackupTask{
				InstallationID: installation.ID,
				CourseID:       installation.CourseID,
				DeleteSource:   installation.DeleteFromSource,
				Retroactive:    instance.StartTime.In(loc).Format(time.DateOnly) != yesterday,
				File: models.RecordingFile{
					ID:            file.ID,
					MeetingID:     meetingID,
					MeetingUUID:   instance.UUID,
					Topic:         recordings.Topic,
					FileType:      file.FileType,
					FileSize:      file.FileSize,
					DownloadURL:   file.DownloadURL,
					RecordingType: file.RecordingType,
					StartTime:     instance.StartTime.Time,
				},
			}
			enqueued, err := p.queue.EnqueueRecordingBackup(ctx, task)
			if err != nil {
				return queued, err
			}
			if enqueued {
				queued++
			}
		}
	}
	return queued, nil
}
