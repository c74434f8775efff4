// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package zoom

import (
	"sort"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/identity"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/infrastructure/zoom/api"
)

// aggregateSegments folds join/leave segments into one participant per roster
// user: earliest join, latest leave and the summed duration. It also returns the
// display names that could not be resolved, once each.
func aggregateSegments(matcher *identity.Matcher, segments []api.ReportParticipant) ([]models.RawParticipant, []string) {
	byUser := make(map[string]*models.RawParticipant)
	seenUnresolved := make(map[string]bool)
	var unresolved []string

	for _, seg := range segments {
		user, _ := matcher.Match(seg.Name, seg.UserEmail)
		if user == nil {
			if !seenUnresolved[seg.Name] {
				seenUnresolved[seg.Name] = true
				unresolved = append(unresolved, seg.Name)
			}
			continue
		}

		agg, ok := byUser[user.ID]
		if !ok {
			agg = &models.RawParticipant{
				UserID:         user.ID,
				ProviderUserID: seg.StableID(),
				Name:           seg.Name,
				Email:          seg.UserEmail,
			}
			byUser[user.ID] = agg
		}
		if !seg.JoinTime.IsZero() && (agg.JoinTime.IsZero() || seg.JoinTime.Before(agg.JoinTime)) {
			agg.JoinTime = seg.JoinTime.Time
		}
		if seg.LeaveTime.After(agg.LeaveTime) {
			agg.LeaveTime = seg.LeaveTime.Time
		}
		agg.DurationMinutes += float64(seg.Duration) / 60
	}

	attendees := make([]models.RawParticipant, 0, len(byUser))
	for _, agg := range byUser {
		attendees = append(attendees, *agg)
	}
	sort.Slice(attendees, func(i, j int) bool { return attendees[i].UserID < attendees[j].UserID })
	return attendees, unresolved
}

// usersWithVideo returns the roster users that had their camera on at any point.
func usersWithVideo(matcher *identity.Matcher, metrics []api.MetricsParticipant) map[string]bool {
	video := make(map[string]bool)
	for _, m := range metrics {
		if !m.HasVideo {
			continue
		}
		if user, _ := matcher.Match(m.UserName, m.Email); user != nil {
			video[user.ID] = true
		}
	}
	return video
}
