// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/akamensky/base58"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// Cohort is the set of participants of one meeting occurrence within one group.
type Cohort struct {
	Key          string
	MeetingID    string
	GroupID      string
	SessionDate  time.Time
	Participants []models.RawParticipant
}

// IsGrouped reports whether the cohort belongs to a real group.
func (c *Cohort) IsGrouped() bool {
	return models.IsGroupedID(c.GroupID)
}

// CohortKey builds a collision-free key for (meetingID, groupID).
// Each component is base58 encoded, so the '_' separator never appears inside one.
func CohortKey(meetingID, groupID string) string {
	return "m" + base58.Encode([]byte(meetingID)) + "_g" + base58.Encode([]byte(models.NormalizeGroupID(groupID)))
}

// ParseCohortKey is the inverse of CohortKey.
func ParseCohortKey(key string) (meetingID, groupID string, err error) {
	meetingPart, groupPart, ok := strings.Cut(key, "_g")
	if !ok || !strings.HasPrefix(meetingPart, "m") {
		return "", "", fmt.Errorf("malformed cohort key %q", key)
	}
	meeting, err := base58.Decode(strings.TrimPrefix(meetingPart, "m"))
	if err != nil {
		return "", "", fmt.Errorf("decode meeting id: %w", err)
	}
	group, err := base58.Decode(groupPart)
	if err != nil {
		return "", "", fmt.Errorf("decode group id: %w", err)
	}
	return string(meeting), string(group), nil
}

// BuildCohorts groups participants by (MeetingID, GroupID). The session date of a
// cohort is the earliest known join time of its members. Cohorts are returned in
// ascending session date order, then by key.
func BuildCohorts(participants []models.RawParticipant) []*Cohort {
	byKey := make(map[string]*Cohort)
	for _, p := range participants {
		key := CohortKey(p.MeetingID, p.GroupID)
		cohort, ok := byKey[key]
		if !ok {
			cohort = &Cohort{
				Key:       key,
				MeetingID: p.MeetingID,
				GroupID:   models.NormalizeGroupID(p.GroupID),
			}
			byKey[key] = cohort
		}
		if !p.JoinTime.IsZero() && (cohort.SessionDate.IsZero() || p.JoinTime.Before(cohort.SessionDate)) {
			cohort.SessionDate = p.JoinTime
		}
		cohort.Participants = append(cohort.Participants, p)
	}

	cohorts := make([]*Cohort, 0, len(byKey))
	for _, c := range byKey {
		cohorts = append(cohorts, c)
	}
	sort.Slice(cohorts, func(i, j int) bool {
		if !cohorts[i].SessionDate.Equal(cohorts[j].SessionDate) {
			return cohorts[i].SessionDate.Before(cohorts[j].SessionDate)
		}
		return cohorts[i].Key < cohorts[j].Key
	})
	return cohorts
}
