// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// memorySessionRepository is an in-memory SessionRepository for reconciliation tests.
type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func newMemorySessionRepository() *memorySessionRepository {
	return &memorySessionRepository{sessions: make(map[string]*models.Session)}
}

func (m *memorySessionRepository) GetSession(_ context.Context, uid string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[uid]
	if !ok {
		return nil, domain.NewNotFoundError("session not found")
	}
	cp := *s
	return &cp, nil
}

func (m *memorySessionRepository) CreateSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *session
	m.sessions[session.UID] = &cp
	return nil
}

func (m *memorySessionRepository) UpdateSession(_ context.Context, session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.UID]; !ok {
		return domain.NewNotFoundError("session not found")
	}
	cp := *session
	m.sessions[session.UID] = &cp
	return nil
}

func (m *memorySessionRepository) ListSessionsInWindow(_ context.Context, activityID, groupID string, from, to time.Time) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Session
	for _, s := range m.sessions {
		if s.AttendanceActivityID != activityID || models.NormalizeGroupID(s.GroupID) != models.NormalizeGroupID(groupID) {
			continue
		}
		if s.SessionDate.Before(from) || s.SessionDate.After(to) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memorySessionRepository) all() []*models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionDate.Before(out[j].SessionDate) })
	return out
}

// memoryAttendanceLogRepository is an in-memory AttendanceLogRepository.
type memoryAttendanceLogRepository struct {
	mu      sync.Mutex
	entries map[[2]string]*models.AttendanceLogEntry
	writes  int
}

func newMemoryAttendanceLogRepository() *memoryAttendanceLogRepository {
	return &memoryAttendanceLogRepository{entries: make(map[[2]string]*models.AttendanceLogEntry)}
}

func (m *memoryAttendanceLogRepository) GetEntry(_ context.Context, sessionUID, userID string) (*models.AttendanceLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[[2]string{sessionUID, userID}]
	if !ok {
		return nil, domain.NewNotFoundError("entry not found")
	}
	cp := *e
	return &cp, nil
}

func (m *memoryAttendanceLogRepository) UpsertEntry(_ context.Context, entry *models.AttendanceLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries[[2]string{entry.SessionUID, entry.UserID}] = &cp
	m.writes++
	return nil
}

func (m *memoryAttendanceLogRepository) CreateEntryIfAbsent(_ context.Context, entry *models.AttendanceLogEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{entry.SessionUID, entry.UserID}
	if _, ok := m.entries[key]; ok {
		return false, nil
	}
	cp := *entry
	m.entries[key] = &cp
	m.writes++
	return true, nil
}

func (m *memoryAttendanceLogRepository) ListSessionEntries(_ context.Context, sessionUID string) ([]*models.AttendanceLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AttendanceLogEntry
	for key, e := range m.entries {
		if key[0] == sessionUID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// snapshot returns the entries keyed by "session/user" with the volatile time removed.
func (m *memoryAttendanceLogRepository) snapshot() map[string]models.AttendanceLogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]models.AttendanceLogEntry, len(m.entries))
	for key, e := range m.entries {
		cp := *e
		cp.TimeTaken = time.Time{}
		out[key[0]+"/"+key[1]] = cp
	}
	return out
}

// memoryInstallationRepository is an in-memory InstallationRepository with revisions.
type memoryInstallationRepository struct {
	mu        sync.Mutex
	items     map[string]*models.Installation
	revisions map[string]uint64
	updateErr error
}

func newMemoryInstallationRepository(installations ...*models.Installation) *memoryInstallationRepository {
	repo := &memoryInstallationRepository{
		items:     make(map[string]*models.Installation),
		revisions: make(map[string]uint64),
	}
	for _, inst := range installations {
		cp := *inst
		repo.items[inst.ID] = &cp
		repo.revisions[inst.ID] = 1
	}
	return repo
}

func (m *memoryInstallationRepository) GetInstallation(ctx context.Context, id string) (*models.Installation, error) {
	inst, _, err := m.GetInstallationWithRevision(ctx, id)
	return inst, err
}

func (m *memoryInstallationRepository) GetInstallationWithRevision(_ context.Context, id string) (*models.Installation, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.items[id]
	if !ok {
		return nil, 0, domain.NewNotFoundError("installation not found")
	}
	cp := *inst
	return &cp, m.revisions[id], nil
}

func (m *memoryInstallationRepository) CreateInstallation(_ context.Context, installation *models.Installation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *installation
	m.items[installation.ID] = &cp
	m.revisions[installation.ID] = 1
	return nil
}

func (m *memoryInstallationRepository) UpdateInstallation(_ context.Context, installation *models.Installation, revision uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.revisions[installation.ID] != revision {
		return domain.NewConflictError("revision mismatch")
	}
	cp := *installation
	m.items[installation.ID] = &cp
	m.revisions[installation.ID]++
	return nil
}

func (m *memoryInstallationRepository) ListInstallations(_ context.Context) ([]*models.Installation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Installation, 0, len(m.items))
	for _, inst := range m.items {
		cp := *inst
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryInstallationRepository) cursor(id string) *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inst, ok := m.items[id]; ok && inst.LastProcessedDate != nil {
		d := *inst.LastProcessedDate
		return &d
	}
	return nil
}

// memorySkippedDayRepository is an in-memory SkippedDayRepository.
type memorySkippedDayRepository struct {
	mu   sync.Mutex
	days []*models.SkippedDay
}

func (m *memorySkippedDayRepository) RecordSkippedDay(_ context.Context, day *models.SkippedDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *day
	m.days = append(m.days, &cp)
	return nil
}

func (m *memorySkippedDayRepository) ListSkippedDays(_ context.Context, installationID string) ([]*models.SkippedDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.SkippedDay
	for _, d := range m.days {
		if d.InstallationID == installationID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}
