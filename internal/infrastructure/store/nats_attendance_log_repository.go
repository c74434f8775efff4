// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// NatsAttendanceLogRepository is the NATS KV store repository for attendance log entries.
// An entry is keyed by entry/<session>/<user>, so there is at most one entry per pair.
type NatsAttendanceLogRepository struct {
	base *NatsBaseRepository[models.AttendanceLogEntry]
	keys *KeyBuilder
}

// NewNatsAttendanceLogRepository creates a new NATS KV store repository for attendance log entries.
func NewNatsAttendanceLogRepository(entries INatsKeyValue) *NatsAttendanceLogRepository {
	return &NatsAttendanceLogRepository{
		base: NewNatsBaseRepository[models.AttendanceLogEntry](entries, "attendance log entry"),
		keys: NewKeyBuilder(""),
	}
}

func (r *NatsAttendanceLogRepository) entryKey(sessionUID, userID string) string {
	return r.keys.CompoundKeyEncoded(KeyPrefixEntry, sessionUID, userID)
}

func validateEntry(entry *models.AttendanceLogEntry) error {
	if entry.SessionUID == "" || entry.UserID == "" {
		return domain.NewValidationError("attendance log entry requires a session and a user")
	}
	return nil
}

// GetEntry returns the entry of the user in the session.
func (r *NatsAttendanceLogRepository) GetEntry(ctx context.Context, sessionUID, userID string) (*models.AttendanceLogEntry, error) {
	return r.base.Get(ctx, r.entryKey(sessionUID, userID))
}

// UpsertEntry creates or replaces the entry of the user in the session.
func (r *NatsAttendanceLogRepository) UpsertEntry(ctx context.Context, entry *models.AttendanceLogEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}
	_, err := r.base.Put(ctx, r.entryKey(entry.SessionUID, entry.UserID), entry)
	return err
}

// CreateEntryIfAbsent stores the entry unless the user already has one in the session.
func (r *NatsAttendanceLogRepository) CreateEntryIfAbsent(ctx context.Context, entry *models.AttendanceLogEntry) (bool, error) {
	if err := validateEntry(entry); err != nil {
		return false, err
	}
	return r.base.CreateIfAbsent(ctx, r.entryKey(entry.SessionUID, entry.UserID), entry)
}

// ListSessionEntries returns the entries of a session ordered by user.
func (r *NatsAttendanceLogRepository) ListSessionEntries(ctx context.Context, sessionUID string) ([]*models.AttendanceLogEntry, error) {
	keys, err := r.base.ListKeysWithPrefix(ctx, r.keys.PrefixEncoded(KeyPrefixEntry, sessionUID))
	if err != nil {
		return nil, err
	}
	entries, err := r.base.ListEntities(ctx, keys)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries, nil
}

var _ domain.AttendanceLogRepository = (*NatsAttendanceLogRepository)(nil)
