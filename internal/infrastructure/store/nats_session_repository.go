// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// NatsSessionRepository is the NATS KV store repository for attendance sessions.
//
// Sessions are stored under their UID. Each session also has an index entry
// index/activity/<activity>/<group>/<unix date>/<uid> so the sessions of one
// activity and group can be found by time without reading every session.
type NatsSessionRepository struct {
	base *NatsBaseRepository[models.Session]
	keys *KeyBuilder
}

// NewNatsSessionRepository creates a new NATS KV store repository for sessions.
func NewNatsSessionRepository(sessions INatsKeyValue) *NatsSessionRepository {
	return &NatsSessionRepository{
		base: NewNatsBaseRepository[models.Session](sessions, "session"),
		keys: NewKeyBuilder(""),
	}
}

func (r *NatsSessionRepository) indexKey(session *models.Session) string {
	return r.keys.IndexKeyEncoded(KeyPrefixIndexActivity,
		session.AttendanceActivityID,
		models.NormalizeGroupID(session.GroupID),
		strconv.FormatInt(session.SessionDate.Unix(), 10),
		session.UID,
	)
}

// GetSession returns the session with the given UID.
func (r *NatsSessionRepository) GetSession(ctx context.Context, uid string) (*models.Session, error) {
	return r.base.Get(ctx, uid)
}

// CreateSession stores a new session and its index entry. A UID is generated when missing.
func (r *NatsSessionRepository) CreateSession(ctx context.Context, session *models.Session) error {
	if session.AttendanceActivityID == "" {
		return domain.NewValidationError("session attendance activity is required")
	}
	if session.UID == "" {
		session.UID = uuid.New().String()
	}
	session.GroupID = models.NormalizeGroupID(session.GroupID)

	now := time.Now().UTC()
	session.CreatedAt = &now
	session.UpdatedAt = &now

	created, err := r.base.CreateIfAbsent(ctx, session.UID, session)
	if err != nil {
		return err
	}
	if !created {
		return domain.NewConflictError(fmt.Sprintf("session %s already exists", session.UID))
	}

	// A session without its index entry is invisible to window lookups.
	if err := r.base.PutIndex(ctx, r.indexKey(session)); err != nil {
		if delErr := r.base.Delete(ctx, session.UID); delErr != nil {
			slog.ErrorContext(ctx, "unindexed session left behind", logging.ErrKey, delErr, "session_uid", session.UID)
		}
		return err
	}
	return nil
}

// UpdateSession replaces a stored session, moving its index entry when the
// activity, group or date changed.
func (r *NatsSessionRepository) UpdateSession(ctx context.Context, session *models.Session) error {
	current, revision, err := r.base.GetWithRevision(ctx, session.UID)
	if err != nil {
		return err
	}

	session.GroupID = models.NormalizeGroupID(session.GroupID)
	session.CreatedAt = current.CreatedAt
	now := time.Now().UTC()
	session.UpdatedAt = &now

	if _, err := r.base.Update(ctx, session.UID, session, revision); err != nil {
		return err
	}

	oldIndex, newIndex := r.indexKey(current), r.indexKey(session)
	if oldIndex == newIndex {
		return nil
	}
	if err := r.base.PutIndex(ctx, newIndex); err != nil {
		return err
	}
	if err := r.base.DeleteIndex(ctx, oldIndex); err != nil {
		slog.WarnContext(ctx, "stale session index left behind", logging.ErrKey, err, "session_uid", session.UID)
	}
	return nil
}

// ListSessionsInWindow returns the sessions of the activity and group dated
// within [from, to], ordered by date.
func (r *NatsSessionRepository) ListSessionsInWindow(ctx context.Context, activityID, groupID string, from, to time.Time) ([]*models.Session, error) {
	prefix := r.keys.PrefixEncoded(KeyPrefixIndex, KeyPrefixIndexActivity, activityID, models.NormalizeGroupID(groupID))
	indexKeys, err := r.base.ListKeysWithPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var uids []string
	for _, key := range indexKeys {
		parts, err := r.keys.DecodeParts(key)
		if err != nil || len(parts) != 6 {
			slog.WarnContext(ctx, "malformed session index key, skipping", "key", key)
			continue
		}
		unix, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			slog.WarnContext(ctx, "malformed session index date, skipping", "key", key, logging.ErrKey, err)
			continue
		}
		date := time.Unix(unix, 0)
		if date.Before(from.Truncate(time.Second)) || date.After(to) {
			continue
		}
		uids = append(uids, parts[5])
	}

	sessions, err := r.base.ListEntities(ctx, uids)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].SessionDate.Before(sessions[j].SessionDate) })
	return sessions, nil
}

var _ domain.SessionRepository = (*NatsSessionRepository)(nil)
