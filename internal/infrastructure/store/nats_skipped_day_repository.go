// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// NatsSkippedDayRepository keeps the audit trail of force-advanced days as
// MessagePack values keyed by skipped/<installation>/<date>. Skipping the same
// day again overwrites the earlier record.
type NatsSkippedDayRepository struct {
	base *NatsBaseRepository[models.SkippedDay]
	keys *KeyBuilder
}

// NewNatsSkippedDayRepository creates a new NATS KV store repository for skipped days.
func NewNatsSkippedDayRepository(skippedDays INatsKeyValue) *NatsSkippedDayRepository {
	return &NatsSkippedDayRepository{
		base: NewNatsBaseRepositoryWithCodec[models.SkippedDay](skippedDays, "skipped day", MsgpackCodec),
		keys: NewKeyBuilder(""),
	}
}

// RecordSkippedDay stores the record.
func (r *NatsSkippedDayRepository) RecordSkippedDay(ctx context.Context, day *models.SkippedDay) error {
	if day.InstallationID == "" || day.Day.IsZero() {
		return domain.NewValidationError("skipped day requires an installation and a date")
	}
	key := r.keys.CompoundKeyEncoded(KeyPrefixSkippedDay, day.InstallationID, day.Day.Format(time.DateOnly))
	_, err := r.base.Put(ctx, key, day)
	return err
}

// ListSkippedDays returns the skipped days of the installation in date order.
func (r *NatsSkippedDayRepository) ListSkippedDays(ctx context.Context, installationID string) ([]*models.SkippedDay, error) {
	keys, err := r.base.ListKeysWithPrefix(ctx, r.keys.PrefixEncoded(KeyPrefixSkippedDay, installationID))
	if err != nil {
		return nil, err
	}
	days, err := r.base.ListEntities(ctx, keys)
	if err != nil {
		return nil, err
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })
	return days, nil
}

var _ domain.SkippedDayRepository = (*NatsSkippedDayRepository)(nil)
