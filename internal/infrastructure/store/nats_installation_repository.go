// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"sort"
	"time"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/pkg/constants"
)

// NatsInstallationRepository is the NATS KV store repository for installations.
// The installation ID is used as the key.
type NatsInstallationRepository struct {
	base *NatsBaseRepository[models.Installation]
}

// NewNatsInstallationRepository creates a new NATS KV store repository for installations.
func NewNatsInstallationRepository(installations INatsKeyValue) *NatsInstallationRepository {
	return &NatsInstallationRepository{
		base: NewNatsBaseRepository[models.Installation](installations, "installation"),
	}
}

// GetInstallation returns the installation with the given ID.
func (r *NatsInstallationRepository) GetInstallation(ctx context.Context, id string) (*models.Installation, error) {
	return r.base.Get(ctx, id)
}

// GetInstallationWithRevision returns the installation and its KV revision.
func (r *NatsInstallationRepository) GetInstallationWithRevision(ctx context.Context, id string) (*models.Installation, uint64, error) {
	return r.base.GetWithRevision(ctx, id)
}

// CreateInstallation stores a new installation. It fails with a conflict when
// the ID is already taken.
func (r *NatsInstallationRepository) CreateInstallation(ctx context.Context, installation *models.Installation) error {
	if installation.ID == "" {
		return domain.NewValidationError("installation ID is required")
	}

	now := time.Now().UTC()
	installation.CreatedAt = &now
	installation.UpdatedAt = &now
	if installation.ProcessingStatus == "" {
		installation.ProcessingStatus = models.ProcessingStatusIdle
	}
	if installation.MinPercentage <= 0 {
		installation.MinPercentage = constants.DefaultMinPercentage
	}

	created, err := r.base.CreateIfAbsent(ctx, installation.ID, installation)
	if err != nil {
		return err
	}
	if !created {
		return domain.NewConflictError("installation " + installation.ID + " already exists")
	}
	return nil
}

// UpdateInstallation writes the installation if its revision is still current.
func (r *NatsInstallationRepository) UpdateInstallation(ctx context.Context, installation *models.Installation, revision uint64) error {
	now := time.Now().UTC()
	installation.UpdatedAt = &now
	_, err := r.base.Update(ctx, installation.ID, installation, revision)
	return err
}

// ListInstallations returns every installation ordered by ID.
func (r *NatsInstallationRepository) ListInstallations(ctx context.Context) ([]*models.Installation, error) {
	keys, err := r.base.ListKeys(ctx)
	if err != nil {
		return nil, err
	}
	installations, err := r.base.ListEntities(ctx, keys)
	if err != nil {
		return nil, err
	}
	sort.Slice(installations, func(i, j int) bool { return installations[i].ID < installations[j].ID })
	return installations, nil
}

var _ domain.InstallationRepository = (*NatsInstallationRepository)(nil)
