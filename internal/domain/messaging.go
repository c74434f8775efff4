// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
)

// EventPublisher announces reconciliation progress to other services.
type EventPublisher interface {
	PublishDayReconciled(ctx context.Context, event models.DayReconciledEvent) error
	PublishDaySkipped(ctx context.Context, event models.DaySkippedEvent) error
}
