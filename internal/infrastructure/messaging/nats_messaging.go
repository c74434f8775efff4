// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-attendance-service/internal/logging"
)

// INatsConn is a NATS connection interface needed for the [MessageBuilder].
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// MessageBuilder is the builder for the message and sends it to the NATS server.
type MessageBuilder struct {
	NatsConn INatsConn
}

var _ domain.EventPublisher = (*MessageBuilder)(nil)

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn) *MessageBuilder {
	return &MessageBuilder{
		NatsConn: natsConn,
	}
}

// publish sends the message to the NATS server.
func (m *MessageBuilder) publish(ctx context.Context, subject string, data []byte) error {
	if m.NatsConn == nil || !m.NatsConn.IsConnected() {
		slog.WarnContext(ctx, "NATS connection not available, dropping event", "subject", subject)
		return domain.NewUnavailableError("NATS connection not available")
	}
	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

func (m *MessageBuilder) publishJSON(ctx context.Context, subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling event into JSON", logging.ErrKey, err, "subject", subject)
		return domain.NewInternalError("failed to marshal event", err)
	}
	return m.publish(ctx, subject, data)
}

// PublishDayReconciled announces a reconciled day.
func (m *MessageBuilder) PublishDayReconciled(ctx context.Context, event models.DayReconciledEvent) error {
	return m.publishJSON(ctx, models.DayReconciledSubject, event)
}

// PublishDaySkipped announces a day that was force-advanced.
func (m *MessageBuilder) PublishDaySkipped(ctx context.Context, event models.DaySkippedEvent) error {
	return m.publishJSON(ctx, models.DaySkippedSubject, event)
}
