package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// NotificationStore persists delivered notifications.
type NotificationStore interface {
	PutNotification(ctx context.Context, n domain.Notification) error
}

// Processor writes queued notifications into the notifications table.
type Processor struct {
	store NotificationStore
	log   *zap.Logger
}

// NewProcessor creates a new worker processor.
func NewProcessor(store NotificationStore, log *zap.Logger) *Processor {
	return &Processor{store: store, log: log}
}

// Handle processes every message of the batch and reports the ones that failed, so only those
// are redelivered. Redelivered notifications are stored once.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.Error("notification not stored",
				zap.String("message_id", rec.MessageId),
				zap.Error(err),
			)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var n domain.Notification
	if err := json.Unmarshal([]byte(rec.Body), &n); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if n.NotificationID == "" || n.RecipientID == "" || n.Type == "" {
		return fmt.Errorf("notification %q is missing id, recipient or type", n.NotificationID)
	}

	if err := p.store.PutNotification(ctx, n); err != nil {
		return fmt.Errorf("store notification %s: %w", n.NotificationID, err)
	}
	p.log.Info("notification stored",
		zap.String("notification_id", n.NotificationID),
		zap.String("type", n.Type),
		zap.String("recipient_id", n.RecipientID),
		zap.String("channel", n.Channel),
	)
	return nil
}
