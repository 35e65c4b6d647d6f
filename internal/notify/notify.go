// Package notify fans lifecycle events out to admins and users. Delivery is best-effort: a
// failed send is logged and never reaches the workflow that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-storefront-orderflow/internal/domain"
)

// Channels and roles carried on notifications.
const (
	ChannelPush  = "push"
	ChannelEmail = "email"

	RoleAdmin = "admin"
	RoleUser  = "user"

	// AdminRecipient addresses every admin.
	AdminRecipient = "admins"
)

// Notification types.
const (
	TypeOrderPlaced     = "order_placed"
	TypeOrderPaid       = "order_paid"
	TypeOrderStatus     = "order_status"
	TypeOrderCancelled  = "order_cancelled"
	TypeReturnRequested = "return_requested"
	TypeReturnProcessed = "return_processed"
	TypeOTP             = "otp"
)

// Dispatcher delivers notifications.
type Dispatcher interface {
	Notify(ctx context.Context, n domain.Notification)
}

// New builds a notification with a fresh id and timestamp.
func New(channel, recipientID, role, typ, message, relatedID string) domain.Notification {
	return domain.Notification{
		NotificationID: uuid.NewString(),
		Channel:        channel,
		RecipientID:    recipientID,
		Role:           role,
		Type:           typ,
		Message:        message,
		RelatedID:      relatedID,
		CreatedAt:      time.Now().UTC(),
	}
}

// Sender is the queue used to carry notifications, satisfied by aws.Publisher.
type Sender interface {
	Send(ctx context.Context, messageBody string, attributes map[string]string) error
}

// QueueDispatcher publishes notifications to a queue for the notification worker.
type QueueDispatcher struct {
	sender Sender
	log    *zap.Logger
}

// NewQueueDispatcher returns a QueueDispatcher.
func NewQueueDispatcher(sender Sender, log *zap.Logger) *QueueDispatcher {
	return &QueueDispatcher{sender: sender, log: log}
}

// Notify implements Dispatcher.
func (d *QueueDispatcher) Notify(ctx context.Context, n domain.Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		d.log.Warn("notification marshal failed", zap.String("type", n.Type), zap.Error(err))
		return
	}
	attrs := map[string]string{
		"type":       n.Type,
		"role":       n.Role,
		"related_id": n.RelatedID,
	}
	if err := d.sender.Send(ctx, string(body), attrs); err != nil {
		d.log.Warn("notification dispatch failed",
			zap.String("notification_id", n.NotificationID),
			zap.String("type", n.Type),
			zap.String("recipient_id", n.RecipientID),
			zap.Error(err),
		)
	}
}

// Nop drops every notification.
type Nop struct{}

// Notify implements Dispatcher.
func (Nop) Notify(context.Context, domain.Notification) {}
