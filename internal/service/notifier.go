package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"adventure-server/internal/messaging"
)

// Notifier отправляет уведомление о завершении задачи.
type Notifier interface {
	Notify(ctx context.Context, payload messaging.NotificationPayload) error
}

// rabbitMQNotifier публикует уведомления в очередь UPDATES_QUEUE.
type rabbitMQNotifier struct {
	pub    *messaging.JSONPublisher
	logger *zap.Logger
}

// NewRabbitMQNotifier предполагает, что канал открыт и будет закрыт в main.
func NewRabbitMQNotifier(ch messaging.Channel, queue string, logger *zap.Logger) Notifier {
	return &rabbitMQNotifier{
		pub:    messaging.NewJSONPublisher(ch, queue, logger),
		logger: logger.Named("Notifier"),
	}
}

func (n *rabbitMQNotifier) Notify(ctx context.Context, payload messaging.NotificationPayload) error {
	if err := n.pub.Publish(ctx, payload.JobID+"-notif", payload); err != nil {
		return fmt.Errorf("failed to publish notification for job %s: %w", payload.JobID, err)
	}
	n.logger.Info("Notification sent",
		zap.String("job_id", payload.JobID),
		zap.String("status", string(payload.Status)))
	return nil
}

// NopNotifier ничего не отправляет (CLI без RabbitMQ).
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, messaging.NotificationPayload) error { return nil }
