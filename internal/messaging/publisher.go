package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const appID = "story-generator"

// Channel - часть *amqp.Channel для публикации сообщений.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// JSONPublisher публикует JSON сообщения в очередь через default exchange.
type JSONPublisher struct {
	ch     Channel
	queue  string
	logger *zap.Logger
}

// NewJSONPublisher предполагает, что очередь уже объявлена.
func NewJSONPublisher(ch Channel, queue string, logger *zap.Logger) *JSONPublisher {
	return &JSONPublisher{ch: ch, queue: queue, logger: logger.Named("Publisher").With(zap.String("queue", queue))}
}

// Publish сериализует v и публикует его как persistent сообщение.
func (p *JSONPublisher) Publish(ctx context.Context, messageID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", messageID, err)
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Timestamp:    time.Now(),
		AppId:        appID,
		MessageId:    messageID,
	})
	if err != nil {
		p.logger.Error("Failed to publish message", zap.String("message_id", messageID), zap.Error(err))
		return fmt.Errorf("failed to publish message %s: %w", messageID, err)
	}
	p.logger.Debug("Message published", zap.String("message_id", messageID))
	return nil
}

// TaskPublisher ставит задачи генерации в очередь.
type TaskPublisher struct {
	pub *JSONPublisher
}

func NewTaskPublisher(ch Channel, queue string, logger *zap.Logger) *TaskPublisher {
	return &TaskPublisher{pub: NewJSONPublisher(ch, queue, logger)}
}

func (p *TaskPublisher) PublishTask(ctx context.Context, task GenerationTaskPayload) error {
	return p.pub.Publish(ctx, task.JobID, task)
}
