package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrInvalidTask - сообщение не удалось разобрать как задачу.
var ErrInvalidTask = errors.New("invalid task payload")

// TaskHandler обрабатывает одну задачу генерации.
type TaskHandler interface {
	HandleTask(ctx context.Context, task GenerationTaskPayload) error
}

// TaskConsumer читает задачи из очереди. Успех подтверждается Ack,
// битое сообщение или ошибка обработчика уходит в DLQ через Nack без requeue.
type TaskConsumer struct {
	handler TaskHandler
	logger  *zap.Logger
}

func NewTaskConsumer(handler TaskHandler, logger *zap.Logger) *TaskConsumer {
	return &TaskConsumer{handler: handler, logger: logger.Named("TaskConsumer")}
}

// Run обрабатывает deliveries до закрытия канала или отмены ctx.
func (c *TaskConsumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Consumer stopped by context")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Info("Delivery channel closed")
				return
			}
			c.HandleDelivery(ctx, d)
		}
	}
}

// HandleDelivery обрабатывает одно сообщение и подтверждает его.
func (c *TaskConsumer) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	task, err := DecodeTask(d.Body)
	if err != nil {
		c.logger.Error("Rejecting malformed task", zap.String("message_id", d.MessageId), zap.Error(err))
		c.nack(d)
		return
	}

	log := c.logger.With(zap.String("job_id", task.JobID))
	if err := c.handler.HandleTask(ctx, task); err != nil {
		log.Error("Task processing failed, sending to DLQ", zap.Error(err))
		c.nack(d)
		return
	}
	if err := d.Ack(false); err != nil {
		log.Error("Failed to ack message", zap.Error(err))
	}
}

func (c *TaskConsumer) nack(d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		c.logger.Error("Failed to nack message", zap.Error(err))
	}
}

// DecodeTask разбирает тело сообщения и проверяет обязательные поля.
func DecodeTask(body []byte) (GenerationTaskPayload, error) {
	var task GenerationTaskPayload
	if err := json.Unmarshal(body, &task); err != nil {
		return task, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if strings.TrimSpace(task.JobID) == "" {
		return task, fmt.Errorf("%w: job_id is empty", ErrInvalidTask)
	}
	return task, nil
}
