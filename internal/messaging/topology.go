package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Имена для Dead Letter Exchange и Queue строятся от имени очереди задач.
const dlqRoutingKey = "dlq"

// DeadLetterNames возвращает имена DLX и DLQ для очереди задач.
func DeadLetterNames(taskQueue string) (dlx, dlq string) {
	return taskQueue + "_dlx", taskQueue + "_dlq"
}

// Declarer - часть *amqp.Channel, нужная для объявления топологии.
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// DeclareTaskTopology объявляет DLX, DLQ и durable lazy очередь задач с DLX.
func DeclareTaskTopology(ch Declarer, taskQueue string) error {
	dlx, dlq := DeadLetterNames(taskQueue)

	if err := ch.ExchangeDeclare(dlx, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLX '%s': %w", dlx, err)
	}
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ '%s': %w", dlq, err)
	}
	if err := ch.QueueBind(dlq, dlqRoutingKey, dlx, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ '%s' to DLX '%s': %w", dlq, dlx, err)
	}

	args := amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    dlx,
		"x-dead-letter-routing-key": dlqRoutingKey,
	}
	if _, err := ch.QueueDeclare(taskQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare task queue '%s': %w", taskQueue, err)
	}
	return nil
}

// DeclareUpdatesQueue объявляет durable lazy очередь уведомлений.
func DeclareUpdatesQueue(ch Declarer, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, amqp.Table{"x-queue-mode": "lazy"}); err != nil {
		return fmt.Errorf("failed to declare updates queue '%s': %w", queue, err)
	}
	return nil
}
