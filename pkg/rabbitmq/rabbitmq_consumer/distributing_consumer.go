package rabbitmq_consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DistributingConsumer обрабатывает каждое сообщение в отдельной горутине.
// Параллелизм ограничивается PrefetchCount.
type DistributingConsumer struct {
	base    *baseConsumer
	handler MessageHandler
}

var _ Consumer = (*DistributingConsumer)(nil)

// NewDistributingConsumer создает потребителя
func NewDistributingConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*DistributingConsumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("distributing consumer: message handler is required")
	}
	bc, err := newBaseConsumer(cfg, connManager)
	if err != nil {
		return nil, fmt.Errorf("distributing consumer: %w", err)
	}
	return &DistributingConsumer{base: bc, handler: handler}, nil
}

// StartConsuming блокируется до отмены контекста или закрытия соединения
func (c *DistributingConsumer) StartConsuming(ctx context.Context) error {
	b := c.base
	if b.channel == nil || b.connection == nil || b.connection.IsClosed() {
		return fmt.Errorf("distributing consumer: not connected")
	}

	msgs, err := b.channel.Consume(b.config.QueueName, b.config.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("distributing consumer %s: failed to consume from '%s': %w", b.config.ConsumerTag, b.config.QueueName, err)
	}
	b.Logger.Info("Waiting for messages", "queue", b.config.QueueName)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					b.Logger.Info("Deliveries channel closed", "consumer_tag", b.config.ConsumerTag)
					return
				}
				b.wg.Add(1)
				go func(delivery amqp.Delivery) {
					defer b.wg.Done()
					c.process(delivery)
				}(d)
			}
		}
	}()

	notifyClose := b.connection.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		b.Logger.Info("Context cancelled, stopping consumer", "consumer_tag", b.config.ConsumerTag)
		return nil
	case amqpErr := <-notifyClose:
		if amqpErr == nil {
			return nil
		}
		b.Logger.Error(amqpErr, "Connection closed for consumer", "consumer_tag", b.config.ConsumerTag)
		return amqpErr
	}
}

func (c *DistributingConsumer) process(delivery amqp.Delivery) {
	b := c.base
	processErr := c.handler(delivery)
	if processErr == nil {
		_ = delivery.Ack(false)
		b.Logger.Debug("Message acked", "delivery_tag", delivery.DeliveryTag)
		return
	}

	b.Logger.Error(processErr, "Handler error", "consumer_tag", b.config.ConsumerTag, "delivery_tag", delivery.DeliveryTag)

	if !b.config.EnableRetryMechanism {
		_ = delivery.Nack(false, false)
		return
	}

	deaths := DeathCount(delivery.Headers, b.config.QueueName)
	if deaths < int64(b.config.MaxRetries) {
		b.Logger.Info("Retrying message", "delivery_tag", delivery.DeliveryTag, "death_count", deaths)
		_ = delivery.Nack(false, false)
		return
	}

	b.Logger.Warn("Max retries reached, publishing to final DLX", "delivery_tag", delivery.DeliveryTag)
	publishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := b.finalDlxPublisher.Publish(publishCtx, b.config.FinalDLQRoutingKey, amqp.Publishing{
		ContentType:  delivery.ContentType,
		Body:         delivery.Body,
		Headers:      delivery.Headers,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		b.Logger.Error(err, "Failed to publish to final DLX, nacking for another cycle", "delivery_tag", delivery.DeliveryTag)
		_ = delivery.Nack(false, false)
		return
	}
	_ = delivery.Ack(false)
}

// Close останавливает потребителя
func (c *DistributingConsumer) Close() error {
	return c.base.Close()
}
