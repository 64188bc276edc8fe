package rabbitmq_consumer

import (
	"context"
	"fmt"

	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer - общий контракт потребителей пакета
type Consumer interface {
	StartConsuming(ctx context.Context) error
	Close() error
}

// MessageHandler обрабатывает одно сообщение. ack/nack/повтор решает пакет.
type MessageHandler func(delivery amqp.Delivery) error

// ConsumerConfig - конфигурация потребителя
type ConsumerConfig struct {
	rabbitmq_common.Config

	QueueName    string
	DeclareQueue bool
	DurableQueue bool
	QueueArgs    amqp.Table

	// Привязка к обменнику (если ExchangeNameForBind пуст, привязки нет)
	ExchangeNameForBind    string
	DeclareExchangeForBind bool
	ExchangeTypeForBind    string
	RoutingKeyForBind      string

	PrefetchCount int
	ConsumerTag   string

	// Повторы через retry-обменник и очередь ожидания с TTL
	EnableRetryMechanism bool
	RetryExchange        string
	RetryQueue           string
	RetryTTL             int // мс
	FinalDLXExchange     string
	FinalDLQ             string
	FinalDLQRoutingKey   string
	MaxRetries           int

	Logger rabbitmq_common.Logger
}

func (c ConsumerConfig) validate() error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid base config: %w", err)
	}
	if c.QueueName == "" {
		return fmt.Errorf("queue name is required")
	}
	if c.DeclareExchangeForBind && c.ExchangeTypeForBind == "" {
		return fmt.Errorf("exchange type is required when declaring an exchange for binding")
	}
	if c.EnableRetryMechanism {
		if c.RetryExchange == "" || c.RetryQueue == "" || c.FinalDLXExchange == "" || c.FinalDLQ == "" {
			return fmt.Errorf("retry mechanism requires retry exchange, retry queue, final DLX and final DLQ")
		}
		if c.RetryTTL <= 0 {
			return fmt.Errorf("retry TTL must be positive")
		}
	}
	return nil
}

// DeathCount возвращает, сколько раз сообщение уже "умирало" в очереди queueName
func DeathCount(headers amqp.Table, queueName string) int64 {
	if headers == nil {
		return 0
	}
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, death := range deaths {
		tbl, ok := death.(amqp.Table)
		if !ok {
			continue
		}
		if queue, ok := tbl["queue"].(string); ok && queue == queueName {
			if count, ok := tbl["count"].(int64); ok {
				return count
			}
		}
	}
	return 0
}
