package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sarbdeol/bi-market-intelligence/internal/constants"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

// messagePublisher - то, что нужно от rabbitmq_producer.Publisher
type messagePublisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// RabbitMQAlertPublisherAdapter публикует алерты в topic-обменник
// с ключом alerts.<severity>
type RabbitMQAlertPublisherAdapter struct {
	producer messagePublisher
	timeout  time.Duration
}

var _ port.AlertPublisherPort = (*RabbitMQAlertPublisherAdapter)(nil)

func NewRabbitMQAlertPublisherAdapter(producer messagePublisher) (*RabbitMQAlertPublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer cannot be nil")
	}
	return &RabbitMQAlertPublisherAdapter{producer: producer, timeout: 10 * time.Second}, nil
}

// AlertRoutingKey - например alerts.critical
func AlertRoutingKey(severity domain.AlertSeverity) string {
	return constants.AlertsRoutingKeyPrefix + strings.ToLower(string(severity))
}

func (a *RabbitMQAlertPublisherAdapter) PublishAlert(ctx context.Context, alert *domain.Alert) error {
	routingKey := AlertRoutingKey(alert.Severity)
	logger := contextkeys.LoggerFromContext(ctx)
	adapterLogger := logger.WithFields(port.Fields{
		"component":   "RabbitMQAlertPublisherAdapter",
		"routing_key": routingKey,
		"alert_id":    alert.ID.String(),
	})

	body, err := json.Marshal(toAlertEventDTO(alert))
	if err != nil {
		adapterLogger.Error("Failed to marshal alert", err, nil)
		return fmt.Errorf("failed to marshal alert %s: %w", alert.ID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			constants.HeaderEventType:    constants.EventMarketAlert,
			constants.HeaderEventVersion: constants.EventVersionV1,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers[constants.HeaderTraceID] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.producer.Publish(publishCtx, routingKey, msg); err != nil {
		adapterLogger.Error("Failed to publish alert", err, nil)
		return err
	}

	adapterLogger.Info("Alert published", port.Fields{"alert_type": alert.AlertType})
	return nil
}
