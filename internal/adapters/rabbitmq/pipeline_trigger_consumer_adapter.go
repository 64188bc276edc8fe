package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sarbdeol/bi-market-intelligence/internal/constants"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/contracts"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_common"
	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_consumer"
)

// PipelineTriggerConsumerAdapter - внешний планировщик присылает сюда задачи конвейера
type PipelineTriggerConsumerAdapter struct {
	consumer rabbitmq_consumer.Consumer
	runner   usecases_port.RunPipelineJobPort
	logger   port.LoggerPort
}

var _ port.EventListenerPort = (*PipelineTriggerConsumerAdapter)(nil)

func NewPipelineTriggerConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	runner usecases_port.RunPipelineJobPort,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*PipelineTriggerConsumerAdapter, error) {
	adapter := &PipelineTriggerConsumerAdapter{runner: runner, logger: logger}

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_distributing_consumer", "consumer_tag": consumerCfg.ConsumerTag})
	consumerCfg.Logger = NewPkgLoggerBridge(pkgLogger)

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(consumerCfg, adapter.messageHandler, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for pipeline triggers: %w", err)
	}
	adapter.consumer = consumer

	return adapter, nil
}

func (a *PipelineTriggerConsumerAdapter) messageHandler(d amqp.Delivery) error {
	traceID, ok := d.Headers[constants.HeaderTraceID].(string)
	if !ok || traceID == "" {
		traceID = uuid.New().String()
	}
	ctx := contextkeys.NewTracedContext(context.Background(), a.logger.WithFields(port.Fields{
		"delivery_tag": d.DeliveryTag,
	}), traceID)
	msgLogger := contextkeys.LoggerFromContext(ctx)

	if err := contracts.ValidateEvent(constants.EventPipelineTrigger, constants.EventVersionV1, d.Body); err != nil {
		msgLogger.Error("Trigger does not match the contract", err, nil)
		return fmt.Errorf("contract validation failed: %w", err)
	}

	var trigger PipelineTriggerDTO
	if err := json.Unmarshal(d.Body, &trigger); err != nil {
		msgLogger.Error("Error unmarshalling trigger DTO", err, nil)
		return fmt.Errorf("unmarshal DTO error: %w", err)
	}

	job, err := domain.ParsePipelineJob(trigger.Job)
	if err != nil {
		msgLogger.Error("Unknown pipeline job", err, port.Fields{"job": trigger.Job})
		return err
	}

	msgLogger.Info("Received pipeline trigger", port.Fields{"job": job, "requested_by": trigger.RequestedBy})
	result, err := a.runner.Execute(ctx, job)
	if err != nil {
		msgLogger.Error("Pipeline job failed", err, port.Fields{"job": job})
		return err
	}

	msgLogger.Info("Pipeline job finished", port.Fields{"job": job, "result": result})
	return nil
}

func (a *PipelineTriggerConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *PipelineTriggerConsumerAdapter) Close() error {
	return a.consumer.Close()
}
