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
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_common"
	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_consumer"
)

// ScrapedListingsConsumerAdapter принимает батчи от внешних сборщиков
// и сверяет каждый как одну единицу
type ScrapedListingsConsumerAdapter struct {
	consumer rabbitmq_consumer.Consumer
	useCase  usecases_port.ReconcileListingsPort
	registry port.SourceRegistryPort // может быть nil
	logger   port.LoggerPort
}

var _ port.EventListenerPort = (*ScrapedListingsConsumerAdapter)(nil)

func NewScrapedListingsConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	useCase usecases_port.ReconcileListingsPort,
	registry port.SourceRegistryPort,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*ScrapedListingsConsumerAdapter, error) {
	adapter := &ScrapedListingsConsumerAdapter{
		useCase:  useCase,
		registry: registry,
		logger:   logger,
	}

	pkgLogger := logger.WithFields(port.Fields{"component": "rabbitmq_distributing_consumer", "consumer_tag": consumerCfg.ConsumerTag})
	consumerCfg.Logger = NewPkgLoggerBridge(pkgLogger)

	consumer, err := rabbitmq_consumer.NewDistributingConsumer(consumerCfg, adapter.messageHandler, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for scraped listings: %w", err)
	}
	adapter.consumer = consumer

	return adapter, nil
}

func (a *ScrapedListingsConsumerAdapter) messageHandler(d amqp.Delivery) error {
	traceID, ok := d.Headers[constants.HeaderTraceID].(string)
	if !ok || traceID == "" {
		traceID = uuid.New().String()
	}

	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"delivery_tag": d.DeliveryTag,
		"consumer_tag": d.ConsumerTag,
	})

	ctx := context.Background()
	ctx = contextkeys.ContextWithLogger(ctx, msgLogger)
	ctx = contextkeys.ContextWithTraceID(ctx, traceID)

	msgLogger.Info("Received scraped listings batch", nil)

	if err := contracts.ValidateEvent(constants.EventScrapedListingsBatch, constants.EventVersionV1, d.Body); err != nil {
		msgLogger.Error("Batch does not match the contract", err, nil)
		return fmt.Errorf("contract validation failed: %w", err)
	}

	var batch ScrapedListingsBatchDTO
	if err := json.Unmarshal(d.Body, &batch); err != nil {
		msgLogger.Error("Error unmarshalling batch DTO", err, nil)
		return fmt.Errorf("unmarshal DTO error: %w", err)
	}

	batchLogger := msgLogger.WithFields(port.Fields{
		"source":   batch.Source,
		"area":     batch.Area,
		"listings": len(batch.Listings),
	})
	ctx = contextkeys.ContextWithLogger(ctx, batchLogger)

	sourceURL := batch.SourceURL
	if sourceURL == "" && a.registry != nil {
		if src, found := a.registry.Lookup(batch.Source); found {
			sourceURL = src.AreaURL(batch.Area)
		}
	}

	run, err := a.useCase.ExecuteForSource(ctx, batch.Source, batch.Area, sourceURL, toObservedListings(batch))
	if err != nil {
		// занятая единица и сбои хранилища уходят на повтор через retry-очередь
		batchLogger.Error("Reconciliation of batch failed", err, nil)
		return err
	}
	if run == nil {
		batchLogger.Info("Batch skipped", nil)
		return nil
	}

	batchLogger.Info("Batch reconciled", port.Fields{
		"run_id":  run.ID.String(),
		"new":     run.ListingsNew,
		"updated": run.ListingsUpd,
	})
	return nil
}

func (a *ScrapedListingsConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *ScrapedListingsConsumerAdapter) Close() error {
	return a.consumer.Close()
}
