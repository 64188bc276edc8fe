package internal

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	logger_adapter "github.com/sarbdeol/bi-market-intelligence/internal/adapters/logger"
	postgres_adapter "github.com/sarbdeol/bi-market-intelligence/internal/adapters/postgres"
	rabbitmq_adapter "github.com/sarbdeol/bi-market-intelligence/internal/adapters/rabbitmq"
	"github.com/sarbdeol/bi-market-intelligence/internal/adapters/registry"
	"github.com/sarbdeol/bi-market-intelligence/internal/adapters/rest"
	"github.com/sarbdeol/bi-market-intelligence/internal/adapters/scheduler"
	"github.com/sarbdeol/bi-market-intelligence/internal/adapters/unitlock"
	"github.com/sarbdeol/bi-market-intelligence/internal/configs"
	"github.com/sarbdeol/bi-market-intelligence/internal/constants"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/usecase"
	fluentlogger "github.com/sarbdeol/bi-market-intelligence/pkg/fluent_logger"
	"github.com/sarbdeol/bi-market-intelligence/pkg/postgres"
	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_common"
	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_consumer"
	"github.com/sarbdeol/bi-market-intelligence/pkg/rabbitmq/rabbitmq_producer"
	"github.com/sarbdeol/bi-market-intelligence/pkg/retry"
)

// App – структура приложения
type App struct {
	config       *configs.AppConfig
	dbPool       *pgxpool.Pool
	redisClient  *redis.Client
	apiServer    *rest.Server
	fluentClient *fluent.Fluent
	logger       port.LoggerPort

	connManager    *rabbitmq_common.ConnectionManager
	alertsProducer *rabbitmq_producer.Publisher
	listeners      map[string]port.EventListenerPort
	scheduler      *scheduler.TickerScheduler
}

// NewApp - composition root: здесь создаются и связываются все зависимости
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// --- логгеры ---
	var activeLoggers []port.LoggerPort
	stdoutLogger := logger_adapter.NewSlogAdapter(logger_adapter.SlogConfig{
		Level:    parseLogLevel(appConfig.StdoutLogger.Level),
		UseColor: true,
	})
	activeLoggers = append(activeLoggers, stdoutLogger)

	var fluentClient *fluent.Fluent
	if appConfig.FluentBit.Enabled {
		fluentClient, err = fluentlogger.NewClient(fluentlogger.Config{
			Host:      appConfig.FluentBit.Host,
			Port:      appConfig.FluentBit.Port,
			TagPrefix: appConfig.AppName,
			Async:     true,
		})
		if err != nil {
			stdoutLogger.Error("Failed to create fluentbit client", err, nil)
			return nil, fmt.Errorf("failed to create fluentbit client: %w", err)
		}
		fluentAdapter, err := logger_adapter.NewFluentLoggerAdapter(fluentClient, appConfig.AppName, parseLogLevel(appConfig.FluentBit.Level))
		if err != nil {
			fluentClient.Close()
			return nil, err
		}
		activeLoggers = append(activeLoggers, fluentAdapter)
	}

	multiLogger, err := logger_adapter.NewMultiLoggerAdapter(activeLoggers...)
	if err != nil {
		return nil, fmt.Errorf("failed to create multi-logger: %w", err)
	}
	baseLogger := multiLogger.WithFields(port.Fields{"service_name": appConfig.AppName})
	appLogger := baseLogger.WithFields(port.Fields{"component": "app"})
	appLogger.Info("Logger system initialized", port.Fields{
		"active_loggers": len(activeLoggers), "fluent_enabled": appConfig.FluentBit.Enabled,
	})

	application := &App{
		config:       appConfig,
		fluentClient: fluentClient,
		logger:       appLogger,
		listeners:    make(map[string]port.EventListenerPort),
	}
	// при ошибке сборки освобождаем уже открытые ресурсы
	ok := false
	defer func() {
		if !ok {
			application.closeResources()
		}
	}()

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	startupCtx = contextkeys.NewTracedContext(startupCtx, appLogger, "")

	// --- PostgreSQL ---
	dbPool, err := postgres.NewClient(startupCtx, postgres.Config{
		DatabaseURL: appConfig.Database.URL,
		MaxConns:    int32(appConfig.Database.MaxConns),
	})
	if err != nil {
		appLogger.Error("Failed to connect to PostgreSQL", err, nil)
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	application.dbPool = dbPool
	appLogger.Info("Successfully connected to PostgreSQL pool!", nil)

	if err := postgres_adapter.EnsureSchema(startupCtx, dbPool); err != nil {
		appLogger.Error("Failed to apply database schema", err, nil)
		return nil, fmt.Errorf("failed to apply database schema: %w", err)
	}

	sourceRepo, err := postgres_adapter.NewSourceRepository(dbPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create source repository: %w", err)
	}
	listingRepo, err := postgres_adapter.NewListingRepository(dbPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing repository: %w", err)
	}
	runRepo, err := postgres_adapter.NewCollectionRunRepository(dbPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection run repository: %w", err)
	}
	metricRepo, err := postgres_adapter.NewMetricRepository(dbPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric repository: %w", err)
	}
	alertRepo, err := postgres_adapter.NewAlertRepository(dbPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert repository: %w", err)
	}
	analyticsRepo, err := postgres_adapter.NewAnalyticsRepository(dbPool)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics repository: %w", err)
	}
	appLogger.Info("Postgres repositories initialized.", nil)

	// --- реестр источников ---
	sourceRegistry, err := registry.LoadFile(appConfig.Pipeline.SourcesConfigPath, registry.Options{
		RequestTimeout: appConfig.Fetch.RequestTimeout,
		Retry: retry.Policy{
			MaxAttempts: appConfig.Fetch.MaxRetries,
			BaseDelay:   appConfig.Fetch.BaseDelay,
			Multiplier:  2,
			MaxDelay:    appConfig.Fetch.MaxDelay,
		},
	})
	if err != nil {
		appLogger.Error("Failed to load source registry", err, port.Fields{"path": appConfig.Pipeline.SourcesConfigPath})
		return nil, err
	}
	appLogger.Info("Source registry loaded.", port.Fields{"sources": len(sourceRegistry.Sources())})

	// --- блокировка единиц сбора ---
	var locker port.UnitLockPort
	if appConfig.Redis.Enabled {
		rdb, err := unitlock.NewRedisClient(startupCtx, appConfig.Redis.Addr)
		if err != nil {
			appLogger.Error("Failed to connect to Redis", err, port.Fields{"addr": appConfig.Redis.Addr})
			return nil, err
		}
		application.redisClient = rdb
		redisLocker, err := unitlock.NewRedisUnitLocker(rdb)
		if err != nil {
			return nil, err
		}
		locker = redisLocker
		appLogger.Info("Redis unit locker initialized.", nil)
	} else {
		locker = unitlock.NewLocalUnitLocker()
		appLogger.Info("Redis disabled, using in-process unit locker.", nil)
	}

	// --- RabbitMQ: исходящие алерты ---
	var alertPublisher port.AlertPublisherPort
	if appConfig.RabbitMQ.Enabled {
		connManagerBridge := rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_conn_manager"}))
		connManager, err := rabbitmq_common.NewConnectionManager(rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL}, connManagerBridge)
		if err != nil {
			appLogger.Error("Failed to create connection manager", err, nil)
			return nil, fmt.Errorf("failed to create connection manager: %w", err)
		}
		application.connManager = connManager
		appLogger.Info("RabbitMQ Connection Manager initialized.", nil)

		producer, err := rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
			ExchangeName:             constants.AlertsExchange,
			ExchangeType:             "topic",
			DurableExchange:          true,
			DeclareExchangeIfMissing: true,
			Logger:                   rabbitmq_adapter.NewPkgLoggerBridge(baseLogger.WithFields(port.Fields{"component": "rabbitmq_producer"})),
		}, connManager)
		if err != nil {
			appLogger.Error("Failed to create alerts producer", err, nil)
			return nil, fmt.Errorf("failed to create alerts producer: %w", err)
		}
		application.alertsProducer = producer

		publisherAdapter, err := rabbitmq_adapter.NewRabbitMQAlertPublisherAdapter(producer)
		if err != nil {
			return nil, err
		}
		alertPublisher = publisherAdapter
		appLogger.Info("RabbitMQ alert publisher initialized.", nil)
	}

	// --- use cases ---
	reconcileUseCase := usecase.NewReconcileListingsUseCase(listingRepo, runRepo, sourceRepo, locker, appConfig.Redis.LockTTL)
	collectUseCase := usecase.NewCollectListingsUseCase(sourceRegistry, sourceRepo, reconcileUseCase, appConfig.Pipeline.MaxConcurrentUnits)
	computeMetricsUseCase := usecase.NewComputeMetricsUseCase(listingRepo, metricRepo, appConfig.Pipeline.AreaCapacity, appConfig.Pipeline.AggregationWindow)
	evaluateAlertsUseCase := usecase.NewEvaluateAlertsUseCase(alertRepo, alertPublisher, domain.AlertThresholds{
		PriceChangePct: appConfig.Thresholds.PriceChangePct,
		VelocitySpike:  appConfig.Thresholds.VelocitySpike,
		HeatIndexHigh:  appConfig.Thresholds.HeatIndexHigh,
	}, appConfig.Thresholds.SuppressOpenDuplicates)
	checkAlertsUseCase := usecase.NewCheckAlertsUseCase(metricRepo, evaluateAlertsUseCase)
	sweepUseCase := usecase.NewSweepStaleDataUseCase(listingRepo, runRepo, appConfig.Pipeline.ListingStaleAfter, appConfig.Pipeline.RunRetention)
	pipelineRunner := usecase.NewRunPipelineJobUseCase(collectUseCase, computeMetricsUseCase, checkAlertsUseCase, sweepUseCase)
	syncSourcesUseCase := usecase.NewSyncSourcesUseCase(sourceRegistry, sourceRepo, alertRepo, alertPublisher)

	priceStatsUseCase := usecase.NewGetPriceStatsUseCase(analyticsRepo)
	velocityUseCase := usecase.NewGetListingVelocityUseCase(analyticsRepo)
	heatMapUseCase := usecase.NewGetHeatMapUseCase(metricRepo)
	trendUseCase := usecase.NewGetMarketTrendUseCase(metricRepo)
	competitorsUseCase := usecase.NewGetCompetitorComparisonUseCase(analyticsRepo)
	overviewUseCase := usecase.NewGetOverviewUseCase(analyticsRepo)
	listAlertsUseCase := usecase.NewListAlertsUseCase(alertRepo)
	acknowledgeAlertUseCase := usecase.NewAcknowledgeAlertUseCase(alertRepo)
	listSourcesUseCase := usecase.NewListSourcesUseCase(sourceRepo)
	listRunsUseCase := usecase.NewListCollectionRunsUseCase(runRepo)
	appLogger.Info("All use cases initialized.", nil)

	created, err := syncSourcesUseCase.Execute(startupCtx)
	if err != nil {
		appLogger.Error("Failed to sync sources with registry", err, nil)
		return nil, fmt.Errorf("failed to sync sources: %w", err)
	}
	appLogger.Info("Sources synced with registry.", port.Fields{"created": created})

	// --- входящие адаптеры ---
	if appConfig.RabbitMQ.Enabled {
		scrapedListener, err := rabbitmq_adapter.NewScrapedListingsConsumerAdapter(
			consumerConfig(appConfig, constants.QueueScrapedListings, constants.RoutingKeyScrapedListings, "scraped-listings-reconciler"),
			reconcileUseCase, sourceRegistry, baseLogger, application.connManager,
		)
		if err != nil {
			appLogger.Error("Failed to create scraped listings listener", err, nil)
			return nil, err
		}
		application.listeners["Scraped Listings Listener"] = scrapedListener

		triggerListener, err := rabbitmq_adapter.NewPipelineTriggerConsumerAdapter(
			consumerConfig(appConfig, constants.QueuePipelineTriggers, constants.RoutingKeyPipelineTriggers, "pipeline-trigger-runner"),
			pipelineRunner, baseLogger, application.connManager,
		)
		if err != nil {
			appLogger.Error("Failed to create pipeline trigger listener", err, nil)
			return nil, err
		}
		application.listeners["Pipeline Trigger Listener"] = triggerListener
		appLogger.Info("RabbitMQ listeners initialized.", nil)
	}

	if appConfig.Scheduler.Enabled {
		tickerScheduler, err := scheduler.NewTickerScheduler(pipelineRunner, baseLogger,
			scheduler.Schedule{Job: domain.JobCollect, Interval: appConfig.Scheduler.CollectInterval},
			scheduler.Schedule{Job: domain.JobAggregate, Interval: appConfig.Scheduler.MetricsInterval},
			scheduler.Schedule{Job: domain.JobCheckAlerts, Interval: appConfig.Scheduler.AlertsInterval},
			scheduler.Schedule{Job: domain.JobSweep, Interval: appConfig.Scheduler.SweepInterval},
		)
		if err != nil {
			return nil, err
		}
		application.scheduler = tickerScheduler
		appLogger.Info("Embedded scheduler configured.", nil)
	}

	// --- REST API ---
	pipelineHandler := rest.NewPipelineHandler(pipelineRunner, dbPool)
	router := rest.NewRouter(
		rest.NewAnalyticsHandler(priceStatsUseCase, velocityUseCase, heatMapUseCase, trendUseCase, competitorsUseCase, overviewUseCase),
		rest.NewAlertsHandler(listAlertsUseCase, acknowledgeAlertUseCase),
		rest.NewCompetitorsHandler(listSourcesUseCase, listRunsUseCase),
		pipelineHandler,
		appConfig.Rest.AllowedOrigins,
		baseLogger,
	)
	application.apiServer = rest.NewServer(appConfig.Rest.PORT, router, pipelineHandler, baseLogger)
	appLogger.Info("REST API server configured.", nil)

	ok = true
	return application, nil
}

// consumerConfig - общая схема очереди: повтор через 10 секунд, после 3 попыток в финальный DLQ
func consumerConfig(cfg *configs.AppConfig, queue, routingKey, tag string) rabbitmq_consumer.ConsumerConfig {
	return rabbitmq_consumer.ConsumerConfig{
		Config:                 rabbitmq_common.Config{URL: cfg.RabbitMQ.URL},
		QueueName:              queue,
		DeclareQueue:           true,
		DurableQueue:           true,
		ExchangeNameForBind:    constants.ScrapedListingsExchange,
		DeclareExchangeForBind: true,
		ExchangeTypeForBind:    "direct",
		RoutingKeyForBind:      routingKey,
		PrefetchCount:          1,
		ConsumerTag:            tag,

		EnableRetryMechanism: true,
		RetryExchange:        queue + "_retry_ex",
		RetryQueue:           queue + "_retry_wait_10s",
		RetryTTL:             10000,

		FinalDLXExchange:   constants.FinalDLXExchange,
		FinalDLQ:           constants.FinalDLQ,
		FinalDLQRoutingKey: constants.FinalDLQRoutingKey,
		MaxRetries:         3,
	}
}

// Run запускает все компоненты приложения и управляет их жизненным циклом
func (a *App) Run() error {
	// единый контекст для graceful shutdown
	appCtx, cancelApp := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	defer func() {
		a.logger.Info("Shutdown sequence initiated...", nil)

		if a.scheduler != nil {
			if err := a.scheduler.Close(); err != nil {
				a.logger.Error("Error stopping scheduler", err, nil)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if a.apiServer != nil {
			if err := a.apiServer.Stop(shutdownCtx); err != nil {
				a.logger.Error("Error during API server shutdown", err, nil)
			}
		}

		a.logger.Info("Waiting for background processes to finish...", nil)
		wg.Wait()
		a.logger.Info("All background processes finished.", nil)

		a.closeResources()
	}()

	a.logger.Info("Application is starting...", nil)

	errorsCh := make(chan error, len(a.listeners)+1)

	startListener := func(name string, listener port.EventListenerPort) {
		defer wg.Done()
		listenerLogger := a.logger.WithFields(port.Fields{"listener_name": name})
		listenerLogger.Info("Starting listener...", nil)

		if err := listener.Start(appCtx); err != nil {
			listenerLogger.Error("Listener stopped with an unexpected error", err, nil)
			errorsCh <- fmt.Errorf("%s error: %w", name, err)
		} else {
			listenerLogger.Info("Listener stopped gracefully due to context cancellation.", nil)
		}
	}

	for name, listener := range a.listeners {
		wg.Add(1)
		go startListener(name, listener)
	}

	if a.scheduler != nil {
		schedulerCtx := contextkeys.NewTracedContext(appCtx, a.logger, "")
		if err := a.scheduler.Start(schedulerCtx); err != nil {
			cancelApp()
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	go func() {
		a.logger.Info("Starting HTTP server...", port.Fields{"port": a.config.Rest.PORT})
		if err := a.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			errorsCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	a.logger.Info("Application running. Waiting for signals or component error...", nil)
	select {
	case receivedSignal := <-quit:
		a.logger.Warn("Received OS signal, shutting down...", port.Fields{"signal": receivedSignal.String()})
	case err := <-errorsCh:
		a.logger.Error("A critical component failed, shutting down", err, nil)
	case <-appCtx.Done():
		a.logger.Warn("Context was cancelled unexpectedly, shutting down...", nil)
	}

	cancelApp()

	return nil
}

// closeResources закрывает внешние соединения в обратном порядке открытия
func (a *App) closeResources() {
	for name, listener := range a.listeners {
		if err := listener.Close(); err != nil {
			a.logger.Error("Error closing listener", err, port.Fields{"listener_name": name})
		}
	}
	if a.alertsProducer != nil {
		if err := a.alertsProducer.Close(); err != nil {
			a.logger.Error("Error closing alerts producer", err, nil)
		}
	}
	if a.connManager != nil {
		if err := a.connManager.Close(); err != nil {
			a.logger.Error("Error closing RabbitMQ connection", err, nil)
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("Error closing Redis client", err, nil)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
		a.logger.Info("PostgreSQL pool closed.", nil)
	}

	a.logger.Info("Application shut down gracefully.", nil)

	if a.fluentClient != nil {
		if err := a.fluentClient.Close(); err != nil {
			// fluent уже может быть недоступен
			fmt.Printf("ERROR: Error closing fluent client: %v\n", err)
		}
	}
}

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		log.Printf("Warning: Unknown log level '%s'. Defaulting to 'info'.", levelStr)
		return slog.LevelInfo
	}
}
