package constants

// Входящие очереди
const (
	ScrapedListingsExchange   = "market_ingest_exchange"
	QueueScrapedListings      = "scraped_listings_queue"
	RoutingKeyScrapedListings = "listings.scraped"

	QueuePipelineTriggers      = "pipeline_triggers_queue"
	RoutingKeyPipelineTriggers = "pipeline.trigger"
)

// Исходящие алерты. Ключ маршрутизации: alerts.<severity в нижнем регистре>
const (
	AlertsExchange         = "market_alerts_exchange"
	AlertsRoutingKeyPrefix = "alerts."
)

// Общий финальный DLX для всех входящих очередей
const (
	FinalDLXExchange   = "market_final_dlx"
	FinalDLQ           = "market_final_dlq"
	FinalDLQRoutingKey = "dead"
)

// Заголовки и версии событий
const (
	HeaderTraceID      = "x-trace-id"
	HeaderEventType    = "event-type"
	HeaderEventVersion = "event-version"

	EventScrapedListingsBatch = "ScrapedListingsBatchEvent"
	EventPipelineTrigger      = "PipelineTriggerEvent"
	EventMarketAlert          = "MarketAlertEvent"
	EventVersionV1            = "1.0.0"
)
