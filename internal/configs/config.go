package configs

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type DatabaseConfig struct {
	URL      string
	MaxConns int
}

// RabbitMQConfig - брокер опционален: без него работают только HTTP-триггеры и планировщик
type RabbitMQConfig struct {
	Enabled bool
	URL     string
}

type RedisConfig struct {
	Enabled bool
	Addr    string
	LockTTL time.Duration
}

type RESTconfig struct {
	PORT           string
	AllowedOrigins []string
}

type StdoutLogConfig struct {
	Level string
}

type FluentBitConfig struct {
	Host    string
	Port    int
	Enabled bool
	Level   string
}

// ThresholdsConfig - пороги правил алертов
type ThresholdsConfig struct {
	PriceChangePct float64
	VelocitySpike  float64
	HeatIndexHigh  float64
	// SuppressOpenDuplicates - не создавать алерт, если такой же (тип, район) еще не прочитан
	SuppressOpenDuplicates bool
}

// PipelineConfig - окна и ограничения конвейера
type PipelineConfig struct {
	AggregationWindow  time.Duration
	AreaCapacity       int
	ListingStaleAfter  time.Duration
	RunRetention       time.Duration
	MaxConcurrentUnits int
	SourcesConfigPath  string
}

// FetchConfig - политика повторов и таймаут обращения к источникам
type FetchConfig struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
}

// SchedulerConfig - встроенный планировщик (по умолчанию выключен)
type SchedulerConfig struct {
	Enabled         bool
	CollectInterval time.Duration
	MetricsInterval time.Duration
	AlertsInterval  time.Duration
	SweepInterval   time.Duration
}

// AppConfig хранит всю конфигурацию приложения
type AppConfig struct {
	AppName      string
	Database     DatabaseConfig
	RabbitMQ     RabbitMQConfig
	Redis        RedisConfig
	Rest         RESTconfig
	FluentBit    FluentBitConfig
	StdoutLogger StdoutLogConfig
	Thresholds   ThresholdsConfig
	Pipeline     PipelineConfig
	Fetch        FetchConfig
	Scheduler    SchedulerConfig
}

// LoadConfig загружает конфигурацию из .env (если есть) и переменных окружения
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil {
		log.Printf("Info: .env file not loaded (path: %v): %v. Using process environment.\n", envPath, err)
	}

	cfg := &AppConfig{}
	cfg.AppName = getEnvAsString("APP_NAME", "market-intelligence")

	cfg.Database.URL = os.Getenv("DATABASE_URL")
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	cfg.Database.MaxConns = getEnvAsInt("DATABASE_MAX_CONNS", 10)

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", true)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED is true")
		}
	}

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnvAsString("REDIS_ADDRESS", "localhost:6379")
	cfg.Redis.LockTTL = getEnvAsDuration("REDIS_LOCK_TTL", 10*time.Minute)

	cfg.Rest.PORT = getEnvAsString("PORT", "8080")
	cfg.Rest.AllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"})

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}
		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}
	cfg.StdoutLogger.Level = getEnvAsString("STDOUT_LOG_LEVEL", "info")

	cfg.Thresholds.PriceChangePct = getEnvAsFloat("PRICE_CHANGE_ALERT_PCT", 5.0)
	cfg.Thresholds.VelocitySpike = getEnvAsFloat("VELOCITY_SPIKE_THRESHOLD", 1.5)
	cfg.Thresholds.HeatIndexHigh = getEnvAsFloat("HEAT_INDEX_HIGH_THRESHOLD", 75.0)
	cfg.Thresholds.SuppressOpenDuplicates = getEnvAsBool("ALERT_SUPPRESS_OPEN_DUPLICATES", false)

	cfg.Pipeline.AggregationWindow = time.Duration(getEnvAsInt("AGGREGATION_WINDOW_HOURS", 24)) * time.Hour
	cfg.Pipeline.AreaCapacity = getEnvAsInt("AREA_CAPACITY", 500)
	cfg.Pipeline.ListingStaleAfter = time.Duration(getEnvAsInt("LISTING_STALE_DAYS", 14)) * 24 * time.Hour
	cfg.Pipeline.RunRetention = time.Duration(getEnvAsInt("RUN_RETENTION_DAYS", 30)) * 24 * time.Hour
	cfg.Pipeline.MaxConcurrentUnits = getEnvAsInt("MAX_CONCURRENT_UNITS", 3)
	if cfg.Pipeline.MaxConcurrentUnits < 1 {
		cfg.Pipeline.MaxConcurrentUnits = 1
	}
	cfg.Pipeline.SourcesConfigPath = getEnvAsString("SOURCES_CONFIG_PATH", "configs/sources.yaml")

	cfg.Fetch.MaxRetries = getEnvAsInt("FETCH_MAX_RETRIES", 3)
	cfg.Fetch.BaseDelay = getEnvAsDuration("FETCH_BASE_DELAY", 4*time.Second)
	cfg.Fetch.MaxDelay = getEnvAsDuration("FETCH_MAX_DELAY", 30*time.Second)
	cfg.Fetch.RequestTimeout = getEnvAsDuration("FETCH_TIMEOUT", 30*time.Second)

	cfg.Scheduler.Enabled = getEnvAsBool("SCHEDULER_ENABLED", false)
	cfg.Scheduler.CollectInterval = getEnvAsDuration("COLLECT_INTERVAL", 6*time.Hour)
	cfg.Scheduler.MetricsInterval = getEnvAsDuration("METRICS_INTERVAL", time.Hour)
	cfg.Scheduler.AlertsInterval = getEnvAsDuration("ALERTS_INTERVAL", 30*time.Minute)
	cfg.Scheduler.SweepInterval = getEnvAsDuration("SWEEP_INTERVAL", 24*time.Hour)

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsList разбирает значения через запятую
func getEnvAsList(key string, defaultValue []string) []string {
	valStr, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(valStr) == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAsInt читает переменную как int; при ошибке разбора пишет предупреждение и берет default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as float: %v. Using default value: %g\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

// getEnvAsDuration принимает "30s", "6h" и т.п.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(valStr)
	if err != nil || d <= 0 {
		log.Printf("Warning: Environment variable %s (value: %s) is not a valid positive duration. Using default value: %s\n", key, valStr, defaultValue)
		return defaultValue
	}
	return d
}
