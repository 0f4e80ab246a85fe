package domain

import "time"

// Config holds the complete Pulse configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Engine holds the business case model tunables.
	Engine EngineConfig `json:"engine"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// EngineConfig holds the model tunables for the business case engine.
// The defaults reproduce the observed product behavior; none of them is a
// measured business truth, so every constant is configurable rather than
// baked into the math.
type EngineConfig struct {
	// IndustryAvgConversion is the benchmark baseline, in percent.
	IndustryAvgConversion float64 `json:"industryAvgConversion"`

	// Benchmark band multipliers over the industry average.
	BenchmarkAverageMult float64 `json:"benchmarkAverageMult"`
	BenchmarkAboveMult   float64 `json:"benchmarkAboveMult"`

	// SuggestedPricePercentile anchors the suggested price below the median
	// willingness-to-pay. Falls back to the mean when fewer than
	// MinPricePointsForPercentile ceilings are known.
	SuggestedPricePercentile    float64 `json:"suggestedPricePercentile"`
	MinPricePointsForPercentile int     `json:"minPricePointsForPercentile"`

	// FixedCostBaseline is the nominal fixed cost one production run must
	// recover, used by the break-even calculation.
	FixedCostBaseline float64 `json:"fixedCostBaseline"`

	// Per-scenario profit margin assumptions.
	ConservativeMargin float64 `json:"conservativeMargin"`
	ModerateMargin     float64 `json:"moderateMargin"`
	OptimisticMargin   float64 `json:"optimisticMargin"`

	// TrendWindowDays is the length of the daily trend series.
	TrendWindowDays int `json:"trendWindowDays"`

	// Report insight thresholds.
	StrongSignalWeightedDemand float64 `json:"strongSignalWeightedDemand"`
	PricingDataMinPoints       int     `json:"pricingDataMinPoints"`
}

// DefaultEngineConfig returns the engine tunables matching the observed
// product behavior.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		IndustryAvgConversion:       2.5,
		BenchmarkAverageMult:        1.5,
		BenchmarkAboveMult:          3.0,
		SuggestedPricePercentile:    0.40,
		MinPricePointsForPercentile: 3,
		FixedCostBaseline:           50000,
		ConservativeMargin:          0.20,
		ModerateMargin:              0.35,
		OptimisticMargin:            0.45,
		TrendWindowDays:             30,
		StrongSignalWeightedDemand:  50,
		PricingDataMinPoints:        5,
	}
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"

	// TierEnterprise includes multi-node, SSO, etc.
	TierEnterprise Tier = "enterprise"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./pulse.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			ReportTTL:    time.Hour,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Engine: DefaultEngineConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "pulse",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "pulse",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
		ReportTTL:      time.Hour,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
