// Package config provides configuration management for the paper triage service.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variable overrides.
const EnvPrefix = "PAPERTRIAGE"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// LLM provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the paper triage service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Temporal contains scheduled collection settings.
	Temporal TemporalConfig `mapstructure:"temporal"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// LLM contains text-generation provider settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Kafka contains review-decision event settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// PaperSources contains paper source API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
	// Collection contains orchestrator settings.
	Collection CollectionConfig `mapstructure:"collection"`
	// Citation contains citation graph explorer settings.
	Citation CitationConfig `mapstructure:"citation"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	// Collection endpoints run synchronously, so this must exceed collection.time_budget.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// CronSecret guards the /cron endpoints (loaded from PAPERTRIAGE_CRON_SECRET).
	CronSecret string `mapstructure:"-"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 20).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 2).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is a directory of migration files. Empty uses the
	// migrations compiled into the binary.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// TemporalConfig holds Temporal settings for scheduled collection.
type TemporalConfig struct {
	// HostPort is the Temporal server address.
	HostPort string `mapstructure:"host_port"`
	// Namespace is the Temporal namespace.
	Namespace string `mapstructure:"namespace"`
	// TaskQueue is the task queue name for collection workflows.
	TaskQueue string `mapstructure:"task_queue"`
	// CronSchedule is the schedule for the recurring collection workflow. Empty disables it.
	CronSchedule string `mapstructure:"cron_schedule"`
	// WorkflowID is the fixed ID of the recurring collection workflow.
	WorkflowID string `mapstructure:"workflow_id"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// LLMConfig holds text-generation provider configuration.
type LLMConfig struct {
	// Provider is the provider name (openai, anthropic).
	Provider string `mapstructure:"provider"`
	// Timeout is the timeout for a single API call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int `mapstructure:"max_retries"`
	// Language is the target language for translated titles, summaries and explanations.
	Language string `mapstructure:"language"`
	// OpenAI contains OpenAI-specific settings.
	OpenAI ProviderConfig `mapstructure:"openai"`
	// Anthropic contains Anthropic-specific settings.
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

// ProviderConfig holds settings for a single text-generation provider.
type ProviderConfig struct {
	// APIKey is loaded from PAPERTRIAGE_LLM_<PROVIDER>_API_KEY.
	APIKey string `mapstructure:"-"`
	// Model is the model identifier.
	Model string `mapstructure:"model"`
	// BaseURL is the API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
}

// KafkaConfig holds settings for review-decision events.
type KafkaConfig struct {
	// Enabled routes review decisions through Kafka instead of in-process learning.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// ReviewTopic is the topic carrying review decisions.
	ReviewTopic string `mapstructure:"review_topic"`
	// GroupID is the consumer group of the learning listener.
	GroupID string `mapstructure:"group_id"`
	// BatchTimeout is the maximum time the writer waits to fill a batch.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// PaperSourcesConfig holds configuration for all paper source APIs.
type PaperSourcesConfig struct {
	// ArXiv contains arXiv API settings.
	ArXiv PaperSourceConfig `mapstructure:"arxiv"`
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar PaperSourceConfig `mapstructure:"semantic_scholar"`
	// OpenAlex contains OpenAlex API settings.
	OpenAlex PaperSourceConfig `mapstructure:"openalex"`
	// RSS contains feed fetching settings.
	RSS RSSConfig `mapstructure:"rss"`
}

// PaperSourceConfig holds configuration for a single paper source API.
type PaperSourceConfig struct {
	// Enabled controls whether this source is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable only).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults is the maximum results per query.
	MaxResults int `mapstructure:"max_results"`
	// Mailto is the contact address sent to polite-pool APIs (OpenAlex).
	Mailto string `mapstructure:"mailto"`
}

// RSSConfig holds feed fetching settings.
type RSSConfig struct {
	// Timeout bounds a single feed fetch.
	Timeout time.Duration `mapstructure:"timeout"`
	// UserAgent is sent with feed requests.
	UserAgent string `mapstructure:"user_agent"`
}

// CollectionConfig holds orchestrator settings.
type CollectionConfig struct {
	// ResultsPerSource is how many results each provider returns per keyword.
	ResultsPerSource int `mapstructure:"results_per_source"`
	// TimeBudget is the wall-clock ceiling of a combined run.
	TimeBudget time.Duration `mapstructure:"time_budget"`
	// CitationReserve is held back from the budget before sizing citation seeds.
	CitationReserve time.Duration `mapstructure:"citation_reserve"`
	// PerSeedEstimate is the expected duration of exploring one seed.
	PerSeedEstimate time.Duration `mapstructure:"per_seed_estimate"`
	// RescoreLimit caps how many pending papers one rescore pass handles.
	RescoreLimit int `mapstructure:"rescore_limit"`
}

// CitationConfig holds citation graph explorer settings.
type CitationConfig struct {
	// NeighborLimit caps citing and cited papers fetched per seed (each).
	NeighborLimit int `mapstructure:"neighbor_limit"`
	// RequestInterval is the minimum spacing between graph API calls.
	RequestInterval time.Duration `mapstructure:"request_interval"`
	// MaxSeedsScheduled is the seed cap for scheduled runs.
	MaxSeedsScheduled int `mapstructure:"max_seeds_scheduled"`
	// MaxSeedsManual is the seed cap for manually triggered runs.
	MaxSeedsManual int `mapstructure:"max_seeds_manual"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: params.Encode(),
	}
	return u.String()
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Active returns the settings of the configured LLM provider.
func (c *LLMConfig) Active() ProviderConfig {
	if strings.EqualFold(c.Provider, ProviderAnthropic) {
		return c.Anthropic
	}
	return c.OpenAI
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-triage-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// Provider keys fall back to the vendor's conventional variable name.
func loadSecrets(cfg *Config) {
	cfg.Server.CronSecret = os.Getenv(EnvPrefix + "_CRON_SECRET")

	cfg.LLM.OpenAI.APIKey = firstEnv(EnvPrefix+"_LLM_OPENAI_API_KEY", "OPENAI_API_KEY")
	cfg.LLM.Anthropic.APIKey = firstEnv(EnvPrefix+"_LLM_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	cfg.PaperSources.SemanticScholar.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_SEMANTIC_SCHOLAR_API_KEY")
	cfg.PaperSources.OpenAlex.APIKey = os.Getenv(EnvPrefix + "_PAPER_SOURCES_OPENALEX_API_KEY")
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "papertriage")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "paper_triage")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "")
	v.SetDefault("database.migration_auto_run", false)

	// Temporal defaults
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "paper-collection")
	v.SetDefault("temporal.cron_schedule", "0 21 * * *")
	v.SetDefault("temporal.workflow_id", "paper-collection-cron")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "paper_triage")

	// LLM defaults. API keys are loaded exclusively from environment variables.
	v.SetDefault("llm.provider", ProviderOpenAI)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.language", "Japanese")
	v.SetDefault("llm.openai.model", "gpt-4o-mini")
	v.SetDefault("llm.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("llm.anthropic.base_url", "https://api.anthropic.com")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.review_topic", "paper-triage.review-decisions")
	v.SetDefault("kafka.group_id", "paper-triage-learner")
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Paper sources defaults - arXiv
	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "30s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 0.33) // arXiv asks for one request every 3 seconds
	v.SetDefault("paper_sources.arxiv.max_results", 100)

	// Paper sources defaults - Semantic Scholar
	v.SetDefault("paper_sources.semantic_scholar.enabled", true)
	v.SetDefault("paper_sources.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("paper_sources.semantic_scholar.timeout", "30s")
	v.SetDefault("paper_sources.semantic_scholar.rate_limit", 1.0)
	v.SetDefault("paper_sources.semantic_scholar.max_results", 100)

	// Paper sources defaults - OpenAlex
	v.SetDefault("paper_sources.openalex.enabled", true)
	v.SetDefault("paper_sources.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("paper_sources.openalex.timeout", "30s")
	v.SetDefault("paper_sources.openalex.rate_limit", 10.0)
	v.SetDefault("paper_sources.openalex.max_results", 200)
	v.SetDefault("paper_sources.openalex.mailto", "")

	// RSS defaults
	v.SetDefault("paper_sources.rss.timeout", "15s")
	v.SetDefault("paper_sources.rss.user_agent", "paper-triage-service/1.0")

	// Collection defaults
	v.SetDefault("collection.results_per_source", 5)
	v.SetDefault("collection.time_budget", "5m")
	v.SetDefault("collection.citation_reserve", "15s")
	v.SetDefault("collection.per_seed_estimate", "30s")
	v.SetDefault("collection.rescore_limit", 50)

	// Citation defaults
	v.SetDefault("citation.neighbor_limit", 10)
	v.SetDefault("citation.request_interval", "1s")
	v.SetDefault("citation.max_seeds_scheduled", 5)
	v.SetDefault("citation.max_seeds_manual", 20)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate that the configured LLM provider has its API key set.
	switch strings.ToLower(c.LLM.Provider) {
	case ProviderOpenAI:
		if c.LLM.OpenAI.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_OPENAI_API_KEY or OPENAI_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	case ProviderAnthropic:
		if c.LLM.Anthropic.APIKey == "" {
			return fmt.Errorf("LLM provider %q requires %s_LLM_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY to be set", c.LLM.Provider, EnvPrefix)
		}
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}

	// Validate collection and citation bounds
	if c.Collection.ResultsPerSource <= 0 {
		return fmt.Errorf("collection results_per_source must be positive")
	}
	if c.Collection.TimeBudget < 0 || c.Collection.CitationReserve < 0 {
		return fmt.Errorf("collection time budget and reserve must not be negative")
	}
	if c.Collection.PerSeedEstimate <= 0 {
		return fmt.Errorf("collection per_seed_estimate must be positive")
	}
	if c.Citation.NeighborLimit <= 0 {
		return fmt.Errorf("citation neighbor_limit must be positive")
	}
	if c.Citation.RequestInterval < 0 {
		return fmt.Errorf("citation request_interval must not be negative")
	}
	if c.Citation.MaxSeedsScheduled <= 0 || c.Citation.MaxSeedsManual <= 0 {
		return fmt.Errorf("citation seed caps must be positive")
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.ReviewTopic == "") {
		return fmt.Errorf("kafka brokers and review_topic are required when kafka is enabled")
	}

	return nil
}
