// Package config provides configuration management for the engine using
// Viper. It supports configuration from files, environment variables, and
// defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort         = 8080
	defaultServerTimeout      = 30 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultMaxOpenConns       = 25
	defaultMaxIdleConns       = 10
	defaultConnMaxIdleTime    = 30 * time.Minute
	defaultMaxBlobSize        = 200 * 1024 * 1024 // 200MB
	defaultWorkerCount        = 4
	defaultPollInterval       = 5 * time.Second
	defaultLeaseFor           = 10 * time.Minute
	defaultRecoverInterval    = time.Minute
	defaultMaxRetries         = 3
	defaultRetryBaseDelay     = 30 * time.Second
	defaultEmbeddingBatchSize = 64
	defaultEmbeddingTimeout   = 60 * time.Second
	defaultMaxCodesPerPage    = 40
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Storage    StorageConfig     `mapstructure:"storage"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Queue      QueueConfig       `mapstructure:"queue"`
	Housekeep  HousekeepConfig   `mapstructure:"housekeeping"`
	Embedding  EmbeddingConfig   `mapstructure:"embedding"`
	VectorIdx  VectorIndexConfig `mapstructure:"vector_index"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds blob storage configuration for source documents,
// extracted page images, and pattern-registry snapshots.
type StorageConfig struct {
	BaseDir     string `mapstructure:"base_dir"`
	DocumentDir string `mapstructure:"document_dir"`
	ImageDir    string `mapstructure:"image_dir"`
	TempDir     string `mapstructure:"temp_dir"`
	// MaxBlobSize is the maximum allowed size for a single stored blob.
	// Supports human-readable values like "200MB", "1GB", or raw byte counts.
	MaxBlobSize ByteSize `mapstructure:"max_blob_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// QueueConfig holds processing-queue and stage-runner configuration.
type QueueConfig struct {
	WorkerCount     int           `mapstructure:"worker_count"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	LeaseFor        time.Duration `mapstructure:"lease_for"`
	RecoverInterval time.Duration `mapstructure:"recover_interval"`
	Stages          []string      `mapstructure:"stages"`
}

// HousekeepConfig holds the failed-stage retry sweep's configuration.
type HousekeepConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Cron           string        `mapstructure:"cron"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
}

// EmbeddingConfig holds embedding-provider configuration.
type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider"` // openai, deterministic
	Model     string        `mapstructure:"model"`
	APIKey    string        `mapstructure:"api_key"`
	BatchSize int           `mapstructure:"batch_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// VectorIndexConfig holds vector-search backend configuration.
type VectorIndexConfig struct {
	Backend string       `mapstructure:"backend"` // cosine, qdrant
	Qdrant  QdrantConfig `mapstructure:"qdrant"`
}

// QdrantConfig holds the optional Qdrant vector-store backend's connection
// settings.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

// ExtractionConfig holds pipeline-stage tuning knobs shared across
// extractors.
type ExtractionConfig struct {
	MaxCodesPerPage   int `mapstructure:"max_codes_per_page"`
	ChunkTargetChars  int `mapstructure:"chunk_target_chars"`
	ChunkOverlapChars int `mapstructure:"chunk_overlap_chars"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with KRAI_ and use underscores for
// nesting. Example: KRAI_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	SetDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/krai")
		v.AddConfigPath("$HOME/.krai")
	}

	// Environment variable settings
	v.SetEnvPrefix("KRAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults are in place.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "krai.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	// Storage defaults
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.document_dir", "documents")
	v.SetDefault("storage.image_dir", "images")
	v.SetDefault("storage.temp_dir", "temp")
	v.SetDefault("storage.max_blob_size", defaultMaxBlobSize)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Queue / stage-runner defaults
	v.SetDefault("queue.worker_count", defaultWorkerCount)
	v.SetDefault("queue.poll_interval", defaultPollInterval)
	v.SetDefault("queue.lease_for", defaultLeaseFor)
	v.SetDefault("queue.recover_interval", defaultRecoverInterval)
	v.SetDefault("queue.stages", []string{})

	// Housekeeping defaults
	v.SetDefault("housekeeping.enabled", true)
	v.SetDefault("housekeeping.cron", "0 */5 * * * *") // every 5 minutes
	v.SetDefault("housekeeping.max_retries", defaultMaxRetries)
	v.SetDefault("housekeeping.retry_base_delay", defaultRetryBaseDelay)

	// Embedding defaults
	v.SetDefault("embedding.provider", "deterministic")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.batch_size", defaultEmbeddingBatchSize)
	v.SetDefault("embedding.timeout", defaultEmbeddingTimeout)

	// Vector index defaults
	v.SetDefault("vector_index.backend", "cosine")
	v.SetDefault("vector_index.qdrant.host", "localhost")
	v.SetDefault("vector_index.qdrant.port", 6334)
	v.SetDefault("vector_index.qdrant.collection", "krai_embeddings")

	// Extraction tuning defaults
	v.SetDefault("extraction.max_codes_per_page", defaultMaxCodesPerPage)
	v.SetDefault("extraction.chunk_target_chars", 2000)
	v.SetDefault("extraction.chunk_overlap_chars", 200)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	// Database validation
	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	// Storage validation
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	// Queue validation
	if c.Queue.WorkerCount < 1 {
		return fmt.Errorf("queue.worker_count must be at least 1")
	}

	// Vector index / embedding validation
	validBackends := map[string]bool{"cosine": true, "qdrant": true}
	if !validBackends[c.VectorIdx.Backend] {
		return fmt.Errorf("vector_index.backend must be one of: cosine, qdrant")
	}
	validProviders := map[string]bool{"openai": true, "deterministic": true}
	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("embedding.provider must be one of: openai, deterministic")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DocumentPath returns the full path to the document blob directory.
func (c *StorageConfig) DocumentPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.DocumentDir)
}

// ImagePath returns the full path to the image blob directory.
func (c *StorageConfig) ImagePath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.ImageDir)
}

// TempPath returns the full path to the temp directory.
func (c *StorageConfig) TempPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.TempDir)
}
