package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/tracer"
	"github.com/spf13/viper"
)

const (
	BackendGridFS = "gridfs"
	BackendMinIO  = "minio"
	BackendMemory = "memory"
)

// Config holds all configuration for the service.
type Config struct {
	ServiceName   string `mapstructure:"SERVICE_NAME"`
	HTTPPort      string `mapstructure:"HTTP_PORT"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFormat     string `mapstructure:"LOG_FORMAT"`
	LogOutputFile string `mapstructure:"LOG_OUTPUT_FILE"`

	BlobBackend          string `mapstructure:"BLOB_BACKEND"`
	MongoURI             string `mapstructure:"MONGO_URI"`
	MongoDatabase        string `mapstructure:"MONGO_DATABASE"`
	GridFSBucket         string `mapstructure:"GRIDFS_BUCKET"`
	GridFSChunkSizeBytes int32  `mapstructure:"GRIDFS_CHUNK_SIZE_BYTES"`
	MinIOEndpoint        string `mapstructure:"MINIO_ENDPOINT"`
	MinIOAccessKey       string `mapstructure:"MINIO_ACCESS_KEY"`
	MinIOSecretKey       string `mapstructure:"MINIO_SECRET_KEY"`
	MinIOBucket          string `mapstructure:"MINIO_BUCKET"`
	MinIOUseSSL          bool   `mapstructure:"MINIO_USE_SSL"`

	RedisAddress  string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`

	NATSURL                string `mapstructure:"NATS_URL"`
	PrometheusMetricsPort  string `mapstructure:"PROMETHEUS_METRICS_PORT"`
	OTExporterOTLPEndpoint string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TraceSampleRatio       float64 `mapstructure:"OTEL_TRACES_SAMPLE_RATIO"`
	Environment            string  `mapstructure:"DEPLOYMENT_ENVIRONMENT"`

	PageSize          int           `mapstructure:"PAGE_SIZE"`
	BrandPageSize     int           `mapstructure:"BRAND_PAGE_SIZE"`
	FeaturedLimit     int           `mapstructure:"FEATURED_LIMIT"`
	MaxFilesPerBatch  int           `mapstructure:"MAX_FILES_PER_BATCH"`
	MaxUploadBytes    int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	DeleteConcurrency int           `mapstructure:"DELETE_CONCURRENCY"`
	AssetCacheMaxAge  int           `mapstructure:"ASSET_CACHE_MAX_AGE"`
	ShutdownTimeout   time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_NAME", "gallery-service")
	v.SetDefault("HTTP_PORT", "8000")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("LOG_OUTPUT_FILE", "stdout")

	v.SetDefault("BLOB_BACKEND", BackendGridFS)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "gallery")
	v.SetDefault("GRIDFS_BUCKET", "uploads")
	v.SetDefault("GRIDFS_CHUNK_SIZE_BYTES", 255*1024)
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "listing-photos")
	v.SetDefault("MINIO_USE_SSL", false)

	v.SetDefault("REDIS_ADDRESS", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "60s")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("PROMETHEUS_METRICS_PORT", "9094")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_TRACES_SAMPLE_RATIO", 1.0)
	v.SetDefault("DEPLOYMENT_ENVIRONMENT", "local")

	v.SetDefault("PAGE_SIZE", 20)
	v.SetDefault("BRAND_PAGE_SIZE", 25)
	v.SetDefault("FEATURED_LIMIT", 10)
	v.SetDefault("MAX_FILES_PER_BATCH", 20)
	v.SetDefault("MAX_UPLOAD_BYTES", 32<<20)
	v.SetDefault("DELETE_CONCURRENCY", 4)
	v.SetDefault("ASSET_CACHE_MAX_AGE", 600)
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
}

// LoadConfig reads configuration from the environment. The .env file, if
// any, is loaded by main before this is called.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.BlobBackend = strings.ToLower(strings.TrimSpace(cfg.BlobBackend))
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Logger returns the logger settings.
func (c *Config) Logger() *logger.LoggerConfig {
	return &logger.LoggerConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		OutputFile: c.LogOutputFile,
	}
}

// Tracer returns the tracing settings.
func (c *Config) Tracer() tracer.Config {
	return tracer.Config{
		ServiceName: c.ServiceName,
		Environment: c.Environment,
		Endpoint:    c.OTExporterOTLPEndpoint,
		SampleRatio: c.TraceSampleRatio,
	}
}

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	switch c.BlobBackend {
	case BackendGridFS:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("config: MONGO_URI and MONGO_DATABASE are required for the %s backend", BackendGridFS)
		}
	case BackendMinIO:
		if c.MinIOEndpoint == "" || c.MinIOBucket == "" {
			return fmt.Errorf("config: MINIO_ENDPOINT and MINIO_BUCKET are required for the %s backend", BackendMinIO)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown BLOB_BACKEND %q", c.BlobBackend)
	}

	positive := map[string]int{
		"PAGE_SIZE":           c.PageSize,
		"BRAND_PAGE_SIZE":     c.BrandPageSize,
		"FEATURED_LIMIT":      c.FeaturedLimit,
		"MAX_FILES_PER_BATCH": c.MaxFilesPerBatch,
		"DELETE_CONCURRENCY":  c.DeleteConcurrency,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", key, value)
		}
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	switch c.LogFormat {
	case "json", "console", "text":
	default:
		return fmt.Errorf("config: unknown LOG_FORMAT %q", c.LogFormat)
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("config: OTEL_TRACES_SAMPLE_RATIO must be within [0, 1], got %v", c.TraceSampleRatio)
	}
	if c.HTTPPort == "" {
		return fmt.Errorf("config: HTTP_PORT is required")
	}
	return nil
}
