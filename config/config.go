package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Drivers.
const (
	BlobDriverS3 = "s3"
	BlobDriverFS = "fs"

	BrokerDriverJetStream = "jetstream"
	BrokerDriverKafka     = "kafka"
)

type (
	Config struct {
		HTTP    HTTP
		Log     Log
		PG      PG
		Blob    Blob
		S3      S3
		Broker  Broker
		NATS    NATS
		Kafka   Kafka
		Worker  Worker
		Outbox  Outbox
		Metrics Metrics
		Swagger Swagger
	}

	HTTP struct {
		Port           string `env:"HTTP_PORT" envDefault:"8080"`
		ProbePort      string `env:"HTTP_PROBE_PORT" envDefault:"8081"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
		BodyLimit      int    `env:"HTTP_BODY_LIMIT" envDefault:"12582912"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX" envDefault:"10"`
		URL     string `env:"PG_URL"`
	}

	Blob struct {
		Driver string `env:"BLOB_DRIVER" envDefault:"s3"`
		Root   string `env:"BLOB_ROOT" envDefault:"./data/blobs"`
	}

	S3 struct {
		Endpoint       string        `env:"S3_ENDPOINT"`
		AccessKey      string        `env:"S3_ACCESS_KEY"`
		SecretKey      string        `env:"S3_SECRET_KEY"`
		Bucket         string        `env:"S3_BUCKET" envDefault:"spectra-images"`
		Region         string        `env:"S3_REGION" envDefault:"us-east-1"`
		CreateBucket   bool          `env:"S3_CREATE_BUCKET" envDefault:"false"`
		CfgLoadTimeout time.Duration `env:"S3_LOAD_CFG_TIMEOUT" envDefault:"10s"`
	}

	Broker struct {
		Driver         string `env:"BROKER_DRIVER" envDefault:"jetstream"`
		Exchange       string `env:"BROKER_EXCHANGE" envDefault:"spectra-exchange"`
		ReceivedQueue  string `env:"BROKER_RECEIVED_QUEUE" envDefault:"image-processing-queue"`
		ProcessedQueue string `env:"BROKER_PROCESSED_QUEUE" envDefault:"image-processed-queue"`
	}

	NATS struct {
		URL        string        `env:"NATS_URL" envDefault:"nats://localhost:4222"`
		AckWait    time.Duration `env:"NATS_ACK_WAIT" envDefault:"30s"`
		MaxDeliver int           `env:"NATS_MAX_DELIVER" envDefault:"5"`
		FetchBatch int           `env:"NATS_FETCH_BATCH" envDefault:"16"`
	}

	Kafka struct {
		Brokers           []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
		Partitions        int      `env:"KAFKA_PARTITIONS" envDefault:"3"`
		ReplicationFactor int      `env:"KAFKA_REPLICATION_FACTOR" envDefault:"1"`
	}

	Worker struct {
		Concurrency       int           `env:"WORKER_CONCURRENCY" envDefault:"0"` // 0 means runtime.NumCPU()
		MaxAttempts       int           `env:"WORKER_MAX_ATTEMPTS" envDefault:"5"`
		RetryInitialDelay time.Duration `env:"WORKER_RETRY_INITIAL_DELAY" envDefault:"1s"`
		RetryMaxDelay     time.Duration `env:"WORKER_RETRY_MAX_DELAY" envDefault:"30s"`
		RetryMultiplier   float64       `env:"WORKER_RETRY_MULTIPLIER" envDefault:"2"`
		RetryJitter       float64       `env:"WORKER_RETRY_JITTER" envDefault:"0.2"`
		AckTimeout        time.Duration `env:"WORKER_ACK_TIMEOUT" envDefault:"2s"`
		ProcessTimeout    time.Duration `env:"WORKER_PROCESS_TIMEOUT" envDefault:"15s"`
		CPUTimeout        time.Duration `env:"WORKER_CPU_TIMEOUT" envDefault:"8s"`
		ShutdownTimeout   time.Duration `env:"WORKER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
		ThumbnailWidth    int           `env:"WORKER_THUMBNAIL_WIDTH" envDefault:"150"`
		ThumbnailHeight   int           `env:"WORKER_THUMBNAIL_HEIGHT" envDefault:"150"`
	}

	Outbox struct {
		Enabled             bool          `env:"OUTBOX_ENABLED" envDefault:"false"`
		PollInterval        time.Duration `env:"OUTBOX_RELAY_POLL_INTERVAL" envDefault:"2s"`
		MarkFailedInterval  time.Duration `env:"OUTBOX_RELAY_MARK_FAILED_INTERVAL" envDefault:"2m"`
		CleanupInterval     time.Duration `env:"OUTBOX_RELAY_CLEANUP_INTERVAL" envDefault:"24h"`
		Retention           time.Duration `env:"OUTBOX_RETENTION" envDefault:"168h"`
		ClaimLease          time.Duration `env:"OUTBOX_CLAIM_LEASE" envDefault:"1m"`
		ProcessBatchTimeout time.Duration `env:"OUTBOX_RELAY_PROCESS_BATCH_TIMEOUT" envDefault:"15s"`
		ShutdownTimeout     time.Duration `env:"OUTBOX_RELAY_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize           int           `env:"OUTBOX_RELAY_BATCH_SIZE" envDefault:"100"`
		MaxRetries          int           `env:"OUTBOX_RELAY_MAX_RETRIES" envDefault:"3"`
	}

	Metrics struct {
		Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Blob.Driver {
	case BlobDriverS3:
		if c.S3.Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT is required for blob driver %q", BlobDriverS3)
		}
	case BlobDriverFS:
		if c.Blob.Root == "" {
			return fmt.Errorf("BLOB_ROOT is required for blob driver %q", BlobDriverFS)
		}
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.Blob.Driver)
	}

	switch c.Broker.Driver {
	case BrokerDriverJetStream, BrokerDriverKafka:
	default:
		return fmt.Errorf("unknown BROKER_DRIVER %q", c.Broker.Driver)
	}

	if c.Broker.ReceivedQueue == c.Broker.ProcessedQueue {
		return fmt.Errorf("received and processed queues must differ")
	}

	if c.Worker.ThumbnailWidth <= 0 || c.Worker.ThumbnailHeight <= 0 {
		return fmt.Errorf("thumbnail size must be positive")
	}

	if c.Outbox.Enabled && c.Outbox.ClaimLease <= c.Outbox.ProcessBatchTimeout {
		return fmt.Errorf("OUTBOX_CLAIM_LEASE must exceed OUTBOX_RELAY_PROCESS_BATCH_TIMEOUT")
	}

	if c.Worker.RetryMultiplier < 1 {
		return fmt.Errorf("WORKER_RETRY_MULTIPLIER must be at least 1")
	}

	return nil
}

// RequirePostgres is checked by the processes that open the metadata store. The worker does not.
func (c *Config) RequirePostgres() error {
	if c.PG.URL == "" {
		return fmt.Errorf("config error: PG_URL is required")
	}

	return nil
}
