package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("PG_URL", "postgres://localhost/spectra")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, BlobDriverS3, cfg.Blob.Driver)
	assert.Equal(t, BrokerDriverJetStream, cfg.Broker.Driver)
	assert.Equal(t, "spectra-exchange", cfg.Broker.Exchange)
	assert.Equal(t, "image-processing-queue", cfg.Broker.ReceivedQueue)
	assert.Equal(t, "image-processed-queue", cfg.Broker.ProcessedQueue)
	assert.Equal(t, 150, cfg.Worker.ThumbnailWidth)
	assert.Equal(t, 150, cfg.Worker.ThumbnailHeight)
	assert.Equal(t, 30*time.Second, cfg.NATS.AckWait)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Outbox.Enabled)
	assert.Equal(t, time.Second, cfg.Worker.RetryInitialDelay)
	assert.Equal(t, 30*time.Second, cfg.Worker.RetryMaxDelay)
	assert.InDelta(t, 2.0, cfg.Worker.RetryMultiplier, 0)
	assert.Equal(t, time.Minute, cfg.Outbox.ClaimLease)
	assert.NoError(t, cfg.RequirePostgres())
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "s3 without endpoint", env: map[string]string{"PG_URL": "postgres://x"}},
		{name: "unknown blob driver", env: map[string]string{"PG_URL": "postgres://x", "BLOB_DRIVER": "gcs"}},
		{name: "unknown broker", env: map[string]string{"PG_URL": "postgres://x", "BLOB_DRIVER": "fs", "BROKER_DRIVER": "amqp"}},
		{name: "same queues", env: map[string]string{
			"PG_URL": "postgres://x", "BLOB_DRIVER": "fs",
			"BROKER_RECEIVED_QUEUE": "q", "BROKER_PROCESSED_QUEUE": "q",
		}},
		{name: "zero thumbnail", env: map[string]string{"PG_URL": "postgres://x", "BLOB_DRIVER": "fs", "WORKER_THUMBNAIL_WIDTH": "0"}},
		{name: "lease shorter than a batch", env: map[string]string{
			"BLOB_DRIVER": "fs", "OUTBOX_ENABLED": "true", "OUTBOX_CLAIM_LEASE": "10s",
		}},
		{name: "shrinking retry delay", env: map[string]string{"BLOB_DRIVER": "fs", "WORKER_RETRY_MULTIPLIER": "0.5"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := New()
			assert.Error(t, err)
		})
	}
}

func TestNewFSDriver(t *testing.T) {
	t.Setenv("PG_URL", "postgres://localhost/spectra")
	t.Setenv("BLOB_DRIVER", "fs")
	t.Setenv("BLOB_ROOT", t.TempDir())
	t.Setenv("BROKER_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestNewWithoutPostgres(t *testing.T) {
	t.Setenv("PG_URL", "")
	t.Setenv("BLOB_DRIVER", "fs")
	t.Setenv("BLOB_ROOT", t.TempDir())

	cfg, err := New()
	require.NoError(t, err, "the worker starts without a metadata store")

	assert.Error(t, cfg.RequirePostgres())
}
