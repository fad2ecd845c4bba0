package app

import (
	"testing"

	"github.com/andreyxaxa/Spectra/config"
	"github.com/andreyxaxa/Spectra/internal/infrastructure"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	return &config.Config{
		Broker: config.Broker{
			Exchange:       "spectra-exchange",
			ReceivedQueue:  "image-processing-queue",
			ProcessedQueue: "image-processed-queue",
		},
	}
}

func TestTopology(t *testing.T) {
	topology := Topology(testConfig())

	assert.Equal(t, "spectra-exchange", topology.Exchange)

	queue, ok := topology.Queue(infrastructure.RoutingKeyReceived)
	assert.True(t, ok)
	assert.Equal(t, "image-processing-queue", queue)

	queue, ok = topology.Queue(infrastructure.RoutingKeyProcessed)
	assert.True(t, ok)
	assert.Equal(t, "image-processed-queue", queue)
}

func TestFindBinding(t *testing.T) {
	b, ok := findBinding(Topology(testConfig()), infrastructure.RoutingKeyProcessed)
	assert.True(t, ok)
	assert.Equal(t, infrastructure.Binding{Queue: "image-processed-queue", RoutingKey: infrastructure.RoutingKeyProcessed}, b)

	_, ok = findBinding(Topology(testConfig()), "image.deleted")
	assert.False(t, ok)
}

func TestNewBlobRepoFS(t *testing.T) {
	cfg := testConfig()
	cfg.Blob = config.Blob{Driver: config.BlobDriverFS, Root: t.TempDir()}

	r, err := newBlobRepo(t.Context(), cfg)
	assert.NoError(t, err)
	assert.NotNil(t, r)

	cfg.Blob.Driver = "gcs"
	_, err = newBlobRepo(t.Context(), cfg)
	assert.Error(t, err)
}

func TestMigrateSummary(t *testing.T) {
	assert.Equal(t, "schema is up to date", MigrateSummary(nil))
	assert.Equal(t, "applied 2 migration(s): 0001_images.sql, 0002_images_outbox.sql",
		MigrateSummary([]string{"0001_images.sql", "0002_images_outbox.sql"}))
}
