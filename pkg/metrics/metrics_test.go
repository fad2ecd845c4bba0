package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := New()

	m.ObserveUpload("accepted")
	m.ObserveUpload("accepted")
	m.ObserveDelivery("image-processing-queue", OutcomeRequeued, time.Now())
	m.ObservePublish("image.received", nil)
	m.ObservePublish("image.received", errors.New("nats: timeout"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Uploads.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("image-processing-queue", OutcomeRequeued)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("image.received", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("image.received", "error")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveUpload("accepted")
		m.ObserveDelivery("q", OutcomeAcked, time.Now())
		m.ObservePublish("image.processed", nil)
	})
}
