package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsManager_Observe(t *testing.T) {
	m := NewMetricsManager("gallery-service")

	m.ObserveUpload(3, 1)
	m.ObserveUpload(0, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchesUploaded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ObjectsStored))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ObjectUploadErrors))

	m.ObserveDelete(2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GroupsDeleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ObjectDeleteErrors))

	m.ObserveReconstruction("featured", 10, 4)
	assert.Equal(t, 4.0, testutil.ToFloat64(m.IntegrityGaps))

	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListingCacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ListingCacheLookups.WithLabelValues("miss")))

	m.ObserveHTTP(http.MethodGet, "/api/posts/featured", 200, 15*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/posts/featured", "200")))
}

func TestMetricsManager_NilSafe(t *testing.T) {
	var m *MetricsManager
	assert.NotPanics(t, func() {
		m.ObserveUpload(1, 0)
		m.ObserveDelete(0)
		m.ObserveReconstruction("all", 1, 0)
		m.ObserveCacheLookup(true)
		m.ObserveHTTP("GET", "/", 200, time.Second)
	})
}

func TestNewMetricsServer(t *testing.T) {
	assert.Nil(t, NewMetricsServer("", nil))
	srv := NewMetricsServer("9095", NewMetricsManager("x").Registry)
	assert.Equal(t, ":9095", srv.Addr)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "gallery_service", sanitize("gallery-service"))
}
