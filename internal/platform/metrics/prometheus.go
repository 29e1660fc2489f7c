package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Abdurahmanit/GroupProject/gallery-service/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsManager holds the service's Prometheus collectors.
// All recording methods are safe to call on a nil receiver.
type MetricsManager struct {
	Registry *prometheus.Registry

	BatchesUploaded     prometheus.Counter
	ObjectsStored       prometheus.Counter
	ObjectUploadErrors  prometheus.Counter
	GroupsDeleted       prometheus.Counter
	ObjectDeleteErrors  prometheus.Counter
	IntegrityGaps       prometheus.Counter
	ListingsReturned    *prometheus.HistogramVec
	HTTPRequestLatency  *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	ListingCacheLookups *prometheus.CounterVec
}

// NewMetricsManager registers the collectors in a private registry.
func NewMetricsManager(serviceName string) *MetricsManager {
	namespace := sanitize(serviceName)
	registry := prometheus.NewRegistry()

	m := &MetricsManager{
		Registry: registry,
		BatchesUploaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_batches_total",
			Help:      "Total number of upload batches that stored at least one object.",
		}),
		ObjectsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_stored_total",
			Help:      "Total number of images persisted.",
		}),
		ObjectUploadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_upload_errors_total",
			Help:      "Total number of images that failed to persist.",
		}),
		GroupsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_deleted_total",
			Help:      "Total number of listing groups deleted.",
		}),
		ObjectDeleteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_delete_errors_total",
			Help:      "Total number of images that failed to delete.",
		}),
		IntegrityGaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_gaps_total",
			Help:      "Stored objects skipped during reconstruction because of missing metadata.",
		}),
		ListingsReturned: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listings_returned",
			Help:      "Number of listing views returned per reconstruction.",
			Buckets:   []float64{0, 1, 5, 10, 20, 25, 50, 100, 250},
		}, []string{"view"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		ListingCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "listing_cache_lookups_total",
			Help:      "Listing cache lookups by result.",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.BatchesUploaded,
		m.ObjectsStored,
		m.ObjectUploadErrors,
		m.GroupsDeleted,
		m.ObjectDeleteErrors,
		m.IntegrityGaps,
		m.ListingsReturned,
		m.HTTPRequestLatency,
		m.HTTPRequestsTotal,
		m.ListingCacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *MetricsManager) ObserveUpload(stored, failed int) {
	if m == nil {
		return
	}
	if stored > 0 {
		m.BatchesUploaded.Inc()
	}
	m.ObjectsStored.Add(float64(stored))
	m.ObjectUploadErrors.Add(float64(failed))
}

func (m *MetricsManager) ObserveDelete(failed int) {
	if m == nil {
		return
	}
	m.GroupsDeleted.Inc()
	m.ObjectDeleteErrors.Add(float64(failed))
}

func (m *MetricsManager) ObserveReconstruction(view string, returned, discarded int) {
	if m == nil {
		return
	}
	m.ListingsReturned.WithLabelValues(view).Observe(float64(returned))
	m.IntegrityGaps.Add(float64(discarded))
}

func (m *MetricsManager) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ListingCacheLookups.WithLabelValues(result).Inc()
}

func (m *MetricsManager) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
}

// NewMetricsServer returns the HTTP server exposing /metrics, or nil when port is empty.
func NewMetricsServer(port string, registry *prometheus.Registry) *http.Server {
	if port == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// StartMetricsServer blocks serving srv until it is shut down.
func StartMetricsServer(srv *http.Server, appLogger *logger.Logger) error {
	if srv == nil {
		appLogger.Info("Prometheus metrics server port not configured, server will not start.")
		return nil
	}
	appLogger.Info("Prometheus metrics server starting", zap.String("addr", srv.Addr), zap.String("path", "/metrics"))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
