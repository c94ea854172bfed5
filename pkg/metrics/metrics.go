package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_trade_mutations_total",
		Help: "Total number of trade create/update/delete operations",
	}, []string{"operation", "status"})

	TradesImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_trades_imported_total",
		Help: "Total number of CSV rows imported or skipped",
	}, []string{"status"})

	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "journal_import_duration_seconds",
		Help:    "Duration of CSV imports",
		Buckets: prometheus.DefBuckets,
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_cache_hits_total",
		Help: "Total number of cache hits",
	}, []string{"backend"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_cache_misses_total",
		Help: "Total number of cache misses",
	}, []string{"backend"})

	DatabaseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_database_queries_total",
		Help: "Total number of database queries",
	}, []string{"query_type", "status"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "journal_database_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query_type"})

	ClientRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_client_requests_total",
		Help: "Total number of requests issued against the trades API",
	}, []string{"operation", "status"})
)

func RecordCacheHit(backend string) {
	CacheHits.WithLabelValues(backend).Inc()
}

func RecordCacheMiss(backend string) {
	CacheMisses.WithLabelValues(backend).Inc()
}

func RecordDatabaseQuery(queryType, status string, duration float64) {
	DatabaseQueries.WithLabelValues(queryType, status).Inc()
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(duration)
}

func RecordMutation(operation string, err error) {
	TradeMutations.WithLabelValues(operation, statusOf(err)).Inc()
}

func RecordClientRequest(operation string, err error) {
	ClientRequests.WithLabelValues(operation, statusOf(err)).Inc()
}

func RecordImport(imported, skipped int) {
	TradesImported.WithLabelValues("imported").Add(float64(imported))
	TradesImported.WithLabelValues("skipped").Add(float64(skipped))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
