package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index (Solr) Prometheus metrics.
var (
	IndexRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "databrowser",
			Name:      "index_requests_total",
			Help:      "Total number of index requests",
		},
		[]string{"op", "status"},
	)

	IndexRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "databrowser",
			Name:      "index_request_duration_seconds",
			Help:      "Index request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)
)

// Search stream metrics.
var (
	SearchPagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "databrowser",
			Name:      "search_pages_total",
			Help:      "Total number of result pages fetched",
		},
	)

	SearchDocumentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "databrowser",
			Name:      "search_documents_total",
			Help:      "Total number of documents streamed",
		},
	)
)

// Archive enumeration metrics.
var (
	ArchiveCandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "databrowser",
			Name:      "archive_candidates_total",
			Help:      "Files matched during archive enumeration",
		},
		[]string{"template", "result"}, // "decoded" / "skipped"
	)

	ArchiveDirsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "databrowser",
			Name:      "archive_dirs_skipped_total",
			Help:      "Unreadable directories skipped during enumeration",
		},
		[]string{"template"},
	)
)

// LatestDroppedTotal counts items discarded because a newer version exists.
var LatestDroppedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "databrowser",
		Name:      "latest_dropped_total",
		Help:      "Items dropped by latest-version resolution",
	},
)

var domainMetricsRegistered bool

// RegisterDomainMetrics registers index, search, archive and resolver metrics. Must be called once from main.
func RegisterDomainMetrics() {
	if domainMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexRequestsTotal)
	prometheus.MustRegister(IndexRequestDuration)
	prometheus.MustRegister(SearchPagesTotal)
	prometheus.MustRegister(SearchDocumentsTotal)
	prometheus.MustRegister(ArchiveCandidatesTotal)
	prometheus.MustRegister(ArchiveDirsSkippedTotal)
	prometheus.MustRegister(LatestDroppedTotal)
	domainMetricsRegistered = true
}
