package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the research assistant.
// Metrics are organized by subsystem: chat requests, source fetches,
// the relevance filter, LLM operations, memory, and notifications. All
// counters and histograms are registered via promauto for automatic
// registration with the default Prometheus registry.
type Metrics struct {
	// ChatRequestsStarted counts the total number of chat requests received.
	ChatRequestsStarted prometheus.Counter

	// ChatRequestsCompleted counts chat requests that returned a summary.
	ChatRequestsCompleted prometheus.Counter

	// ChatRequestsFailed counts chat requests that ended in failure.
	ChatRequestsFailed prometheus.Counter

	// ChatDuration observes the end-to-end duration of chat requests in seconds.
	ChatDuration prometheus.Histogram

	// SourceRequestsTotal counts fetches against external sources, labeled by source.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed fetches, labeled by source.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRequestDuration observes fetch duration in seconds, labeled by source.
	SourceRequestDuration *prometheus.HistogramVec

	// ResultsPerSource observes the distribution of results returned per fetch, labeled by source.
	ResultsPerSource *prometheus.HistogramVec

	// ArticlesFiltered counts articles that survived the relevance filter.
	ArticlesFiltered prometheus.Counter

	// ArticlesDiscarded counts articles rejected by the relevance filter.
	ArticlesDiscarded prometheus.Counter

	// LLMRequestsTotal counts LLM API requests, labeled by provider and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by provider and model.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by provider and model.
	LLMRequestDuration *prometheus.HistogramVec

	// MemoryWritesTotal counts conversation exchanges written to the vector store.
	MemoryWritesTotal prometheus.Counter

	// MemoryWritesFailed counts failed vector store writes.
	MemoryWritesFailed prometheus.Counter

	// NotificationsSent counts delivered notifications, labeled by channel.
	NotificationsSent *prometheus.CounterVec

	// NotificationsFailed counts failed notification deliveries, labeled by channel.
	NotificationsFailed *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ChatRequestsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_started_total",
			Help:      "Total number of chat requests received",
		}),
		ChatRequestsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_completed_total",
			Help:      "Total number of chat requests completed successfully",
		}),
		ChatRequestsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_failed_total",
			Help:      "Total number of chat requests that failed",
		}),
		ChatDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_request_duration_seconds",
			Help:      "End-to-end chat request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of fetches against external sources",
		}, []string{"source"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed source fetches",
		}, []string{"source"}),
		SourceRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_request_duration_seconds",
			Help:      "Source fetch duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		ResultsPerSource: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "results_per_source",
			Help:      "Number of results returned per source fetch",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}, []string{"source"}),

		ArticlesFiltered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_filtered_total",
			Help:      "Total number of articles kept by the relevance filter",
		}),
		ArticlesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_discarded_total",
			Help:      "Total number of articles rejected by the relevance filter",
		}),

		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM API requests",
		}, []string{"provider", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM API requests",
		}, []string{"provider", "model"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM API request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "model"}),

		MemoryWritesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_writes_total",
			Help:      "Total number of conversation exchanges stored",
		}),
		MemoryWritesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_writes_failed_total",
			Help:      "Total number of failed conversation store writes",
		}),

		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Total number of notifications delivered",
		}, []string{"channel"}),
		NotificationsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Total number of failed notification deliveries",
		}, []string{"channel"}),
	}
}
