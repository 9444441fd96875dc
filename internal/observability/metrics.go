// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Upload metrics
	UploadsTotal   prometheus.Counter
	UploadsFailed  *prometheus.CounterVec
	BytesUploaded  prometheus.Counter
	UploadDuration prometheus.Histogram

	// Balance metrics
	FundingsTotal    prometheus.Counter
	WithdrawalsTotal prometheus.Counter
	FundedUnits      prometheus.Counter

	// Metadata metrics
	MetadataFetches      *prometheus.CounterVec
	MetadataJSONFailures prometheus.Counter

	// RPC metrics
	RPCCallLatency *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_nft_kit"
	}

	return &Metrics{
		UploadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "uploads_total",
			Help:      "Total number of files uploaded",
		}),
		UploadsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "uploads_failed_total",
			Help:      "Total number of failed uploads by status code",
		}, []string{"status"}),
		BytesUploaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "bytes_uploaded_total",
			Help:      "Total bytes uploaded to the storage network",
		}),
		UploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "upload_duration_seconds",
			Help:      "Upload batch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		FundingsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "fundings_total",
			Help:      "Total number of balance funding operations",
		}),
		WithdrawalsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "withdrawals_total",
			Help:      "Total number of balance withdrawal operations",
		}),
		FundedUnits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "funded_units_total",
			Help:      "Total smallest units deposited into the node balance",
		}),

		MetadataFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metaplex",
			Name:      "metadata_fetches_total",
			Help:      "Total number of metadata account fetches by status",
		}, []string{"status"}),
		MetadataJSONFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metaplex",
			Name:      "metadata_json_failures_total",
			Help:      "Total number of failed off-chain JSON fetches",
		}),

		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
