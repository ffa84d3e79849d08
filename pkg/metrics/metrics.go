package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP/gRPC 请求指标
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of requests",
		},
		[]string{"service", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	// 消息队列指标
	KafkaMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_total",
			Help: "Total number of Kafka messages",
		},
		[]string{"service", "topic", "status"},
	)

	// 业务指标
	VersionsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperwork_versions_submitted_total",
			Help: "Total number of version submissions by outcome",
		},
		[]string{"outcome"},
	)

	ReviewsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paperwork_reviews_recorded_total",
			Help: "Total number of reviews recorded by decision",
		},
		[]string{"decision"},
	)

	ArtifactBytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "artifact_bytes_written_total",
			Help: "Total artifact bytes written to the store",
		},
	)

	StorageRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifact_storage_retries_total",
			Help: "Total number of retried artifact store operations",
		},
		[]string{"op"},
	)

	ArchiveExtractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_entry_extractions_total",
			Help: "Total number of archive entries extracted by classification",
		},
		[]string{"class"},
	)
)

func init() {
	// 注册所有指标
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		KafkaMessagesTotal,
		VersionsSubmitted,
		ReviewsRecorded,
		ArtifactBytesWritten,
		StorageRetries,
		ArchiveExtractions,
	)
}

// Handler exposes the default registry for mounting on an existing router.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer 启动独立的 metrics HTTP 服务器
func StartMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic("failed to start metrics server: " + err.Error())
		}
	}()
	return srv
}

// RecordRequest 记录请求指标的助手函数
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}
