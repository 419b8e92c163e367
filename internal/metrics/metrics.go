// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー層やサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
	RecordPostCreated()
	RecordUploadRejected()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
	postsCreated    prometheus.Counter
	uploadsRejected prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tsuzuri_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tsuzuri_request_duration_seconds",
			Help:    "HTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsuzuri_posts_created_total",
			Help: "作成された記事の合計数",
		}),
		uploadsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tsuzuri_uploads_rejected_total",
			Help: "検証で拒否されたアップロードの合計数",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestDuration,
		c.postsCreated,
		c.uploadsRejected,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// RecordPostCreated は記事作成を記録する。
func (c *Collector) RecordPostCreated() {
	c.postsCreated.Inc()
}

// RecordUploadRejected はアップロード拒否を記録する。
func (c *Collector) RecordUploadRejected() {
	c.uploadsRejected.Inc()
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NewHTTPMetricsMiddleware はレスポンスのステータスコードと処理時間を
// Collectorに記録するミドルウェアを返す。
func NewHTTPMetricsMiddleware(collector MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestDuration(time.Since(start))
		})
	}
}

// statusRecorder はステータスコード記録用のResponseWriterラッパー。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}
