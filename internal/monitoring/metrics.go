package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 系统监控指标集合
type Metrics struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestSize     *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 业务指标
	lettersSentTotal      prometheus.Counter
	lettersDisclosedTotal *prometheus.CounterVec
	readReceiptsTotal     prometheus.Counter

	// 错误指标
	errorsTotal *prometheus.CounterVec
	panicsTotal prometheus.Counter
}

// NewMetrics 创建并注册监控指标（promauto 自动注册到默认 Registry）
func NewMetrics() *Metrics {
	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeletter_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timeletter_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timeletter_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(128, 4, 6),
			},
			[]string{"method", "path"},
		),
		httpResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "timeletter_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(128, 4, 6),
			},
			[]string{"method", "path"},
		),
		lettersSentTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "timeletter_letters_sent_total",
				Help: "Total number of letters submitted",
			},
		),
		lettersDisclosedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeletter_letters_disclosed_total",
				Help: "Total number of letter disclosures, by lock state",
			},
			[]string{"state"}, // "locked"（预览）或 "open"（全文）
		),
		readReceiptsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "timeletter_read_receipts_total",
				Help: "Total number of read receipts written",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "timeletter_errors_total",
				Help: "Total number of errors by type and component",
			},
			[]string{"type", "component"},
		),
		panicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "timeletter_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录一次 HTTP 请求的指标
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int64) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.httpRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	m.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordLetterSent 记录一封信件提交
func (m *Metrics) RecordLetterSent() {
	m.lettersSentTotal.Inc()
}

// RecordLetterDisclosed 记录一次信件披露
func (m *Metrics) RecordLetterDisclosed(locked bool) {
	state := "open"
	if locked {
		state = "locked"
	}
	m.lettersDisclosedTotal.WithLabelValues(state).Inc()
}

// RecordReadReceipt 记录一次已读回执写入
func (m *Metrics) RecordReadReceipt() {
	m.readReceiptsTotal.Inc()
}

// RecordError 记录一次错误
func (m *Metrics) RecordError(errType, component string) {
	m.errorsTotal.WithLabelValues(errType, component).Inc()
}

// RecordPanic 记录一次 panic 恢复
func (m *Metrics) RecordPanic() {
	m.panicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus 指标暴露端点
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
