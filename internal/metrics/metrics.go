// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ユーザー変更操作の結果ラベル。
const (
	ResultApplied = "applied"
	ResultSkipped = "skipped"
	ResultError   = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// Webhookハンドラーから利用する。
type MetricsCollector interface {
	RecordWebhook(eventType string, statusCode int)
	RecordVerificationFailure(reason string)
	RecordMutation(operation, result string)
	RecordWebhookLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	webhooks       *prometheus.CounterVec
	verifyFail     *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	webhookLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idpsync_webhook_requests_total",
			Help: "イベント種別・HTTPステータス別のWebhook処理数",
		}, []string{"event_type", "status_code"}),
		verifyFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idpsync_webhook_verification_failures_total",
			Help: "署名検証に失敗したWebhookの数",
		}, []string{"reason"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idpsync_user_mutations_total",
			Help: "操作・結果別のユーザー変更数",
		}, []string{"operation", "result"}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "idpsync_webhook_latency_seconds",
			Help:    "Webhook処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.webhooks,
		c.verifyFail,
		c.mutations,
		c.webhookLatency,
	)

	return c
}

// RecordWebhook はWebhookの処理結果を記録する。
func (c *Collector) RecordWebhook(eventType string, statusCode int) {
	c.webhooks.WithLabelValues(eventType, strconv.Itoa(statusCode)).Inc()
}

// RecordVerificationFailure は署名検証の失敗を記録する。
func (c *Collector) RecordVerificationFailure(reason string) {
	c.verifyFail.WithLabelValues(reason).Inc()
}

// RecordMutation はユーザー変更操作の結果を記録する。
func (c *Collector) RecordMutation(operation, result string) {
	c.mutations.WithLabelValues(operation, result).Inc()
}

// RecordWebhookLatency はWebhook処理のレイテンシを記録する。
func (c *Collector) RecordWebhookLatency(duration time.Duration) {
	c.webhookLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
