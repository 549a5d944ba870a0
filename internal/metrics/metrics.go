// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordFanoutSuccess(count int)
	RecordFanoutFailure()
	RecordDecisionNotified(status string)
	RecordPaymentConfirmed()
	RecordPaymentRejected()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	fanoutSuccess    prometheus.Counter
	fanoutFailure    prometheus.Counter
	decisionNotified *prometheus.CounterVec
	paymentConfirmed prometheus.Counter
	paymentRejected  prometheus.Counter
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fanoutSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_notification_fanout_success_total",
			Help: "ファンアウトで作成された通知の合計数",
		}),
		fanoutFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_notification_fanout_fail_total",
			Help: "通知ファンアウト失敗の合計数",
		}),
		decisionNotified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendman_decision_notified_total",
			Help: "審査結果通知の合計数（審査状態別）",
		}, []string{"status"}),
		paymentConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_payment_confirmed_total",
			Help: "決済確認成功の合計数",
		}),
		paymentRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lendman_payment_rejected_total",
			Help: "署名検証で拒否された決済確認の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lendman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.fanoutSuccess,
		c.fanoutFailure,
		c.decisionNotified,
		c.paymentConfirmed,
		c.paymentRejected,
		c.httpStatus,
	)

	return c
}

// RecordFanoutSuccess はファンアウトで作成された通知数を記録する。
func (c *Collector) RecordFanoutSuccess(count int) {
	c.fanoutSuccess.Add(float64(count))
}

// RecordFanoutFailure はファンアウト失敗を記録する。
func (c *Collector) RecordFanoutFailure() {
	c.fanoutFailure.Inc()
}

// RecordDecisionNotified は審査結果通知を記録する。
func (c *Collector) RecordDecisionNotified(status string) {
	c.decisionNotified.WithLabelValues(status).Inc()
}

// RecordPaymentConfirmed は決済確認成功を記録する。
func (c *Collector) RecordPaymentConfirmed() {
	c.paymentConfirmed.Inc()
}

// RecordPaymentRejected は署名検証で拒否された決済確認を記録する。
func (c *Collector) RecordPaymentRejected() {
	c.paymentRejected.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
