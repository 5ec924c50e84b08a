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
// 認証サービス・名前解決サービスから利用する。
type MetricsCollector interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordTokenExchangeFailure()
	RecordUpsertFailure(backend string)
	RecordLookupHit(source string)
	RecordLookupMiss()
	RecordHTTPStatus(statusCode int)
	RecordProviderLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess    prometheus.Counter
	loginFail       *prometheus.CounterVec
	tokenFail       prometheus.Counter
	upsertFail      *prometheus.CounterVec
	lookupHit       *prometheus.CounterVec
	lookupMiss      prometheus.Counter
	httpStatus      *prometheus.CounterVec
	providerLatency prometheus.Histogram
}

// NewCollector はCollectorを生成し、メトリクスをレジストリに登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vxauth_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vxauth_login_failure_total",
			Help: "ログイン失敗の合計数（理由別）",
		}, []string{"reason"}),
		tokenFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vxauth_token_exchange_failure_total",
			Help: "OAuthトークン交換失敗の合計数",
		}),
		upsertFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vxauth_store_upsert_failure_total",
			Help: "ストアへの書き込み失敗の合計数（バックエンド別）",
		}, []string{"backend"}),
		lookupHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vxauth_lookup_hit_total",
			Help: "ユーザー解決のヒット数（解決元別: sqlite, postgres, github）",
		}, []string{"source"}),
		lookupMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vxauth_lookup_miss_total",
			Help: "全段階を試行しても解決できなかったユーザー検索の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vxauth_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vxauth_provider_latency_seconds",
			Help:    "GitHub API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.tokenFail,
		c.upsertFail,
		c.lookupHit,
		c.lookupMiss,
		c.httpStatus,
		c.providerLatency,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を理由付きで記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordTokenExchangeFailure はトークン交換失敗を記録する。
func (c *Collector) RecordTokenExchangeFailure() {
	c.tokenFail.Inc()
}

// RecordUpsertFailure はストア書き込み失敗をバックエンド別に記録する。
func (c *Collector) RecordUpsertFailure(backend string) {
	c.upsertFail.WithLabelValues(backend).Inc()
}

// RecordLookupHit はユーザー解決のヒットを解決元別に記録する。
func (c *Collector) RecordLookupHit(source string) {
	c.lookupHit.WithLabelValues(source).Inc()
}

// RecordLookupMiss はユーザー解決の全段階ミスを記録する。
func (c *Collector) RecordLookupMiss() {
	c.lookupMiss.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordProviderLatency はGitHub API呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(duration time.Duration) {
	c.providerLatency.Observe(duration.Seconds())
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// NopCollector は何も記録しないMetricsCollector実装。テスト用。
type NopCollector struct{}

func (NopCollector) RecordLoginSuccess()                   {}
func (NopCollector) RecordLoginFailure(reason string)      {}
func (NopCollector) RecordTokenExchangeFailure()           {}
func (NopCollector) RecordUpsertFailure(backend string)    {}
func (NopCollector) RecordLookupHit(source string)         {}
func (NopCollector) RecordLookupMiss()                     {}
func (NopCollector) RecordHTTPStatus(statusCode int)       {}
func (NopCollector) RecordProviderLatency(d time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
