// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// メニュー・ニュースの各マネージャーと取り込みワーカーから利用する。
type Recorder interface {
	RecordRemoteWrite(entity, operation string, ok bool)
	RecordCacheWrite(key string, ok bool)
	RecordRateLimited(operation string)
	RecordValidationFailure(entity string)
	RecordImportedItems(imported, skipped int)
	RecordFeedFetch(ok bool, latency time.Duration)
	RecordHTTPStatus(statusCode int)
	SetOnline(online bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	remoteWrites       *prometheus.CounterVec
	cacheWrites        *prometheus.CounterVec
	rateLimited        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	importItems        *prometheus.CounterVec
	feedFetch          *prometheus.CounterVec
	feedFetchLatency   prometheus.Histogram
	httpStatus         *prometheus.CounterVec
	online             prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		remoteWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_remote_writes_total",
			Help: "RemoteStoreへの書き込み結果の合計数",
		}, []string{"entity", "operation", "result"}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_cache_writes_total",
			Help: "PersistentCacheへのスナップショット書き込み結果の合計数",
		}, []string{"key", "result"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_rate_limited_total",
			Help: "試行回数制限で拒否された操作の合計数",
		}, []string{"operation"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_validation_failures_total",
			Help: "入力検証に失敗した操作の合計数",
		}, []string{"entity"}),
		importItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_import_items_total",
			Help: "フィード取り込みで処理された記事の合計数",
		}, []string{"result"}),
		feedFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_import_fetch_total",
			Help: "取り込み元フィードの取得結果の合計数",
		}, []string{"result"}),
		feedFetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_import_fetch_latency_seconds",
			Help:    "取り込み元フィード取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_import_http_status_total",
			Help: "取り込み元フィードのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		online: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_remote_online",
			Help: "起動時の疎通確認でRemoteStoreに到達できた場合は1",
		}),
	}

	reg.MustRegister(
		c.remoteWrites,
		c.cacheWrites,
		c.rateLimited,
		c.validationFailures,
		c.importItems,
		c.feedFetch,
		c.feedFetchLatency,
		c.httpStatus,
		c.online,
	)

	return c
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// RecordRemoteWrite はRemoteStoreへの書き込み結果を記録する。
func (c *Collector) RecordRemoteWrite(entity, operation string, ok bool) {
	c.remoteWrites.WithLabelValues(entity, operation, result(ok)).Inc()
}

// RecordCacheWrite はPersistentCacheへの書き込み結果を記録する。
func (c *Collector) RecordCacheWrite(key string, ok bool) {
	c.cacheWrites.WithLabelValues(key, result(ok)).Inc()
}

// RecordRateLimited は試行回数制限による拒否を記録する。
func (c *Collector) RecordRateLimited(operation string) {
	c.rateLimited.WithLabelValues(operation).Inc()
}

// RecordValidationFailure は入力検証の失敗を記録する。
func (c *Collector) RecordValidationFailure(entity string) {
	c.validationFailures.WithLabelValues(entity).Inc()
}

// RecordImportedItems は取り込み件数とスキップ件数を記録する。
func (c *Collector) RecordImportedItems(imported, skipped int) {
	c.importItems.WithLabelValues("imported").Add(float64(imported))
	c.importItems.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordFeedFetch はフィード取得の結果とレイテンシを記録する。
func (c *Collector) RecordFeedFetch(ok bool, latency time.Duration) {
	c.feedFetch.WithLabelValues(result(ok)).Inc()
	c.feedFetchLatency.Observe(latency.Seconds())
}

// RecordHTTPStatus はフィード取得時のHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// SetOnline はRemoteStoreの疎通状態を記録する。
func (c *Collector) SetOnline(online bool) {
	if online {
		c.online.Set(1)
		return
	}
	c.online.Set(0)
}

// Nop は何も記録しないRecorder。メトリクスを使わない構成とテストで使用する。
type Nop struct{}

func (Nop) RecordRemoteWrite(string, string, bool) {}
func (Nop) RecordCacheWrite(string, bool)          {}
func (Nop) RecordRateLimited(string)               {}
func (Nop) RecordValidationFailure(string)         {}
func (Nop) RecordImportedItems(int, int)           {}
func (Nop) RecordFeedFetch(bool, time.Duration)    {}
func (Nop) RecordHTTPStatus(int)                   {}
func (Nop) SetOnline(bool)                         {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
