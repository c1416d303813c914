// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LobbyCollector はロビーのメトリクス収集のインターフェース。
// ハブのイベントループから利用する。
type LobbyCollector interface {
	RecordConnect()
	RecordDisconnect()
	RecordJoin()
	RecordLeave()
	RecordBroadcast(recipients int)
	RecordDroppedSend()
	SetRoomCount(count int)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	connections  prometheus.Gauge
	rooms        prometheus.Gauge
	joins        prometheus.Counter
	leaves       prometheus.Counter
	broadcasts   prometheus.Counter
	recipients   prometheus.Counter
	droppedSends prometheus.Counter
	httpStatus   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "travelmate_lobby_connections",
			Help: "ロビーに接続中のWebSocketコネクション数",
		}),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "travelmate_lobby_rooms",
			Help: "メンバーシップエントリが残っているルーム数（切断後の残留エントリを含む）",
		}),
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelmate_lobby_joins_total",
			Help: "処理したjoinイベントの合計数",
		}),
		leaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelmate_lobby_leaves_total",
			Help: "処理したleaveイベントの合計数",
		}),
		broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelmate_lobby_broadcasts_total",
			Help: "送出したブロードキャストの合計数",
		}),
		recipients: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelmate_lobby_broadcast_recipients_total",
			Help: "ブロードキャストの配信先コネクションの延べ数",
		}),
		droppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "travelmate_lobby_dropped_sends_total",
			Help: "送信バッファ満杯または切断済みのため破棄した配信の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "travelmate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.connections,
		c.rooms,
		c.joins,
		c.leaves,
		c.broadcasts,
		c.recipients,
		c.droppedSends,
		c.httpStatus,
	)

	return c
}

// RecordConnect はロビーへの接続を記録する。
func (c *Collector) RecordConnect() {
	c.connections.Inc()
}

// RecordDisconnect はロビーからの切断を記録する。
func (c *Collector) RecordDisconnect() {
	c.connections.Dec()
}

// RecordJoin はjoinイベントを記録する。
func (c *Collector) RecordJoin() {
	c.joins.Inc()
}

// RecordLeave はleaveイベントを記録する。
func (c *Collector) RecordLeave() {
	c.leaves.Inc()
}

// RecordBroadcast はブロードキャスト1回と配信先数を記録する。
func (c *Collector) RecordBroadcast(recipients int) {
	c.broadcasts.Inc()
	c.recipients.Add(float64(recipients))
}

// RecordDroppedSend は配信の破棄を記録する。
func (c *Collector) RecordDroppedSend() {
	c.droppedSends.Inc()
}

// SetRoomCount は現在のルーム数を記録する。
func (c *Collector) SetRoomCount(count int) {
	c.rooms.Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ LobbyCollector = (*Collector)(nil)
