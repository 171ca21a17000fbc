// Package metrics 定义实时聊天的 Prometheus 指标
// 所有方法对 nil 接收者安全，未启用指标时直接传 nil
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "channel_chat"

// Metrics 聊天服务指标集合
type Metrics struct {
	gatherer prometheus.Gatherer

	connectionsActive prometheus.Gauge
	subscriptions     prometheus.Gauge
	messagesTotal     prometheus.Counter
	deliveriesTotal   prometheus.Counter
	rejectionsTotal   *prometheus.CounterVec
	slowConsumers     prometheus.Counter
}

// New 在给定的 Registry 上注册全部指标
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Number of open live sessions.",
		}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions_active",
			Help:      "Number of (connection, channel) subscriptions.",
		}),
		messagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages accepted and published.",
		}),
		deliveriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "new_message frames enqueued to subscribers.",
		}),
		rejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Client intents answered with an error event.",
		}, []string{"event", "code"}),
		slowConsumers: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slow_consumers_total",
			Help:      "Connections closed because their send buffer was full.",
		}),
	}
}

// NewDefault 使用新的 Registry，并附带 Go 运行时与进程指标
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return New(reg)
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnOpened() {
	if m != nil {
		m.connectionsActive.Inc()
	}
}

func (m *Metrics) ConnClosed() {
	if m != nil {
		m.connectionsActive.Dec()
	}
}

func (m *Metrics) Subscribed() {
	if m != nil {
		m.subscriptions.Inc()
	}
}

func (m *Metrics) Unsubscribed(n int) {
	if m != nil && n > 0 {
		m.subscriptions.Sub(float64(n))
	}
}

func (m *Metrics) MessagePublished() {
	if m != nil {
		m.messagesTotal.Inc()
	}
}

func (m *Metrics) Delivered(n int) {
	if m != nil && n > 0 {
		m.deliveriesTotal.Add(float64(n))
	}
}

func (m *Metrics) Rejected(event string, code int) {
	if m != nil {
		m.rejectionsTotal.WithLabelValues(event, strconv.Itoa(code)).Inc()
	}
}

func (m *Metrics) SlowConsumer() {
	if m != nil {
		m.slowConsumers.Inc()
	}
}
