// Package metrics 暴露 Prometheus 指标
// 每个 Metrics 持有独立的 Registry，方法对 nil 接收者安全
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reconnect"

// Metrics 服务指标集合
type Metrics struct {
	registry *prometheus.Registry

	messagesSent       *prometheus.CounterVec
	contactTransitions *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	wsConnections      prometheus.Gauge
	wsPushes           prometheus.Counter
	wsDropped          prometheus.Counter
}

// New 创建并注册全部指标
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Persisted messages by entry point.",
		}, []string{"via"}),
		contactTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_transitions_total",
			Help:      "Contact edge transitions by operation and outcome.",
		}, []string{"operation", "outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Notifications written by type.",
		}, []string{"type"}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Currently connected websocket clients.",
		}),
		wsPushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_pushes_total",
			Help:      "Frames queued to websocket clients.",
		}),
		wsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_pushes_dropped_total",
			Help:      "Frames dropped because a client send buffer was full.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messagesSent,
		m.contactTransitions,
		m.notifications,
		m.wsConnections,
		m.wsPushes,
		m.wsDropped,
	)
	return m
}

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 供测试读取指标
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) MessageSent(via string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(via).Inc()
}

func (m *Metrics) ContactTransition(operation, outcome string) {
	if m == nil {
		return
	}
	m.contactTransitions.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) NotificationCreated(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.wsConnections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.wsConnections.Dec()
}

func (m *Metrics) Pushed() {
	if m == nil {
		return
	}
	m.wsPushes.Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.wsDropped.Inc()
}
