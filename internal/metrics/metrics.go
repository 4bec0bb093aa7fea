package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector Prometheus 指标；每个实例使用独立 Registry，方法对 nil 接收者安全
type Collector struct {
	registry *prometheus.Registry

	analysesTotal     *prometheus.CounterVec
	fallbacksTotal    *prometheus.CounterVec
	remoteDuration    prometheus.Histogram
	notificationsSent *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewCollector 创建并注册所有指标
func NewCollector(serviceName string) *Collector {
	constLabels := prometheus.Labels{"service": serviceName}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "checkin_analyses_total",
			Help:        "Check-in analyses by provider source and risk level",
			ConstLabels: constLabels,
		}, []string{"provider_source", "risk_level"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "provider_fallbacks_total",
			Help:        "Remote provider fallbacks by reason",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		remoteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "provider_remote_duration_seconds",
			Help:        "Latency of remote analyze_checkin calls",
			ConstLabels: constLabels,
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}),
		notificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "triage_notifications_total",
			Help:        "Triage notifications by channel and outcome",
			ConstLabels: constLabels,
		}, []string{"channel", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests",
			ConstLabels: constLabels,
		}, []string{"method", "route", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "http_request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.analysesTotal,
		c.fallbacksTotal,
		c.remoteDuration,
		c.notificationsSent,
		c.httpRequests,
		c.httpDuration,
	)
	return c
}

func (c *Collector) RecordAnalysis(source, riskLevel string) {
	if c == nil {
		return
	}
	c.analysesTotal.WithLabelValues(source, riskLevel).Inc()
}

func (c *Collector) RecordFallback(reason string) {
	if c == nil {
		return
	}
	c.fallbacksTotal.WithLabelValues(reason).Inc()
}

func (c *Collector) ObserveRemote(d time.Duration) {
	if c == nil {
		return
	}
	c.remoteDuration.Observe(d.Seconds())
}

func (c *Collector) RecordNotification(channel string, ok bool) {
	if c == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	c.notificationsSent.WithLabelValues(channel, status).Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry 供测试读取指标
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler /metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
