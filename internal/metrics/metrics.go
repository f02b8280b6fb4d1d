// Package metrics собирает prometheus-метрики магазина: HTTP, вызовы шлюза, исходы оплаты.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"shop-service/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shop"

type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	GatewayCallsTotal   *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec
	PaymentOutcomes     *prometheus.CounterVec

	registry *prometheus.Registry
}

// New регистрирует метрики в собственном registry, глобальный не трогаем
func New(serviceName string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "route", "code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		GatewayCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "gateway_calls_total",
			Help:      "Payment gateway calls by operation and result",
		}, []string{"op", "result"}),
		GatewayCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "gateway_call_duration_seconds",
			Help:      "Payment gateway call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"op"}),
		PaymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: serviceName,
			Name:      "payment_outcomes_total",
			Help:      "Payment verification outcomes",
		}, []string{"outcome"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GatewayCallsTotal,
		m.GatewayCallDuration,
		m.PaymentOutcomes,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware считает запросы по шаблону маршрута, а не по сырому пути
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) ObservePaymentOutcome(outcome string) {
	m.PaymentOutcomes.WithLabelValues(outcome).Inc()
}

// Gateway: то, что нужно от клиента шлюза
type Gateway interface {
	Request(ctx context.Context, in gateway.RequestInput) (*gateway.RequestResult, error)
	Verify(ctx context.Context, amount int64, authority string) (*gateway.VerifyResult, error)
	StartPayURL(authority string) string
}

type instrumentedGateway struct {
	next Gateway
	m    *Metrics
}

// InstrumentGateway оборачивает клиент шлюза счётчиками и гистограммой
func (m *Metrics) InstrumentGateway(next Gateway) Gateway {
	return &instrumentedGateway{next: next, m: m}
}

func (g *instrumentedGateway) Request(ctx context.Context, in gateway.RequestInput) (*gateway.RequestResult, error) {
	start := time.Now()
	res, err := g.next.Request(ctx, in)
	g.observe("request", start, err)
	return res, err
}

func (g *instrumentedGateway) Verify(ctx context.Context, amount int64, authority string) (*gateway.VerifyResult, error) {
	start := time.Now()
	res, err := g.next.Verify(ctx, amount, authority)
	g.observe("verify", start, err)
	return res, err
}

func (g *instrumentedGateway) StartPayURL(authority string) string {
	return g.next.StartPayURL(authority)
}

func (g *instrumentedGateway) observe(op string, start time.Time, err error) {
	g.m.GatewayCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	g.m.GatewayCallsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	var gwErr *gateway.Error
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &gwErr):
		return "gateway_error"
	}
	return "transport_error"
}
