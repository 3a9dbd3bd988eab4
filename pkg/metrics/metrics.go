package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// Every call the gateway makes to MetaApi, by operation and outcome.
	providerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of MetaApi provider calls",
		},
		[]string{"operation", "status"},
	)

	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "MetaApi provider call duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	tradingOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trading_orders_total",
			Help: "Total number of orders forwarded to the provider",
		},
		[]string{"side", "status"},
	)
)

func init() {
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(httpRequestsTotal)
	registry.MustRegister(httpRequestDuration)
	registry.MustRegister(providerRequestsTotal)
	registry.MustRegister(providerRequestDuration)
	registry.MustRegister(tradingOrdersTotal)
}

// Registry returns the prometheus registry.
func Registry() *prometheus.Registry {
	return registry
}

// Handler returns a Fiber handler for the /metrics endpoint.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}

// Middleware records request count and duration per route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := strconv.Itoa(c.Response().StatusCode())
		method := c.Method()
		path := c.Route().Path

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		return err
	}
}

// RecordProviderCall records one MetaApi call. Status is "ok" or the
// error-kind code.
func RecordProviderCall(operation, status string, duration time.Duration) {
	providerRequestsTotal.WithLabelValues(operation, status).Inc()
	providerRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordTradingOrder records an order forwarded to the provider.
func RecordTradingOrder(side, status string) {
	tradingOrdersTotal.WithLabelValues(side, status).Inc()
}
