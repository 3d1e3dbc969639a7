package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "updateme",
			Name:      "http_requests_total",
			Help:      "Ops API requests by method, route and status.",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "updateme",
			Name:      "http_request_duration_seconds",
			Help:      "Ops API request latency in seconds.",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60, 120},
		},
		[]string{"method", "endpoint"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
}

func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.WithField("metrics_endpoint", "/metrics").Debug("Prometheus metrics registered")
	}
}

func (s *Server) metricsEndpoint(c echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
