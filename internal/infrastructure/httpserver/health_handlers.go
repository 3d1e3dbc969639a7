package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const serviceVersion = "1.0.0"

type dependencyStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// healthCheck probes every dependency; any failure degrades the service to 503.
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	deps := make(map[string]dependencyStatus, len(s.healthCheckers))
	overall := "healthy"
	for _, hc := range s.healthCheckers {
		if hc == nil {
			continue
		}
		start := time.Now()
		st := dependencyStatus{Status: "healthy"}
		if err := hc.Check(ctx); err != nil {
			st.Status = "unhealthy"
			st.Error = err.Error()
			overall = "degraded"
		}
		st.Latency = time.Since(start).String()
		deps[hc.Name()] = st
	}

	code := http.StatusOK
	if overall != "healthy" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{
		"status":       overall,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"version":      serviceVersion,
		"service":      "updateme-engine",
		"dependencies": deps,
	})
}
