package httpserver

import (
	"context"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Addr is the listen address built from the configured host and port.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, s.config.Port)
}

// Start serves the ops API until Shutdown, which makes it return
// http.ErrServerClosed. Timeouts are applied to echo's own servers so that
// Shutdown drains the one actually listening.
func (s *Server) Start() error {
	s.LogMetricsInitialization()
	for _, hs := range []*http.Server{s.echo.Server, s.echo.TLSServer} {
		hs.ReadTimeout = s.config.ReadTimeout
		hs.WriteTimeout = s.config.WriteTimeout
		hs.IdleTimeout = s.config.IdleTimeout
	}

	addr := s.Addr()
	log := s.logger.WithField("addr", addr)
	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		log.Info("ops server listening (tls)")
		return s.echo.StartTLS(addr, s.config.TLSCertFile, s.config.TLSKeyFile)
	}
	log.Info("ops server listening")
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("ops server shutting down")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
