package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/updateme/engine/internal/core/ports"
	customMiddleware "github.com/updateme/engine/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
}

type ServerDeps struct {
	SummaryService     ports.SummaryService
	NewsletterService  ports.NewsletterService
	CacheStore         ports.CacheStore
	DeliveryLogService ports.DeliveryLogService
	OpsAuthService     ports.OpsAuthService
	HealthCheckers     []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	summarySvc     ports.SummaryService
	newsletterSvc  ports.NewsletterService
	cacheStore     ports.CacheStore
	deliverySvc    ports.DeliveryLogService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		summarySvc:     deps.SummaryService,
		newsletterSvc:  deps.NewsletterService,
		cacheStore:     deps.CacheStore,
		deliverySvc:    deps.DeliveryLogService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.OpsAuthService,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
