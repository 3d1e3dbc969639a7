package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")
	api.Use(s.middleware.OpsAuth.RequireOps())

	summaries := api.Group("/summaries")
	summaries.GET("/preview", s.previewSummary)
	summaries.POST("/send", s.sendSummary)

	api.POST("/newsletter/run", s.runNewsletter)

	cache := api.Group("/cache")
	cache.GET("/stats", s.cacheStats)
	cache.POST("/sweep", s.sweepCache)

	api.GET("/deliveries", s.listDeliveries)
}
