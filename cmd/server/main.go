package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/updateme/engine/configs"
	"github.com/updateme/engine/internal/bootstrap"
)

func main() {
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := bootstrap.NewLogger(cfg.Log)
	logger.Info("Starting UpdateMe engine...")

	app, err := bootstrap.New(cfg, logger, bootstrap.Options{})
	if err != nil {
		logger.Fatal("Failed to initialize application: ", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		go app.Scheduler.Run(ctx)
		logger.WithFields(map[string]interface{}{
			"delivery_interval": cfg.Scheduler.DeliveryInterval.String(),
			"sweep_interval":    cfg.Scheduler.SweepInterval.String(),
		}).Info("Scheduler started")
	}

	server := app.NewServer()
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: ", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown: ", err)
		os.Exit(1)
	}

	logger.Info("Server exited")
}
