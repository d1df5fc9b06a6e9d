package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/httpx"
	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API together with the notification workers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx)
	},
}

func runServer(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logx.Info("Starting Relay Match API Server...")

	container, err := NewContainer(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	app := newApp(container)

	workers := container.NewWorker()
	workers.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logx.Infof("Server listening on port %d", cfg.Server.Port)
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.Server.Port))
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logx.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logx.Errorf("Server forced to shutdown: %v", err)
	}
	workers.Wait()

	logx.Info("Server exited")
	return nil
}

func newApp(container *Container) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Relay Match API",
		DisableStartupMessage: true,
		ReadTimeout:           container.Config.Server.ReadTimeout,
		ErrorHandler:          httpx.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: container.Config.Server.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, HEAD",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		ready, delayed, queueErr := container.Queue.Stats(ctx)
		return c.JSON(fiber.Map{
			"status": "ok",
			"db":     container.DB.PingContext(ctx) == nil,
			"redis":  container.Queue.Ping(ctx) == nil,
			"queue": fiber.Map{
				"ok":      queueErr == nil,
				"ready":   ready,
				"delayed": delayed,
			},
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(container.Metrics, promhttp.HandlerOpts{})))

	// /api/matching/*
	container.MatchHandlers.RegisterRoutes(app)
	// /api/notifications/* and /t/*
	container.NotificationHandlers.RegisterRoutes(app)

	return app
}
