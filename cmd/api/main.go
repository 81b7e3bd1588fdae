package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/campus-support/internal/api/http"
	"github.com/spec-kit/campus-support/internal/api/http/handlers"
	"github.com/spec-kit/campus-support/internal/app"
	"github.com/spec-kit/campus-support/internal/auth"
	"github.com/spec-kit/campus-support/internal/config"
	"github.com/spec-kit/campus-support/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise", zap.Error(err))
	}
	defer container.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, container.Store.Repositories().Users)

	server := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(server, logger, container.Metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version,
			handlers.NamedPinger{Name: "postgres", Pinger: container.Postgres},
			handlers.NamedPinger{Name: "redis", Pinger: container.Redis},
		),
		Tickets:         handlers.NewTicketsHandler(container.Tickets, container.Escalations),
		EscalationRules: handlers.NewEscalationRulesHandler(container.Rules),
		Sweep:           handlers.NewSweepHandler(container.Sweep),
		AuthMiddleware:  authMiddleware,
		Metrics:         container.Metrics,
		CronSecret:      cfg.Sweep.CronSecret,
	})

	go func() {
		if err := server.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = server.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
