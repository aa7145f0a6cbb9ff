package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"scholar-rag/internal/adapter/httpapi"
	"scholar-rag/internal/di"
	"scholar-rag/internal/infra"
	"scholar-rag/internal/infra/config"
	"scholar-rag/internal/infra/logger"
)

func main() {
	cfg := config.Load()

	log := logger.NewWithOTel(cfg.OTelEnabled)
	slog.SetDefault(log)

	ctx := context.Background()
	dbPool, err := infra.NewPostgresDB(ctx, infra.DSN(cfg.DB))
	if err != nil {
		log.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	components, err := di.NewApplicationComponents(cfg, dbPool, log)
	if err != nil {
		log.Error("failed to wire components", "error", err)
		os.Exit(1)
	}

	// Build the lexical index before accepting traffic; a corpus-less start
	// is a deployment error.
	if err := components.Rebuilder.Rebuild(ctx); err != nil {
		log.Error("failed to build lexical index", "error", err)
		os.Exit(1)
	}
	components.Rebuilder.Start()
	defer components.Rebuilder.Stop()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				log.InfoContext(ctx, "request_completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				log.ErrorContext(ctx, "request_failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())

	handler := httpapi.NewHandler(
		components.RetrieveUsecase,
		components.AnswerUsecase,
		components.Repo,
		components.Rebuilder,
		log,
	)
	handler.Register(e)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}
