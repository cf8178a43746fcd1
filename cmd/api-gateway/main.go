package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/internal/gateway"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/metrics"
	"github.com/eaglebank/accounts/internal/observability"
)

func main() {
	cfg, problems := config.LoadGateway()

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	for _, p := range problems {
		log.Warn("invalid configuration, using default", "field", p.Field, "message", p.Message)
	}

	metrics.Register()
	shutdownTracer := observability.InitTracer(context.Background(), log, config.Config{
		ServiceName:  cfg.ServiceName,
		Env:          cfg.Env,
		BuildVersion: cfg.BuildVersion,
		Tracing:      cfg.Tracing,
	})

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           gateway.NewRouter(cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("api gateway starting", "port", cfg.Port, "accounts", cfg.AccountsURL, "loans", cfg.LoansURL, "cards", cfg.CardsURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start gateway", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("gateway shutdown failed", "error", err)
	}
	if err := shutdownTracer(ctx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}
}
