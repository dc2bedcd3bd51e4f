package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"nexamon/internal/config"
	"nexamon/internal/controllers"
	"nexamon/internal/logging"
	"nexamon/internal/middleware"
	"nexamon/internal/routes"
	"nexamon/internal/services"
	"nexamon/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.StoreEngine, cfg.DataDir, store.Options{
		RetentionLimit: cfg.RetentionLimit,
		RetentionDays:  cfg.RetentionDays,
	})
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer st.Close()
	if fs, ok := st.(*store.FileStore); ok {
		fs.WithLogger(logger.Named("store"))
	}

	sampler := services.NewSystemSampler(cfg.GatewayURL, cfg.GatewayTimeout, logger.Named("sampler"))
	metrics := services.NewMetricsService(sampler, st, logger.Named("metrics"))
	tracker := services.NewTrafficTracker()
	auth := services.NewAuthService(cfg.JWTSecret, cfg.TokenExpiry)

	hub := services.NewHub(metrics, cfg.BroadcastInterval, logger.Named("hub"))
	go hub.Run()
	defer hub.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Traffic(tracker))
	r.Use(middleware.Limit(middleware.NewRateLimiter(rate.Limit(100), 200)))

	mc := controllers.NewMetricsController(metrics, logger.Named("api"))
	tc := controllers.NewTrafficController(tracker)
	wc := controllers.NewWebSocketController(hub, metrics, auth, logger.Named("ws"))

	routes.RegisterMetricRoutes(r, mc, tc)
	routes.RegisterAuthRoutes(r, wc, middleware.NewRateLimiter(rate.Every(12*time.Second), 10))

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening",
		zap.String("addr", cfg.ListenAddr),
		zap.String("gateway", cfg.GatewayURL),
		zap.String("store", cfg.StoreEngine))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
