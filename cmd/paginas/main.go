package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"

	"paginas/internal/bootstrap"
	"paginas/internal/config"
)

func main() {
	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger := zapr.NewLogger(zapLogger)

	rt, err := bootstrap.NewRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Error(err, "startup failed")
		log.Fatal(err)
	}
	defer rt.Cleanup()

	summary := cfg.Summary()
	logger.Info("startup config",
		"repository_mode", summary.RepositoryMode,
		"limiter_backend", summary.LimiterBackend,
		"failure_policy", summary.FailurePolicy,
		"sweep_schedule", summary.SweepSchedule,
		"trust_proxy", summary.TrustProxy,
		"tls_enabled", summary.TLSEnabled,
		"dev_insecure", summary.DevInsecure,
	)
	logger.Info("paginas listening", "addr", cfg.Addr)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           rt.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	var serveErr error
	if cfg.TLS.Enabled {
		serveErr = server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	} else {
		serveErr = server.ListenAndServe()
	}
	if serveErr != nil {
		logger.Error(serveErr, "http server failed")
		log.Fatal(serveErr)
	}
}
