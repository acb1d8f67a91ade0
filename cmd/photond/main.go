package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumen-phi/photonic-core/internal/photond"
	"github.com/lumen-phi/photonic-core/internal/store"
	"github.com/lumen-phi/photonic-core/pkg/logger"
)

func main() {
	var httpAddr string
	var logLevel string
	var logFormat string
	var dbPath string
	var callbackURL string
	var callbackSecret string

	flag.StringVar(&httpAddr, "http-addr", ":8080", "HTTP listen address")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flag.StringVar(&dbPath, "db", "", "SQLite archive path (empty disables archiving)")
	flag.StringVar(&callbackURL, "callback-url", "", "default callback URL for terminal runs")
	flag.StringVar(&callbackSecret, "callback-secret", "", "secret sent in the callback header")
	flag.Parse()

	logger.SetDefault(logger.FromFlags(logFormat, logLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	runs := photond.NewRunStore()
	executor := photond.NewRunExecutor(runs).
		WithNotifier(photond.NewNotifier(), callbackURL, callbackSecret)

	if dbPath != "" {
		archive, err := store.Open(dbPath)
		if err != nil {
			logger.Error("failed to open run archive", "path", dbPath, "error", err)
			stop()
			os.Exit(1)
		}
		defer archive.Close()
		executor.WithArchive(archive)
		logger.Info("run archive enabled", "path", dbPath)
	}

	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           photond.NewHTTPServer(runs, executor).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: trace streams stay open for the life of a run.
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", "error", err)
	}
}
