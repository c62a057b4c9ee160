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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trustid/internal/platform/config"
	"trustid/internal/platform/httpserver"
	"trustid/internal/platform/logger"
	"trustid/internal/verifier"
)

// main runs the stand-in verification service the portal logs in against
// during local development.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	cfg := config.FromEnv()
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Verifier.GoogleClientID == "" {
		log.Warn("GOOGLE_CLIENT_ID unset, /auth/google will answer 500")
	}

	srv := httpserver.New(cfg.Verifier.Addr, verifier.New(cfg.Verifier, verifier.WithLogger(log)).Router())

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting mock verifier", zap.String("addr", cfg.Verifier.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("mock verifier stopped", zap.Error(err))
		os.Exit(1)
	}
	log.Info("mock verifier exited")
}
