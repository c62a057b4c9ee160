package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trustid/internal/platform/httpserver"
	httptransport "trustid/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the portal HTTP surface",
	Long: `Serve the login, dashboard and admin routes plus the verification
progress stream. Configuration comes from the environment (see .env).`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default TRUSTID_ADDR)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	handler := httptransport.New(a.auth, a.engine,
		httptransport.WithAuditReader(a.audit),
		httptransport.WithGatherer(a.registry),
		httptransport.WithLogger(log),
	)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting trustid portal",
			zap.String("addr", cfg.Addr),
			zap.String("api_url", cfg.APIBaseURL),
			zap.String("session_backend", cfg.Session.Backend),
			zap.Bool("kafka_audit", a.kafka != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		log.Info("shutting down portal")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		// Live event streams end once the engine stops, which lets Shutdown
		// finish instead of waiting on them.
		a.engine.Stop()
		return errors.Join(srv.Shutdown(shutdownCtx), a.Close(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("portal exited")
	return nil
}
