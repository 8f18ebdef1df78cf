package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/guardian/internal/events"
	"github.com/alfredjeanlab/guardian/internal/feed"
	"github.com/alfredjeanlab/guardian/internal/logstore"
	"github.com/alfredjeanlab/guardian/internal/metrics"
	"github.com/alfredjeanlab/guardian/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Run the log store with HTTP, SSE and gRPC endpoints",
	GroupID: "monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		stopBroker, err := startBroker(logger)
		if err != nil {
			return err
		}
		defer stopBroker()

		// Subscribe to the agent's topic, unless events only arrive over HTTP.
		var sub events.Subscriber
		if cfg.NATSURL != "" || cfg.EmbeddedNATS {
			s, err := events.NewNATSSubscriber(brokerURL(), linkHandlers(logger, nil)...)
			if err != nil {
				return err
			}
			sub = s
			logger.Info("events enabled", "nats_url", brokerURL(), "topic", cfg.Topic)
		} else {
			sub = &events.NoopSubscriber{}
			logger.Info("events disabled (GUARDIAN_NATS_URL not set); accepting POST /v1/events only")
		}
		defer sub.Close()

		m := metrics.New()
		store := logstore.New(logstore.Options{
			Cap:      cfg.LogCap,
			Policy:   cfg.Classify,
			Recorder: m,
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		listener := feed.New(sub, store, feed.Options{
			Topic:    cfg.Topic,
			Contract: cfg.Contract,
			Logger:   logger,
			Recorder: m,
		})
		if err := listener.Start(ctx); err != nil {
			return err
		}

		srv := server.New(store, server.Options{
			Contract: cfg.Contract,
			Metrics:  m,
			Logger:   logger,
		})
		go srv.Run(ctx)

		grpcServer := srv.NewGRPCServer(cfg.AuthToken)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			listener.Stop()
			store.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
			// SSE streams end when ctx is cancelled.
			BaseContext: func(net.Listener) context.Context { return ctx },
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("guardian server started",
			"cap", store.Cap(),
			"contract", cfg.Contract,
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		// Release the subscription first so nothing is ingested while the
		// surfaces drain.
		listener.Stop()
		logger.Info("feed stopped")

		srv.Shutdown()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		store.Close()
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		logger.Info("shutdown complete")
		return nil
	},
}
