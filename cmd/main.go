package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	grpcapi "voice-order-service/internal/api/grpc"
	"voice-order-service/internal/app"
	"voice-order-service/internal/config"
	httpapi "voice-order-service/internal/http"
	"voice-order-service/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Voice order service exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application),
		ReadHeaderTimeout: 10 * time.Second,
	}
	opsServer := observability.NewServer(":"+cfg.Service.MetricsPort, nil, application.Ready)
	grpcServer := grpcapi.NewServer(":"+cfg.Service.GRPCPort, grpcapi.Deps{
		Suppressor: application.Suppressor,
		Extractor:  application.Extractor,
		Metrics:    application.Metrics,
	})

	if err := application.Start(); err != nil {
		return err
	}
	grpcServer.SetServing(true)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("Starting HTTP API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(opsServer.ListenAndServe)
	g.Go(grpcServer.ListenAndServe)

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		grpcServer.GracefulStop()
		errs := []error{
			httpServer.Shutdown(shutdownCtx),
			application.Shutdown(),
			opsServer.Shutdown(shutdownCtx),
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}
