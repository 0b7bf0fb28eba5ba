package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/cli/config"
	controller "github.com/m-mizutani/dockrel/pkg/controller/http"
	"github.com/m-mizutani/dockrel/pkg/usecase"
	"github.com/m-mizutani/dockrel/pkg/utils/async"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		pipeline  pipelineConfig
	)

	flags := append(serverCfg.Flags(), pipeline.flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server receiving issue comment webhooks",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := serverCfg.Validate(); err != nil {
				return err
			}

			logger.Info("Starting dockrel server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("github", pipeline.github),
				slog.Any("registry", pipeline.registry),
			)

			// Create use cases
			releaseUC, err := pipeline.newReleaseUseCase(ctx, os.Stdout, "", serverCfg.LogURL)
			if err != nil {
				return err
			}

			// Runs are serialized through a single worker
			queue := async.NewQueue(serverCfg.QueueSize)
			webhookUC := usecase.NewWebhook(releaseUC, queue, pipeline.release.Trigger)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				webhookUC,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(serverCfg.WebhookSecret),
				controller.WithQueue(queue),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			// New webhooks are refused while queued and running releases finish
			drained := make(chan error, 1)
			go func() {
				drained <- queue.Close(shutdownCtx)
			}()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}
			if err := <-drained; err != nil {
				return goerr.Wrap(err, "failed to drain release queue")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
