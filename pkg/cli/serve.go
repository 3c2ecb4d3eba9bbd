package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/cli/config"
	controller "github.com/m-mizutani/reelpull/pkg/controller/http"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe(fileCfg *config.File) *cli.Command {
	var (
		serverCfg  config.Server
		backendCfg config.Backend
		batchCfg   config.Batch
		outputCfg  config.Output
		sentryCfg  config.Sentry
	)

	flags := slices.Concat(
		serverCfg.Flags(),
		backendCfg.Flags(),
		batchCfg.Flags(),
		outputCfg.Flags(),
		sentryCfg.Flags(),
	)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the local HTTP API",
		Flags:   flags,
		Before:  fileCfg.Apply,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			if err := serverCfg.Validate(); err != nil {
				return err
			}

			logger.Info("Starting reelpull server",
				slog.String("addr", serverCfg.Addr),
				slog.Duration("shutdown_timeout", serverCfg.ShutdownTimeout),
				slog.Any("backend", backendCfg),
				slog.Duration("delay", batchCfg.Delay),
				slog.String("output", outputCfg.Dir),
			)

			x, err := newComponents(&backendCfg, &batchCfg, &outputCfg, &sentryCfg, c.Root().Writer)
			if err != nil {
				return err
			}
			defer x.Close(ctx)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				x.session,
				controller.WithAddr(serverCfg.Addr),
				controller.WithErrorReporter(x.reporter),
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
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			// A running batch stops before its next video
			if x.session.Cancel() {
				logger.Info("Canceled running download")
			}
			server.Wait()

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
