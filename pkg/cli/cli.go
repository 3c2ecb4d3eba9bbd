package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/reelpull/pkg/cli/config"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout)
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	var (
		loggerCfg config.Logger
		fileCfg   config.File
		logger    *slog.Logger
	)

	flags := append(loggerCfg.Flags(), fileCfg.Flags()...)

	app := &cli.Command{
		Name:    types.ServiceName,
		Usage:   "Fetch TikTok and YouTube links and download their videos one at a time",
		Version: types.Version,
		Flags:   flags,
		Writer:  stdout,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			logger, err = loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			slog.SetDefault(logger)
			ctx = logging.With(ctx, logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdFetch(&fileCfg),
			cmdDownload(&fileCfg),
			cmdGet(&fileCfg),
			cmdZip(&fileCfg),
			cmdServe(&fileCfg),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		return err
	}

	return nil
}
