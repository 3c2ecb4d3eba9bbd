package cli

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/cli/config"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/infra/clipboard"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdDownload(fileCfg *config.File) *cli.Command {
	var (
		backendCfg config.Backend
		batchCfg   config.Batch
		modeCfg    config.Mode
		linkCfg    config.Link
		outputCfg  config.Output
		sentryCfg  config.Sentry
	)

	flags := slices.Concat(
		backendCfg.Flags(),
		batchCfg.Flags(),
		modeCfg.Flags(),
		linkCfg.Flags(),
		outputCfg.Flags(),
		sentryCfg.Flags(),
	)

	return &cli.Command{
		Name:      "download",
		Aliases:   []string{"d"},
		Usage:     "Fetch a link and download every video, one at a time",
		ArgsUsage: "<url>",
		Flags:     flags,
		Before:    fileCfg.Apply,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)
			stdout := c.Root().Writer

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			mode, err := modeCfg.Parse()
			if err != nil {
				return err
			}
			link, err := linkCfg.Resolve(c, clipboard.New())
			if err != nil {
				return err
			}

			x, err := newComponents(&backendCfg, &batchCfg, &outputCfg, &sentryCfg, stdout)
			if err != nil {
				return err
			}
			defer x.Close(ctx)

			fetched, err := x.session.Fetch(ctx, model.FetchRequest{
				Mode:  mode,
				URL:   link,
				Limit: batchCfg.Limit,
			})
			if err != nil {
				return err
			}
			printItems(stdout, fetched)

			progress := newProgressPrinter(stdout)
			result, err := x.session.DownloadAll(ctx, progress.Update)
			if err != nil {
				return err
			}
			printSummary(stdout, result)

			if x.fetcher != nil {
				logger.Info("Waiting for transfers to finish", "in_flight", x.fetcher.Stats().InFlight)
				x.fetcher.Wait()
				printFetchStats(stdout, x.fetcher.Dir(), x.fetcher.Stats())
			}

			if result.Canceled {
				return goerr.New("download canceled", goerr.V("dispatched", result.Dispatched), goerr.V("total", result.Total))
			}
			return nil
		},
	}
}
