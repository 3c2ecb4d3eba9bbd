package cli

import (
	"context"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/cli/config"
	"github.com/m-mizutani/reelpull/pkg/infra/clipboard"
	"github.com/urfave/cli/v3"
)

func cmdGet(fileCfg *config.File) *cli.Command {
	var (
		backendCfg config.Backend
		batchCfg   config.Batch
		linkCfg    config.Link
		outputCfg  config.Output
		sentryCfg  config.Sentry
	)

	flags := slices.Concat(
		backendCfg.Flags(),
		batchCfg.Flags(),
		linkCfg.Flags(),
		outputCfg.Flags(),
		sentryCfg.Flags(),
	)

	return &cli.Command{
		Name:      "get",
		Aliases:   []string{"g"},
		Usage:     "Download a single video link without listing it first",
		ArgsUsage: "<url>",
		Flags:     flags,
		Before:    fileCfg.Apply,
		Action: func(ctx context.Context, c *cli.Command) error {
			stdout := c.Root().Writer

			link, err := linkCfg.Resolve(c, clipboard.New())
			if err != nil {
				return err
			}

			x, err := newComponents(&backendCfg, &batchCfg, &outputCfg, &sentryCfg, stdout)
			if err != nil {
				return err
			}
			defer x.Close(ctx)

			if err := x.session.DownloadSingle(ctx, link); err != nil {
				return err
			}

			if x.fetcher != nil {
				x.fetcher.Wait()
				stats := x.fetcher.Stats()
				printFetchStats(stdout, x.fetcher.Dir(), stats)
				if stats.Failed > 0 {
					return goerr.New("download failed", goerr.V("url", link))
				}
			}
			return nil
		},
	}
}
