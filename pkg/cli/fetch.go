package cli

import (
	"context"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/cli/config"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/infra/clipboard"
	"github.com/m-mizutani/reelpull/pkg/infra/fetcher"
	"github.com/m-mizutani/reelpull/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdFetch(fileCfg *config.File) *cli.Command {
	var (
		backendCfg config.Backend
		batchCfg   config.Batch
		modeCfg    config.Mode
		linkCfg    config.Link
	)

	flags := slices.Concat(backendCfg.Flags(), batchCfg.Flags(), modeCfg.Flags(), linkCfg.Flags())

	return &cli.Command{
		Name:      "fetch",
		Aliases:   []string{"f"},
		Usage:     "List the videos behind a link",
		ArgsUsage: "<url>",
		Flags:     flags,
		Before:    fileCfg.Apply,
		Action: func(ctx context.Context, c *cli.Command) error {
			stdout := c.Root().Writer

			mode, err := modeCfg.Parse()
			if err != nil {
				return err
			}
			if err := batchCfg.Validate(); err != nil {
				return err
			}
			link, err := linkCfg.Resolve(c, clipboard.New())
			if err != nil {
				return err
			}

			client, err := backendCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure backend client")
			}

			session := usecase.NewSession(client, fetcher.NewPrinter(stdout))
			result, err := session.Fetch(ctx, model.FetchRequest{
				Mode:  mode,
				URL:   link,
				Limit: batchCfg.Limit,
			})
			if err != nil {
				return err
			}

			printItems(stdout, result)
			return nil
		},
	}
}
