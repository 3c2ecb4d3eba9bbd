package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/cli/config"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/infra/clipboard"
	"github.com/m-mizutani/reelpull/pkg/infra/fetcher"
	"github.com/m-mizutani/reelpull/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdZip(fileCfg *config.File) *cli.Command {
	var (
		backendCfg config.Backend
		batchCfg   config.Batch
		modeCfg    config.Mode
		linkCfg    config.Link
		outputCfg  config.Output
		sentryCfg  config.Sentry
		selectCfg  config.Selection
	)

	flags := slices.Concat(
		backendCfg.Flags(),
		batchCfg.Flags(),
		modeCfg.Flags(),
		linkCfg.Flags(),
		outputCfg.Flags(),
		sentryCfg.Flags(),
		selectCfg.Flags(),
	)

	return &cli.Command{
		Name:      "zip",
		Aliases:   []string{"z"},
		Usage:     "Fetch a link and save its videos, or the selected ones, as one ZIP archive",
		ArgsUsage: "<url>",
		Flags:     flags,
		Before:    fileCfg.Apply,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)
			stdout := c.Root().Writer

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

			if outputCfg.DryRun {
				return nil
			}

			name := fetcher.SanitizeFilename(fetched.Profile + ".zip")
			path := filepath.Join(outputCfg.Dir, name)
			file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err != nil {
				return goerr.Wrap(err, "failed to create archive", goerr.V("path", path))
			}

			ids := selectCfg.IDs()
			logger.Info("Requesting archive", "videos", len(fetched.Items), "selected", len(ids), "path", path)
			n, err := x.session.Zip(ctx, file, ids...)
			if closeErr := file.Close(); closeErr != nil {
				err = errors.Join(err, closeErr)
			}
			if err != nil {
				if rmErr := os.Remove(path); rmErr != nil {
					logger.Warn("Failed to remove partial archive", "path", path, "error", rmErr)
				}
				reportErr := goerr.Wrap(err, "failed to save archive", goerr.V("path", path))
				x.reporter.Report(ctx, reportErr)
				return reportErr
			}

			_, _ = successColor.Fprintf(stdout, "Saved %s (%s)\n", path, humanBytes(n))
			return nil
		},
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
