package config

import (
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/infra/fetcher"
	"github.com/urfave/cli/v3"
)

// Output holds where triggered downloads end up
type Output struct {
	Dir    string
	DryRun bool
}

// Flags returns CLI flags for output configuration
func (c *Output) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "output",
			Aliases:     []string{"o"},
			Usage:       "Directory downloads are saved to",
			Value:       ".",
			Destination: &c.Dir,
			Sources:     cli.EnvVars("REELPULL_OUTPUT"),
		},
		&cli.BoolFlag{
			Name:        "dry-run",
			Usage:       "Print download links instead of fetching them",
			Destination: &c.DryRun,
			Sources:     cli.EnvVars("REELPULL_DRY_RUN"),
		},
	}
}

// Initiator builds the component that starts downloads. The returned close
// function waits for transfers in flight and releases the output directory.
func (c *Output) Initiator(stdout io.Writer, reporter interfaces.ErrorReporter) (interfaces.Initiator, func() error, error) {
	if c.DryRun {
		return fetcher.NewPrinter(stdout), func() error { return nil }, nil
	}

	f, err := fetcher.New(c.Dir, fetcher.WithErrorReporter(reporter))
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to prepare output directory", goerr.V("dir", c.Dir))
	}
	return f, f.Close, nil
}
