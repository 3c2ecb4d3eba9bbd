package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/infra/clipboard"
	"github.com/urfave/cli/v3"
)

// Link holds how the link to work on is obtained
type Link struct {
	FromClipboard bool
}

// Flags returns CLI flags for link input
func (c *Link) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:        "from-clipboard",
			Usage:       "Read the link from the clipboard when no argument is given",
			Destination: &c.FromClipboard,
			Sources:     cli.EnvVars("REELPULL_FROM_CLIPBOARD"),
		},
	}
}

// Resolve returns the first argument of cmd, or the clipboard content when allowed
func (c *Link) Resolve(cmd *cli.Command, reader *clipboard.Reader) (string, error) {
	if arg := cmd.Args().First(); arg != "" {
		return arg, nil
	}
	if !c.FromClipboard {
		return "", goerr.Wrap(model.ErrInvalidInput, "link argument is required (or use --from-clipboard)")
	}
	return reader.ReadURL()
}
