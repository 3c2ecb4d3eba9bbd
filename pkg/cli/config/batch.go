package config

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Batch holds the pacing and selection settings of a download run
type Batch struct {
	Delay   time.Duration
	Limit   int
	Quality string
}

// Flags returns CLI flags for batch configuration
func (c *Batch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "delay",
			Usage:       "Pause between two triggered downloads",
			Value:       types.DefaultDelay,
			Destination: &c.Delay,
			Sources:     cli.EnvVars("REELPULL_DELAY"),
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Keep only the first N videos (0 keeps all)",
			Destination: &c.Limit,
			Sources:     cli.EnvVars("REELPULL_LIMIT"),
		},
		&cli.StringFlag{
			Name:        "quality",
			Usage:       "Quality selector passed to the backend",
			Value:       types.DefaultQuality,
			Destination: &c.Quality,
			Sources:     cli.EnvVars("REELPULL_QUALITY"),
		},
	}
}

// Validate rejects settings the dispatcher can not run with
func (c *Batch) Validate() error {
	if c.Limit < 0 {
		return goerr.Wrap(model.ErrInvalidInput, "limit must not be negative", goerr.V("limit", c.Limit))
	}
	if c.Delay < 0 {
		return goerr.Wrap(model.ErrInvalidInput, "delay must not be negative", goerr.V("delay", c.Delay))
	}
	return nil
}

// Dispatcher builds the paced dispatcher
func (c *Batch) Dispatcher() *usecase.Dispatcher {
	return usecase.NewDispatcher(usecase.WithDelay(c.Delay))
}

// SessionOptions returns the session options derived from the batch settings
func (c *Batch) SessionOptions() []usecase.SessionOption {
	return []usecase.SessionOption{
		usecase.WithDispatcher(c.Dispatcher()),
		usecase.WithQuality(c.Quality),
	}
}

// Mode holds the fetch mode selected on the command line
type Mode struct {
	Value string
}

// Flags returns CLI flags for the fetch mode
func (c *Mode) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "mode",
			Aliases:     []string{"m"},
			Usage:       "How the link is resolved (profile, info, youtube, playlist, profile-all)",
			Value:       string(model.FetchModeProfile),
			Destination: &c.Value,
			Sources:     cli.EnvVars("REELPULL_MODE"),
		},
	}
}

// Parse returns the selected mode
func (c *Mode) Parse() (model.FetchMode, error) {
	return model.ParseFetchMode(c.Value)
}

// Selection holds the video IDs picked for an archive
type Selection struct {
	Values []string
}

// Flags returns CLI flags for the archive selection
func (c *Selection) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:        "select",
			Aliases:     []string{"s"},
			Usage:       "Video IDs to put in the archive, e.g. 1,3 (default: every fetched video)",
			Destination: &c.Values,
		},
	}
}

// IDs returns the selected IDs without blanks. An empty result selects every video.
func (c *Selection) IDs() []model.ItemID {
	ids := make([]model.ItemID, 0, len(c.Values))
	for _, v := range c.Values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ids = append(ids, model.ItemID(part))
			}
		}
	}
	return ids
}
