package config

import (
	"context"
	"os"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// File is an optional TOML file providing values for flags that were not
// given on the command line or through the environment.
//
//	[backend]
//	url = "https://backend.example"
//	timeout = "30s"
//
//	[batch]
//	delay = "1s"
//	limit = 10
//
//	[output]
//	dir = "~/Videos"
type File struct {
	Path string
}

type fileContent struct {
	Backend struct {
		URL     string `toml:"url"`
		Timeout string `toml:"timeout"`
		Token   string `toml:"token"`
	} `toml:"backend"`
	Batch struct {
		Delay   string `toml:"delay"`
		Limit   *int   `toml:"limit"`
		Quality string `toml:"quality"`
		Mode    string `toml:"mode"`
	} `toml:"batch"`
	Output struct {
		Dir           string `toml:"dir"`
		DryRun        *bool  `toml:"dry_run"`
		FromClipboard *bool  `toml:"from_clipboard"`
	} `toml:"output"`
	Server struct {
		Addr            string `toml:"addr"`
		ShutdownTimeout string `toml:"shutdown_timeout"`
	} `toml:"server"`
	Sentry struct {
		DSN string `toml:"dsn"`
		Env string `toml:"env"`
	} `toml:"sentry"`
}

// Flags returns CLI flags for the config file
func (c *File) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to a TOML config file",
			Destination: &c.Path,
			Sources:     cli.EnvVars("REELPULL_CONFIG"),
		},
	}
}

// Load reads the file and returns its values keyed by flag name.
// An empty Path yields no values.
func (c *File) Load() (map[string]string, error) {
	if c.Path == "" {
		return map[string]string{}, nil
	}

	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", c.Path))
	}

	var content fileContent
	if err := toml.Unmarshal(raw, &content); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", c.Path))
	}

	values := map[string]string{}
	set := func(name, value string) {
		if value != "" {
			values[name] = value
		}
	}

	set("backend-url", content.Backend.URL)
	set("backend-timeout", content.Backend.Timeout)
	set("backend-token", content.Backend.Token)
	set("delay", content.Batch.Delay)
	set("quality", content.Batch.Quality)
	set("mode", content.Batch.Mode)
	if content.Batch.Limit != nil {
		set("limit", strconv.Itoa(*content.Batch.Limit))
	}
	set("output", content.Output.Dir)
	if content.Output.DryRun != nil {
		set("dry-run", strconv.FormatBool(*content.Output.DryRun))
	}
	if content.Output.FromClipboard != nil {
		set("from-clipboard", strconv.FormatBool(*content.Output.FromClipboard))
	}
	set("addr", content.Server.Addr)
	set("shutdown-timeout", content.Server.ShutdownTimeout)
	set("sentry-dsn", content.Sentry.DSN)
	set("sentry-env", content.Sentry.Env)

	return values, nil
}

// Apply is a Before hook for subcommands: it sets every flag of cmd that
// was not set explicitly and has a value in the file.
func (c *File) Apply(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	values, err := c.Load()
	if err != nil {
		return ctx, err
	}

	for _, flag := range cmd.Flags {
		names := flag.Names()
		if len(names) == 0 {
			continue
		}
		name := names[0]
		value, ok := values[name]
		if !ok || cmd.IsSet(name) {
			continue
		}
		if err := cmd.Set(name, value); err != nil {
			return ctx, goerr.Wrap(err, "invalid value in config file",
				goerr.V("flag", name),
				goerr.V("path", c.Path),
			)
		}
	}

	return ctx, nil
}
