package config

import (
	"time"

	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/domain/types"
	"github.com/m-mizutani/reelpull/pkg/infra/backend"
	"github.com/urfave/cli/v3"
)

// Backend holds the extraction backend configuration
type Backend struct {
	URL     string        `toml:"url"`
	Timeout time.Duration `toml:"timeout"`
	Token   string        `toml:"token" masq:"secret"`
}

// Flags returns CLI flags for backend configuration
func (c *Backend) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend-url",
			Usage:       "Base URL of the extraction backend",
			Value:       types.DefaultBackendURL,
			Destination: &c.URL,
			Sources:     cli.EnvVars("REELPULL_BACKEND_URL"),
		},
		&cli.DurationFlag{
			Name:        "backend-timeout",
			Usage:       "Timeout of metadata requests to the backend",
			Value:       30 * time.Second,
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("REELPULL_BACKEND_TIMEOUT"),
		},
		&cli.StringFlag{
			Name:        "backend-token",
			Usage:       "Bearer token sent to the backend",
			Destination: &c.Token,
			Sources:     cli.EnvVars("REELPULL_BACKEND_TOKEN"),
		},
	}
}

// Configure builds the backend client
func (c *Backend) Configure() (interfaces.BackendClient, error) {
	opts := []backend.Option{backend.WithTimeout(c.Timeout)}
	if c.Token != "" {
		opts = append(opts, backend.WithToken(c.Token))
	}
	return backend.NewClient(c.URL, opts...)
}
