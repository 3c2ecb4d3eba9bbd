package config

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/reelpull/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Server holds the local API listener settings
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Address of the local API",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("REELPULL_ADDR"),
		},
		&cli.DurationFlag{
			Name:        "shutdown-timeout",
			Usage:       "How long open requests may take to finish on shutdown",
			Value:       10 * time.Second,
			Destination: &c.ShutdownTimeout,
			Sources:     cli.EnvVars("REELPULL_SHUTDOWN_TIMEOUT"),
		},
	}
}

// Validate rejects a shutdown timeout that would close connections immediately
func (c *Server) Validate() error {
	if c.ShutdownTimeout <= 0 {
		return goerr.Wrap(model.ErrInvalidInput, "shutdown timeout must be positive",
			goerr.V("shutdown_timeout", c.ShutdownTimeout))
	}
	return nil
}
