package config

import (
	"github.com/m-mizutani/reelpull/pkg/domain/interfaces"
	"github.com/m-mizutani/reelpull/pkg/infra/reporter"
	"github.com/urfave/cli/v3"
)

// Sentry holds error reporting configuration
type Sentry struct {
	DSN string `masq:"secret"`
	Env string
}

// Flags returns CLI flags for Sentry configuration
func (c *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN; failures are only logged when empty",
			Destination: &c.DSN,
			Sources:     cli.EnvVars("REELPULL_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Value:       "local",
			Destination: &c.Env,
			Sources:     cli.EnvVars("REELPULL_SENTRY_ENV"),
		},
	}
}

// Configure builds the error reporter and its flush function
func (c *Sentry) Configure() (interfaces.ErrorReporter, func(), error) {
	return reporter.New(c.DSN, c.Env)
}
