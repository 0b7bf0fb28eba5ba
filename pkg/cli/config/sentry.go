package config

import (
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	sentryinfra "github.com/m-mizutani/dockrel/pkg/infra/sentry"
	"github.com/urfave/cli/v3"
)

// Sentry holds optional error tracking configuration
type Sentry struct {
	DSN string `masq:"secret"`
	Env string
}

// Flags returns CLI flags for Sentry configuration
func (c *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN, error capture is disabled if empty",
			Destination: &c.DSN,
			Sources:     cli.EnvVars("DOCKREL_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Value:       "production",
			Destination: &c.Env,
			Sources:     cli.EnvVars("DOCKREL_SENTRY_ENV"),
		},
	}
}

// NewCapturer returns nil when Sentry is not configured
func (c *Sentry) NewCapturer() (interfaces.ErrorCapturer, error) {
	if c.DSN == "" {
		return nil, nil
	}
	return sentryinfra.New(c.DSN, c.Env)
}
