package config

import (
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr          string
	WebhookSecret string `masq:"secret"`
	LogURL        string
	QueueSize     int
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("DOCKREL_ADDR"),
		},
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret",
			Required:    true,
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("DOCKREL_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.StringFlag{
			Name:        "log-url",
			Usage:       "URL where server logs can be read, linked from failure comments",
			Required:    true,
			Destination: &c.LogURL,
			Sources:     cli.EnvVars("DOCKREL_LOG_URL"),
		},
		&cli.IntFlag{
			Name:        "queue-size",
			Usage:       "Maximum number of pending release runs",
			Value:       16,
			Destination: &c.QueueSize,
			Sources:     cli.EnvVars("DOCKREL_QUEUE_SIZE"),
		},
	}
}

// Validate checks the server settings
func (c *Server) Validate() error {
	if c.QueueSize < 1 {
		return goerr.New("queue size must be positive",
			goerr.V("queue_size", c.QueueSize),
			goerr.T(types.ErrTagInvalidConfig),
		)
	}
	return nil
}
