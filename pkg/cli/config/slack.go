package config

import (
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	slackinfra "github.com/m-mizutani/dockrel/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds optional notification configuration
type Slack struct {
	WebhookURL string `masq:"secret"`
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL, notification is disabled if empty",
			Destination: &c.WebhookURL,
			Sources:     cli.EnvVars("DOCKREL_SLACK_WEBHOOK_URL"),
		},
	}
}

// NewNotifier returns nil when Slack is not configured
func (c *Slack) NewNotifier(logURL string) interfaces.Notifier {
	if c.WebhookURL == "" {
		return nil
	}
	return slackinfra.New(c.WebhookURL, logURL)
}
