package slack

import (
	"context"
	"fmt"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

const (
	colorSucceeded = "good"
	colorFailed    = "danger"
)

type notifier struct {
	webhookURL string
	logURL     string
}

// New creates a notifier posting run results to a Slack incoming webhook.
// logURL, when set, is linked from every message.
func New(webhookURL, logURL string) interfaces.Notifier {
	return &notifier{
		webhookURL: webhookURL,
		logURL:     logURL,
	}
}

// Notify posts a summary of result. Skipped runs are not posted.
func (n *notifier) Notify(ctx context.Context, event *model.TriggerEvent, result *model.RunResult) error {
	if result == nil || result.State == model.RunStateSkipped {
		return nil
	}

	msg := buildMessage(event, result, n.logURL)
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post Slack message",
			goerr.V("repo", event.Repository.FullName()),
			goerr.V("state", result.State),
		)
	}

	ctxlog.From(ctx).Debug("Posted Slack notification", "state", result.State)
	return nil
}

func buildMessage(event *model.TriggerEvent, result *model.RunResult, logURL string) *slack.WebhookMessage {
	attachment := slack.Attachment{
		Fields: []slack.AttachmentField{
			{Title: "Repository", Value: event.Repository.FullName(), Short: true},
			{Title: "Requested by", Value: event.Sender, Short: true},
		},
		TitleLink: logURL,
	}

	if result.Version != "" {
		attachment.Fields = append(attachment.Fields, slack.AttachmentField{
			Title: "Version", Value: "v" + result.Version, Short: true,
		})
	}

	switch result.State {
	case model.RunStateSucceeded:
		attachment.Color = colorSucceeded
		attachment.Title = fmt.Sprintf("Released %s v%s", event.Repository.FullName(), result.Version)
	default:
		attachment.Color = colorFailed
		attachment.Title = fmt.Sprintf("Release of %s failed", event.Repository.FullName())
		attachment.Text = result.Reason
	}

	return &slack.WebhookMessage{
		Text:        attachment.Title,
		Attachments: []slack.Attachment{attachment},
	}
}
