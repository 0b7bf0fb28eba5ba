package sentry

import (
	"context"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const flushTimeout = 5 * time.Second

type capturer struct {
	hub *sentry.Hub
}

// New creates an ErrorCapturer reporting to the Sentry project of dsn
func New(dsn, env string) (interfaces.ErrorCapturer, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		Release:     types.Version,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Sentry client", goerr.V("env", env))
	}

	return &capturer{
		hub: sentry.NewHub(client, sentry.NewScope()),
	}, nil
}

// Capture sends err with the event's identity as tags and waits for delivery,
// since the process usually exits right after a failed run
func (c *capturer) Capture(ctx context.Context, event *model.TriggerEvent, err error) {
	var eventID *sentry.EventID
	c.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("repository", event.Repository.FullName())
		scope.SetTag("event_id", event.ID)
		scope.SetTag("sender", event.Sender)
		scope.SetTag("issue", strconv.Itoa(event.IssueNumber))
		eventID = c.hub.CaptureException(err)
	})

	logger := ctxlog.From(ctx)
	if !c.hub.Flush(flushTimeout) {
		logger.Warn("Timed out sending error to Sentry")
		return
	}
	if eventID != nil {
		logger.Info("Sent error to Sentry", "sentry_event_id", *eventID)
	}
}
