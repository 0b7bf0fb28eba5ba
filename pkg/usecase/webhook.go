package usecase

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// Dispatcher runs handlers in the background
type Dispatcher interface {
	Dispatch(ctx context.Context, handler func(ctx context.Context) error) error
}

type webhookUseCase struct {
	releaseUC  interfaces.ReleaseUseCase
	dispatcher Dispatcher
	trigger    string
}

// NewWebhook creates a new instance of WebhookUseCase. Accepted events run
// through releaseUC via dispatcher, so one dispatcher worker means one
// release at a time.
func NewWebhook(releaseUC interfaces.ReleaseUseCase, dispatcher Dispatcher, trigger string) interfaces.WebhookUseCase {
	return &webhookUseCase{
		releaseUC:  releaseUC,
		dispatcher: dispatcher,
		trigger:    trigger,
	}
}

// ProcessEvent processes a webhook event
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.TriggerEvent) (bool, error) {
	logger := ctxlog.From(ctx)

	logger.Info("Processing webhook event",
		"id", event.ID,
		"type", event.Type,
		"action", event.Action,
		"repository", event.Repository.FullName(),
		"sender", event.Sender,
		"supported", event.IsSupportedEvent(),
	)

	if !event.IsSupportedEvent() {
		logger.Info("Unsupported event received",
			"type", event.Type,
			"action", event.Action,
		)
		return false, nil
	}

	if !model.HasTrigger(uc.trigger, event.CommentBody) {
		logger.Debug("Comment is not a release trigger", "id", event.ID)
		return false, nil
	}

	err := uc.dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		ctx = ctxlog.With(ctx, ctxlog.From(ctx).With("delivery_id", event.ID))
		result, err := uc.releaseUC.Run(ctx, event)
		if err != nil {
			return err
		}
		ctxlog.From(ctx).Info("Run finished", "state", result.State, "version", result.Version)
		return nil
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to queue release run", goerr.V("id", event.ID))
	}

	return true, nil
}
