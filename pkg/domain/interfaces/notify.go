package interfaces

import (
	"context"

	"github.com/m-mizutani/dockrel/pkg/domain/model"
)

// Notifier sends a summary of a finished run to an external channel
type Notifier interface {
	Notify(ctx context.Context, event *model.TriggerEvent, result *model.RunResult) error
}

// ErrorCapturer forwards a failed run's error to an error tracker
type ErrorCapturer interface {
	Capture(ctx context.Context, event *model.TriggerEvent, err error)
}
