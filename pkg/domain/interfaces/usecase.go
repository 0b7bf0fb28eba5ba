package interfaces

import (
	"context"

	"github.com/m-mizutani/dockrel/pkg/domain/model"
)

// ReleaseUseCase runs the comment-to-release pipeline for one trigger event
type ReleaseUseCase interface {
	// Run returns a skipped result with nil error when the event does not ask
	// for a release, and a failed result with the cause otherwise.
	Run(ctx context.Context, event *model.TriggerEvent) (*model.RunResult, error)
}

// SourceUseCase fetches repository snapshots
type SourceUseCase interface {
	// FetchSource downloads and extracts the repository at ref
	FetchSource(ctx context.Context, repo model.Repository, ref string) (*model.SourceTree, error)
}

// WebhookUseCase accepts events delivered to the HTTP server
type WebhookUseCase interface {
	// ProcessEvent queues the event for a release run and reports whether it
	// was queued. Events that do not ask for a release are dropped.
	ProcessEvent(ctx context.Context, event *model.TriggerEvent) (bool, error)
}
