package github

import (
	"context"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// EventProcessor processes GitHub events
type EventProcessor struct {
	releaseUC  interfaces.ReleaseUseCase
	repository *model.Repository
}

// ProcessorOption is a functional option for EventProcessor
type ProcessorOption func(*EventProcessor)

// WithRepository makes every event act on repo regardless of the payload
func WithRepository(repo model.Repository) ProcessorOption {
	return func(p *EventProcessor) {
		p.repository = &repo
	}
}

// NewEventProcessor creates a new GitHub event processor
func NewEventProcessor(releaseUC interfaces.ReleaseUseCase, opts ...ProcessorOption) *EventProcessor {
	p := &EventProcessor{
		releaseUC: releaseUC,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessEvent converts a parsed payload and runs the release pipeline on it
func (p *EventProcessor) ProcessEvent(ctx context.Context, id, eventType string, payload any) (*model.RunResult, error) {
	event, err := NewTriggerEvent(id, eventType, payload)
	if err != nil {
		return nil, err
	}
	if p.repository != nil && event.Type == model.EventTypeIssueComment {
		event.Repository = *p.repository
	}

	ctxlog.From(ctx).Info("Processing event",
		"id", event.ID,
		"type", event.Type,
		"action", event.Action,
		"repository", event.Repository.FullName(),
	)

	return p.releaseUC.Run(ctx, event)
}

// NewTriggerEvent builds a TriggerEvent from a payload parsed by
// github.ParseWebHook. Payloads of other event kinds become events of type
// unknown, which the pipeline skips.
func NewTriggerEvent(id, eventType string, payload any) (*model.TriggerEvent, error) {
	event := &model.TriggerEvent{
		ID:         id,
		Type:       model.EventTypeUnknown,
		ReceivedAt: time.Now(),
	}

	e, ok := payload.(*github.IssueCommentEvent)
	if !ok || eventType != string(model.EventTypeIssueComment) {
		return event, nil
	}

	// Use Get*() helper methods for concise and nil-safe field access
	owner := e.GetRepo().GetOwner().GetLogin()
	name := e.GetRepo().GetName()
	if owner == "" || name == "" {
		return nil, goerr.New("missing repository information in issue_comment event",
			goerr.V("owner", owner),
			goerr.V("name", name),
		)
	}

	event.Type = model.EventTypeIssueComment
	event.Action = e.GetAction()
	event.Repository = model.Repository{Owner: owner, Name: name}
	event.Sender = e.GetComment().GetUser().GetLogin()
	if event.Sender == "" {
		event.Sender = e.GetSender().GetLogin()
	}
	event.IssueNumber = e.GetIssue().GetNumber()
	event.CommentID = e.GetComment().GetID()
	event.CommentBody = e.GetComment().GetBody()

	return event, nil
}
