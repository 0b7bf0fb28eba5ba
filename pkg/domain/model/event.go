package model

import "time"

// EventType represents the kind of GitHub event that triggered a run
type EventType string

const (
	EventTypeIssueComment EventType = "issue_comment"
	EventTypeUnknown      EventType = "unknown"
)

// TriggerEvent is the request-scoped input of a release run. It is built once
// from the event payload and never modified afterwards.
type TriggerEvent struct {
	ID          string    // Delivery ID (webhook) or run ID (Actions)
	Type        EventType // Event kind
	Action      string    // Event action (created, edited, deleted)
	Repository  Repository
	Sender      string // Login of the comment author
	IssueNumber int
	CommentID   int64
	CommentBody string
	ReceivedAt  time.Time
}

// IsSupportedEvent checks if the event can start a release. Only newly
// created issue comments qualify; edits and deletions are ignored so an
// edited trigger comment does not release twice.
func (e *TriggerEvent) IsSupportedEvent() bool {
	if e.Type != EventTypeIssueComment {
		return false
	}
	return e.Action == "" || e.Action == "created"
}
