package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// BumpKind selects which version component is incremented
type BumpKind string

const (
	BumpMajor BumpKind = "major"
	BumpMinor BumpKind = "minor"
	BumpPatch BumpKind = "patch"
)

// ParseBumpKind parses a bump word case-insensitively
func ParseBumpKind(s string) (BumpKind, error) {
	switch kind := BumpKind(strings.ToLower(strings.TrimSpace(s))); kind {
	case BumpMajor, BumpMinor, BumpPatch:
		return kind, nil
	default:
		return "", goerr.New("unknown version bump",
			goerr.V("bump", s),
			goerr.T(types.ErrTagNoBumpSpecified),
		)
	}
}

// ReleaseRequest is what a trigger comment asks for
type ReleaseRequest struct {
	Bump      BumpKind
	Changelog string
}

// HasTrigger reports whether the comment mentions the trigger token at all.
// A comment without it is not addressed to dockrel.
func HasTrigger(trigger, body string) bool {
	return trigger != "" && strings.Contains(body, trigger)
}

// ParseReleaseRequest extracts the bump kind and changelog that follow the
// trigger token. The changelog is the rest of the trigger line.
func ParseReleaseRequest(trigger, body string) (*ReleaseRequest, error) {
	pattern := regexp.MustCompile(regexp.QuoteMeta(trigger) + `\s+(?i:(major|minor|patch))\b(.*)`)

	m := pattern.FindStringSubmatch(body)
	if m == nil {
		return nil, goerr.New("comment does not contain a valid version bump",
			goerr.V("trigger", trigger),
			goerr.T(types.ErrTagNoBumpSpecified),
		)
	}

	bump, err := ParseBumpKind(m[1])
	if err != nil {
		return nil, err
	}

	return &ReleaseRequest{
		Bump:      bump,
		Changelog: strings.TrimSpace(m[2]),
	}, nil
}
