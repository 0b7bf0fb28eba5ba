package types

import "github.com/m-mizutani/goerr/v2"

// Error kinds raised by the release pipeline. Every kind marks a failed run;
// callers tell them apart with goerr.HasTag.
var (
	ErrTagNoBumpSpecified      = goerr.NewTag("no_bump_specified")
	ErrTagUnauthorized         = goerr.NewTag("unauthorized")
	ErrTagDownloadFailed       = goerr.NewTag("download_failed")
	ErrTagManifestFormat       = goerr.NewTag("manifest_format_error")
	ErrTagReleaseAlreadyExists = goerr.NewTag("release_already_exists")
	ErrTagBuildFailed          = goerr.NewTag("build_failed")
	ErrTagPushFailed           = goerr.NewTag("push_failed")
	ErrTagConflictingEdit      = goerr.NewTag("conflicting_edit")

	// ErrTagNotFound is returned by the GitHub client for 404 responses.
	ErrTagNotFound = goerr.NewTag("not_found")
	// ErrTagInvalidConfig marks configuration errors detected at startup.
	ErrTagInvalidConfig = goerr.NewTag("invalid_config")
)
