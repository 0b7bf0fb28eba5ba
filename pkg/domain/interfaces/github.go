package interfaces

import (
	"context"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
)

// GitHubClient defines operations for interacting with GitHub API.
// Lookups of missing objects fail with an error tagged types.ErrTagNotFound.
type GitHubClient interface {
	// GetRepository returns repository metadata such as its HTML URL
	GetRepository(ctx context.Context, repo model.Repository) (*github.Repository, error)

	// GetPermissionLevel returns the permission of user on repo (admin, write, read, none)
	GetPermissionLevel(ctx context.Context, repo model.Repository, user string) (string, error)

	// DownloadTarball downloads the source code tarball for ref (default branch if empty)
	DownloadTarball(ctx context.Context, repo model.Repository, ref string) ([]byte, error)

	// GetReleaseByTag returns the release published under tag
	GetReleaseByTag(ctx context.Context, repo model.Repository, tag string) (*github.RepositoryRelease, error)

	// UpdateFile replaces the content of path. opts.SHA must hold the blob SHA of
	// the content being replaced; a stale SHA fails with types.ErrTagConflictingEdit.
	UpdateFile(ctx context.Context, repo model.Repository, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, error)

	// CreateRelease creates a release
	CreateRelease(ctx context.Context, repo model.Repository, release *github.RepositoryRelease) (*github.RepositoryRelease, error)

	// DeleteTag deletes refs/tags/<tag>
	DeleteTag(ctx context.Context, repo model.Repository, tag string) error

	// CreateTag creates refs/tags/<tag> pointing at sha
	CreateTag(ctx context.Context, repo model.Repository, tag, sha string) (*github.Reference, error)

	// CreateComment creates a comment on an issue or pull request
	CreateComment(ctx context.Context, repo model.Repository, number int, comment *github.IssueComment) (*github.IssueComment, error)

	// CreateCommentReaction adds a reaction such as "+1" to an issue comment
	CreateCommentReaction(ctx context.Context, repo model.Repository, commentID int64, content string) error
}
