package github

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/oauth2"
)

type client struct {
	githubClient *github.Client
	httpClient   *http.Client
}

type options struct {
	baseURL string
}

// Option is a functional option for the GitHub client
type Option func(*options)

// WithBaseURL points the client at a GitHub Enterprise (or test) API endpoint
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// NewClient creates a new GitHub client with App authentication
func NewClient(appID, installationID int64, privateKey []byte, opts ...Option) (interfaces.GitHubClient, error) {
	o := applyOptions(opts)

	// Create GitHub App transport
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App transport",
			goerr.V("app_id", appID),
			goerr.V("installation_id", installationID),
		)
	}
	if o.baseURL != "" {
		itr.BaseURL = strings.TrimSuffix(o.baseURL, "/")
	}

	c, err := newClient(&http.Client{Transport: itr}, o)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewClientWithToken creates a new GitHub client authenticated by a token,
// such as the GITHUB_TOKEN of an Actions run
func NewClientWithToken(ctx context.Context, token string, opts ...Option) (interfaces.GitHubClient, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	c, err := newClient(oauth2.NewClient(ctx, ts), applyOptions(opts))
	if err != nil {
		return nil, err
	}
	return c, nil
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newClient(httpClient *http.Client, o *options) (*client, error) {
	githubClient := github.NewClient(httpClient)

	if o.baseURL != "" {
		baseURL, err := url.Parse(strings.TrimSuffix(o.baseURL, "/") + "/")
		if err != nil {
			return nil, goerr.Wrap(err, "invalid GitHub API URL", goerr.V("url", o.baseURL))
		}
		githubClient.BaseURL = baseURL
	}

	return &client{
		githubClient: githubClient,
		httpClient:   httpClient,
	}, nil
}

// wrapError attaches the response status and tags 404 responses as not found
func wrapError(err error, resp *github.Response, msg string, values ...goerr.Option) error {
	opts := values
	if resp != nil {
		opts = append(opts, goerr.V("status", resp.StatusCode))
		if resp.StatusCode == http.StatusNotFound {
			opts = append(opts, goerr.T(types.ErrTagNotFound))
		}
	}
	return goerr.Wrap(err, msg, opts...)
}

// GetRepository returns repository metadata
func (c *client) GetRepository(ctx context.Context, repo model.Repository) (*github.Repository, error) {
	r, resp, err := c.githubClient.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, wrapError(err, resp, "failed to get repository", goerr.V("repo", repo.FullName()))
	}
	return r, nil
}

// GetPermissionLevel returns the collaborator permission of user
func (c *client) GetPermissionLevel(ctx context.Context, repo model.Repository, user string) (string, error) {
	level, resp, err := c.githubClient.Repositories.GetPermissionLevel(ctx, repo.Owner, repo.Name, user)
	if err != nil {
		return "", wrapError(err, resp, "failed to get collaborator permission",
			goerr.V("repo", repo.FullName()),
			goerr.V("user", user),
		)
	}
	return level.GetPermission(), nil
}

// DownloadTarball downloads the source code tarball for ref
func (c *client) DownloadTarball(ctx context.Context, repo model.Repository, ref string) ([]byte, error) {
	// Get download URL for tarball
	var opts *github.RepositoryContentGetOptions
	if ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref}
	}
	link, resp, err := c.githubClient.Repositories.GetArchiveLink(ctx, repo.Owner, repo.Name, github.Tarball, opts, 3) // Follow up to 3 redirects
	if err != nil {
		return nil, wrapError(err, resp, "failed to get tarball download URL",
			goerr.V("repo", repo.FullName()),
			goerr.V("ref", ref),
			goerr.T(types.ErrTagDownloadFailed),
		)
	}

	// Create HTTP request for download
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link.String(), nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create download request", goerr.V("url", link.String()))
	}

	// Use the same client transport for authentication
	dl, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to download tarball",
			goerr.V("url", link.String()),
			goerr.T(types.ErrTagDownloadFailed),
		)
	}
	defer dl.Body.Close()

	if dl.StatusCode != http.StatusOK {
		return nil, goerr.New("unexpected status code downloading tarball",
			goerr.V("status", dl.StatusCode),
			goerr.V("url", link.String()),
			goerr.T(types.ErrTagDownloadFailed),
		)
	}

	data, err := io.ReadAll(dl.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body", goerr.T(types.ErrTagDownloadFailed))
	}

	return data, nil
}

// GetReleaseByTag returns the release published under tag
func (c *client) GetReleaseByTag(ctx context.Context, repo model.Repository, tag string) (*github.RepositoryRelease, error) {
	release, resp, err := c.githubClient.Repositories.GetReleaseByTag(ctx, repo.Owner, repo.Name, tag)
	if err != nil {
		return nil, wrapError(err, resp, "failed to get release",
			goerr.V("repo", repo.FullName()),
			goerr.V("tag", tag),
		)
	}
	return release, nil
}

// UpdateFile commits new content for path, guarded by opts.SHA
func (c *client) UpdateFile(ctx context.Context, repo model.Repository, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, error) {
	result, resp, err := c.githubClient.Repositories.UpdateFile(ctx, repo.Owner, repo.Name, path, opts)
	if err != nil {
		values := []goerr.Option{
			goerr.V("repo", repo.FullName()),
			goerr.V("path", path),
			goerr.V("sha", opts.GetSHA()),
		}
		// Stale blob SHAs are answered with 409, or 422 on some endpoints
		if resp != nil && (resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity) {
			values = append(values, goerr.T(types.ErrTagConflictingEdit))
		}
		return nil, wrapError(err, resp, "failed to update file", values...)
	}
	return result, nil
}

// CreateRelease creates a release
func (c *client) CreateRelease(ctx context.Context, repo model.Repository, release *github.RepositoryRelease) (*github.RepositoryRelease, error) {
	created, resp, err := c.githubClient.Repositories.CreateRelease(ctx, repo.Owner, repo.Name, release)
	if err != nil {
		return nil, wrapError(err, resp, "failed to create release",
			goerr.V("repo", repo.FullName()),
			goerr.V("tag", release.GetTagName()),
		)
	}
	return created, nil
}

// DeleteTag deletes refs/tags/<tag>
func (c *client) DeleteTag(ctx context.Context, repo model.Repository, tag string) error {
	ref := "tags/" + tag

	// The delete endpoint answers 422 for missing refs, so look it up first
	if _, resp, err := c.githubClient.Git.GetRef(ctx, repo.Owner, repo.Name, ref); err != nil {
		return wrapError(err, resp, "failed to get tag ref",
			goerr.V("repo", repo.FullName()),
			goerr.V("ref", ref),
		)
	}

	resp, err := c.githubClient.Git.DeleteRef(ctx, repo.Owner, repo.Name, ref)
	if err != nil {
		return wrapError(err, resp, "failed to delete tag ref",
			goerr.V("repo", repo.FullName()),
			goerr.V("ref", ref),
		)
	}
	return nil
}

// CreateTag creates refs/tags/<tag> pointing at sha
func (c *client) CreateTag(ctx context.Context, repo model.Repository, tag, sha string) (*github.Reference, error) {
	ref, resp, err := c.githubClient.Git.CreateRef(ctx, repo.Owner, repo.Name, github.CreateRef{
		Ref: "refs/tags/" + tag,
		SHA: sha,
	})
	if err != nil {
		return nil, wrapError(err, resp, "failed to create tag ref",
			goerr.V("repo", repo.FullName()),
			goerr.V("tag", tag),
			goerr.V("sha", sha),
		)
	}
	return ref, nil
}

// CreateComment creates a comment on an issue
func (c *client) CreateComment(ctx context.Context, repo model.Repository, number int, comment *github.IssueComment) (*github.IssueComment, error) {
	created, resp, err := c.githubClient.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, comment)
	if err != nil {
		return nil, wrapError(err, resp, "failed to create comment",
			goerr.V("repo", repo.FullName()),
			goerr.V("number", number),
		)
	}
	return created, nil
}

// CreateCommentReaction reacts to an issue comment
func (c *client) CreateCommentReaction(ctx context.Context, repo model.Repository, commentID int64, content string) error {
	_, resp, err := c.githubClient.Reactions.CreateIssueCommentReaction(ctx, repo.Owner, repo.Name, commentID, content)
	if err != nil {
		return wrapError(err, resp, "failed to create reaction",
			goerr.V("repo", repo.FullName()),
			goerr.V("comment_id", commentID),
			goerr.V("content", content),
		)
	}
	return nil
}
