package usecase_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"testing"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

// MockGitHubClient is a mock implementation of GitHubClient. Unset funcs
// fail with "mock not configured".
type MockGitHubClient struct {
	getRepositoryFunc         func(ctx context.Context, repo model.Repository) (*github.Repository, error)
	getPermissionLevelFunc    func(ctx context.Context, repo model.Repository, user string) (string, error)
	downloadTarballFunc       func(ctx context.Context, repo model.Repository, ref string) ([]byte, error)
	getReleaseByTagFunc       func(ctx context.Context, repo model.Repository, tag string) (*github.RepositoryRelease, error)
	updateFileFunc            func(ctx context.Context, repo model.Repository, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, error)
	createReleaseFunc         func(ctx context.Context, repo model.Repository, release *github.RepositoryRelease) (*github.RepositoryRelease, error)
	deleteTagFunc             func(ctx context.Context, repo model.Repository, tag string) error
	createTagFunc             func(ctx context.Context, repo model.Repository, tag, sha string) (*github.Reference, error)
	createCommentFunc         func(ctx context.Context, repo model.Repository, number int, comment *github.IssueComment) (*github.IssueComment, error)
	createCommentReactionFunc func(ctx context.Context, repo model.Repository, commentID int64, content string) error

	// Recorded calls
	calls     []string
	comments  []string
	updates   []*github.RepositoryContentFileOptions
	releases  []*github.RepositoryRelease
	deleted   []string
	created   []string
	reactions []string
}

var errMockNotConfigured = errors.New("mock not configured")

func (m *MockGitHubClient) GetRepository(ctx context.Context, repo model.Repository) (*github.Repository, error) {
	m.calls = append(m.calls, "GetRepository")
	if m.getRepositoryFunc != nil {
		return m.getRepositoryFunc(ctx, repo)
	}
	return nil, errMockNotConfigured
}

func (m *MockGitHubClient) GetPermissionLevel(ctx context.Context, repo model.Repository, user string) (string, error) {
	m.calls = append(m.calls, "GetPermissionLevel")
	if m.getPermissionLevelFunc != nil {
		return m.getPermissionLevelFunc(ctx, repo, user)
	}
	return "", errMockNotConfigured
}

func (m *MockGitHubClient) DownloadTarball(ctx context.Context, repo model.Repository, ref string) ([]byte, error) {
	m.calls = append(m.calls, "DownloadTarball")
	if m.downloadTarballFunc != nil {
		return m.downloadTarballFunc(ctx, repo, ref)
	}
	return nil, errMockNotConfigured
}

func (m *MockGitHubClient) GetReleaseByTag(ctx context.Context, repo model.Repository, tag string) (*github.RepositoryRelease, error) {
	m.calls = append(m.calls, "GetReleaseByTag")
	if m.getReleaseByTagFunc != nil {
		return m.getReleaseByTagFunc(ctx, repo, tag)
	}
	return nil, errMockNotConfigured
}

func (m *MockGitHubClient) UpdateFile(ctx context.Context, repo model.Repository, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, error) {
	m.calls = append(m.calls, "UpdateFile")
	m.updates = append(m.updates, opts)
	if m.updateFileFunc != nil {
		return m.updateFileFunc(ctx, repo, path, opts)
	}
	return nil, errMockNotConfigured
}

func (m *MockGitHubClient) CreateRelease(ctx context.Context, repo model.Repository, release *github.RepositoryRelease) (*github.RepositoryRelease, error) {
	m.calls = append(m.calls, "CreateRelease")
	m.releases = append(m.releases, release)
	if m.createReleaseFunc != nil {
		return m.createReleaseFunc(ctx, repo, release)
	}
	return release, nil
}

func (m *MockGitHubClient) DeleteTag(ctx context.Context, repo model.Repository, tag string) error {
	m.calls = append(m.calls, "DeleteTag")
	m.deleted = append(m.deleted, tag)
	if m.deleteTagFunc != nil {
		return m.deleteTagFunc(ctx, repo, tag)
	}
	return nil
}

func (m *MockGitHubClient) CreateTag(ctx context.Context, repo model.Repository, tag, sha string) (*github.Reference, error) {
	m.calls = append(m.calls, "CreateTag")
	m.created = append(m.created, tag+"@"+sha)
	if m.createTagFunc != nil {
		return m.createTagFunc(ctx, repo, tag, sha)
	}
	return &github.Reference{Ref: github.Ptr("refs/tags/" + tag)}, nil
}

func (m *MockGitHubClient) CreateComment(ctx context.Context, repo model.Repository, number int, comment *github.IssueComment) (*github.IssueComment, error) {
	m.calls = append(m.calls, "CreateComment")
	m.comments = append(m.comments, comment.GetBody())
	if m.createCommentFunc != nil {
		return m.createCommentFunc(ctx, repo, number, comment)
	}
	return comment, nil
}

func (m *MockGitHubClient) CreateCommentReaction(ctx context.Context, repo model.Repository, commentID int64, content string) error {
	m.calls = append(m.calls, "CreateCommentReaction")
	m.reactions = append(m.reactions, content)
	if m.createCommentReactionFunc != nil {
		return m.createCommentReactionFunc(ctx, repo, commentID, content)
	}
	return nil
}

func (m *MockGitHubClient) called(name string) int {
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

// MockImageBuilder is a mock implementation of ImageBuilder
type MockImageBuilder struct {
	loginErr  error
	buildErr  error
	publishFn func(imageID, repository, tag string) error

	builtDirs []string
	published []string
}

func (m *MockImageBuilder) Login(ctx context.Context) error {
	return m.loginErr
}

func (m *MockImageBuilder) Build(ctx context.Context, dir string) (string, error) {
	m.builtDirs = append(m.builtDirs, dir)
	if m.buildErr != nil {
		return "", m.buildErr
	}
	return "sha256:feedface", nil
}

func (m *MockImageBuilder) Publish(ctx context.Context, imageID, repository, tag string) error {
	m.published = append(m.published, repository+":"+tag)
	if m.publishFn != nil {
		return m.publishFn(imageID, repository, tag)
	}
	return nil
}

// createTestTarball builds a gzipped tarball with files under a single
// top-level directory, the way GitHub archives are laid out
func createTestTarball(t *testing.T, root string, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	gt.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     root + "/",
		Typeflag: tar.TypeDir,
		Mode:     0755,
	}))
	for name, content := range files {
		gt.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     root + "/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		gt.NoError(t, err)
	}

	gt.NoError(t, tw.Close())
	gt.NoError(t, gw.Close())
	return buf.Bytes()
}
