package usecase

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

const (
	manifestCommitMessage = "Update Docker image version"
	successReaction       = "+1"
)

// ReleaseConfig holds the immutable settings of the release pipeline
type ReleaseConfig struct {
	Trigger      string // Token a comment must contain, e.g. "/release"
	ManifestPath string // Path of the action metadata file in the repository
	Ref          string // Branch to build and commit to; empty means the default branch
	RunID        string // CI run ID used for the log link
	LogURL       string // Log link for failure comments, overrides the Actions run URL
}

type releaseUseCase struct {
	githubClient interfaces.GitHubClient
	source       interfaces.SourceUseCase
	builder      interfaces.ImageBuilder
	notifiers    []interfaces.Notifier
	capturer     interfaces.ErrorCapturer
	cfg          ReleaseConfig
}

// ReleaseOption is a functional option for the release use case
type ReleaseOption func(*releaseUseCase)

// WithNotifier adds a notifier called after every run that passed the trigger gate
func WithNotifier(n interfaces.Notifier) ReleaseOption {
	return func(uc *releaseUseCase) {
		uc.notifiers = append(uc.notifiers, n)
	}
}

// WithErrorCapturer sets where failed runs are reported besides the issue
func WithErrorCapturer(c interfaces.ErrorCapturer) ReleaseOption {
	return func(uc *releaseUseCase) {
		uc.capturer = c
	}
}

// NewRelease creates a new instance of ReleaseUseCase
func NewRelease(
	githubClient interfaces.GitHubClient,
	source interfaces.SourceUseCase,
	builder interfaces.ImageBuilder,
	cfg ReleaseConfig,
	opts ...ReleaseOption,
) interfaces.ReleaseUseCase {
	if cfg.ManifestPath == "" {
		cfg.ManifestPath = model.DefaultManifestPath
	}

	uc := &releaseUseCase{
		githubClient: githubClient,
		source:       source,
		builder:      builder,
		cfg:          cfg,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Run processes one trigger event. Events that are not release requests are
// skipped without touching GitHub; any failure after that is reported once on
// the originating issue.
func (uc *releaseUseCase) Run(ctx context.Context, event *model.TriggerEvent) (*model.RunResult, error) {
	logger := ctxlog.From(ctx).With(
		"repo", event.Repository.FullName(),
		"issue", event.IssueNumber,
		"comment_id", event.CommentID,
		"sender", event.Sender,
	)
	ctx = ctxlog.With(ctx, logger)

	if !event.IsSupportedEvent() {
		logger.Info("Not an issue comment event",
			"type", event.Type,
			"action", event.Action,
		)
		return &model.RunResult{State: model.RunStateSkipped, Reason: "unsupported event"}, nil
	}

	if !model.HasTrigger(uc.cfg.Trigger, event.CommentBody) {
		logger.Info("Comment is not a release trigger")
		return &model.RunResult{State: model.RunStateSkipped, Reason: "no trigger"}, nil
	}

	plan, err := uc.release(ctx, event)
	if err != nil {
		result := &model.RunResult{State: model.RunStateFailed, Reason: err.Error()}
		if plan != nil {
			result.Version = plan.Next.String()
		}
		uc.reportFailure(ctx, event, err)
		uc.notify(ctx, event, result)
		return result, err
	}

	result := &model.RunResult{State: model.RunStateSucceeded, Version: plan.Next.String()}
	logger.Info("Release completed", "version", result.Version)
	uc.notify(ctx, event, result)
	return result, nil
}

// release runs every step after the trigger gate. It returns the plan as
// soon as the next version is known so failures can report it.
func (uc *releaseUseCase) release(ctx context.Context, event *model.TriggerEvent) (*model.ReleasePlan, error) {
	logger := ctxlog.From(ctx)

	req, err := model.ParseReleaseRequest(uc.cfg.Trigger, event.CommentBody)
	if err != nil {
		return nil, err
	}
	logger.Info("Release requested", "bump", req.Bump)

	if err := uc.authorize(ctx, event); err != nil {
		return nil, err
	}

	tree, err := uc.source.FetchSource(ctx, event.Repository, uc.cfg.Ref)
	if err != nil {
		return nil, err
	}
	defer func() {
		if removeErr := os.RemoveAll(tree.TempDir); removeErr != nil {
			logger.Warn("Failed to clean up temporary directory",
				"temp_dir", tree.TempDir,
				"error", removeErr,
			)
		} else {
			logger.Debug("Cleaned up temporary directory", "temp_dir", tree.TempDir)
		}
	}()

	manifest, err := uc.loadManifest(tree)
	if err != nil {
		return nil, err
	}

	plan := model.NewReleasePlan(manifest, req)
	logger.Info("Next version",
		"current", plan.Current.String(),
		"next", plan.Next.String(),
		"image", plan.ImageRepository,
	)

	if err := uc.ensureNoRelease(ctx, event.Repository, plan); err != nil {
		return plan, err
	}

	if err := uc.buildAndPublish(ctx, tree, plan); err != nil {
		return plan, err
	}

	commitSHA, err := uc.commitManifest(ctx, event.Repository, manifest, plan)
	if err != nil {
		return plan, err
	}

	if err := uc.publishRelease(ctx, event.Repository, plan, commitSHA); err != nil {
		return plan, err
	}

	if err := uc.githubClient.CreateCommentReaction(ctx, event.Repository, event.CommentID, successReaction); err != nil {
		return plan, goerr.Wrap(err, "failed to react to trigger comment")
	}

	return plan, nil
}

func (uc *releaseUseCase) authorize(ctx context.Context, event *model.TriggerEvent) error {
	perm, err := uc.githubClient.GetPermissionLevel(ctx, event.Repository, event.Sender)
	if err != nil {
		return goerr.Wrap(err, "failed to check permission", goerr.V("sender", event.Sender))
	}

	switch perm {
	case "admin", "write":
		ctxlog.From(ctx).Debug("Sender is allowed to release", "permission", perm)
		return nil
	default:
		return goerr.New("you are not allowed to create a release",
			goerr.V("sender", event.Sender),
			goerr.V("permission", perm),
			goerr.T(types.ErrTagUnauthorized),
		)
	}
}

func (uc *releaseUseCase) loadManifest(tree *model.SourceTree) (*model.Manifest, error) {
	content, err := os.ReadFile(filepath.Join(tree.RootDir, filepath.FromSlash(uc.cfg.ManifestPath)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read manifest",
			goerr.V("path", uc.cfg.ManifestPath),
			goerr.T(types.ErrTagManifestFormat),
		)
	}
	return model.ParseManifest(uc.cfg.ManifestPath, content)
}

func (uc *releaseUseCase) ensureNoRelease(ctx context.Context, repo model.Repository, plan *model.ReleasePlan) error {
	_, err := uc.githubClient.GetReleaseByTag(ctx, repo, plan.ReleaseTag())
	switch {
	case err == nil:
		return goerr.New("release already exists",
			goerr.V("tag", plan.ReleaseTag()),
			goerr.T(types.ErrTagReleaseAlreadyExists),
		)
	case goerr.HasTag(err, types.ErrTagNotFound):
		return nil
	default:
		return goerr.Wrap(err, "failed to check existing release", goerr.V("tag", plan.ReleaseTag()))
	}
}

func (uc *releaseUseCase) buildAndPublish(ctx context.Context, tree *model.SourceTree, plan *model.ReleasePlan) error {
	logger := ctxlog.From(ctx)

	if err := uc.builder.Login(ctx); err != nil {
		return err
	}

	imageID, err := uc.builder.Build(ctx, tree.RootDir)
	if err != nil {
		return err
	}

	logger.Info("Pushing Docker images", "image_id", imageID, "tags", plan.ImageTags())
	for _, tag := range plan.ImageTags() {
		if err := uc.builder.Publish(ctx, imageID, plan.ImageRepository, tag); err != nil {
			return err
		}
	}

	return nil
}

func (uc *releaseUseCase) commitManifest(ctx context.Context, repo model.Repository, manifest *model.Manifest, plan *model.ReleasePlan) (string, error) {
	ctxlog.From(ctx).Info("Committing manifest changes", "path", manifest.Path)

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(manifestCommitMessage),
		Content: manifest.Rewrite(plan.Next),
		SHA:     github.Ptr(manifest.BlobSHA()),
	}
	// The commit goes to the branch the image was built from
	if uc.cfg.Ref != "" {
		opts.Branch = github.Ptr(uc.cfg.Ref)
	}

	result, err := uc.githubClient.UpdateFile(ctx, repo, manifest.Path, opts)
	if err != nil {
		return "", goerr.Wrap(err, "failed to commit manifest", goerr.V("path", manifest.Path))
	}

	commitSHA := result.Commit.GetSHA()
	if commitSHA == "" {
		return "", goerr.New("manifest commit returned no SHA", goerr.V("path", manifest.Path))
	}
	return commitSHA, nil
}

func (uc *releaseUseCase) publishRelease(ctx context.Context, repo model.Repository, plan *model.ReleasePlan, commitSHA string) error {
	logger := ctxlog.From(ctx)
	tag := plan.ReleaseTag()

	logger.Info("Creating release", "tag", tag, "commit_sha", commitSHA)
	if _, err := uc.githubClient.CreateRelease(ctx, repo, &github.RepositoryRelease{
		TagName:         github.Ptr(tag),
		TargetCommitish: github.Ptr(commitSHA),
		Name:            github.Ptr(tag),
		Body:            github.Ptr(plan.Changelog),
	}); err != nil {
		return err
	}

	logger.Info("Creating Git tags", "tags", plan.FloatingTags())
	for _, floating := range plan.FloatingTags() {
		if err := uc.githubClient.DeleteTag(ctx, repo, floating); err != nil && !goerr.HasTag(err, types.ErrTagNotFound) {
			return err
		}
		if _, err := uc.githubClient.CreateTag(ctx, repo, floating, commitSHA); err != nil {
			return err
		}
	}

	return nil
}

func (uc *releaseUseCase) notify(ctx context.Context, event *model.TriggerEvent, result *model.RunResult) {
	for _, n := range uc.notifiers {
		if err := n.Notify(ctx, event, result); err != nil {
			ctxlog.From(ctx).Warn("Failed to send notification", "error", err)
		}
	}
}
