package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
)

// reportFailure logs err, forwards it to the error tracker and posts exactly
// one comment linking to the run log on the originating issue
func (uc *releaseUseCase) reportFailure(ctx context.Context, event *model.TriggerEvent, err error) {
	logger := ctxlog.From(ctx)

	logger.Error("Release failed", "error", err)

	if uc.capturer != nil {
		uc.capturer.Capture(ctx, event, err)
	}

	body := fmt.Sprintf("Something went wrong: %s", uc.logURL(ctx, event.Repository))
	if _, commentErr := uc.githubClient.CreateComment(ctx, event.Repository, event.IssueNumber, &github.IssueComment{
		Body: github.Ptr(body),
	}); commentErr != nil {
		logger.Error("Failed to post failure comment", "error", commentErr)
	}
}

// logURL returns where the run's log can be read. An explicit LogURL wins,
// otherwise the Actions run page of the repository is used.
func (uc *releaseUseCase) logURL(ctx context.Context, repo model.Repository) string {
	if uc.cfg.LogURL != "" {
		return uc.cfg.LogURL
	}

	htmlURL := "https://github.com/" + repo.FullName()
	if r, err := uc.githubClient.GetRepository(ctx, repo); err != nil {
		ctxlog.From(ctx).Warn("Failed to get repository URL, using default", "error", err)
	} else if r.GetHTMLURL() != "" {
		htmlURL = strings.TrimSuffix(r.GetHTMLURL(), "/")
	}

	if uc.cfg.RunID == "" {
		return htmlURL + "/actions"
	}
	return htmlURL + "/actions/runs/" + uc.cfg.RunID
}
