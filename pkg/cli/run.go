package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/cli/config"
	githubctrl "github.com/m-mizutani/dockrel/pkg/controller/github"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/dockrel/pkg/infra/docker"
	"github.com/m-mizutani/dockrel/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// pipelineConfig bundles the configuration needed to build the release pipeline
type pipelineConfig struct {
	github   config.GitHub
	registry config.Registry
	release  config.Release
	sentry   config.Sentry
	slack    config.Slack
}

func (p *pipelineConfig) flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, p.github.Flags()...)
	flags = append(flags, p.registry.Flags()...)
	flags = append(flags, p.release.Flags()...)
	flags = append(flags, p.sentry.Flags()...)
	flags = append(flags, p.slack.Flags()...)
	return flags
}

// newReleaseUseCase wires infrastructure clients into the release pipeline
func (p *pipelineConfig) newReleaseUseCase(ctx context.Context, buildOutput io.Writer, runID, logURL string) (interfaces.ReleaseUseCase, error) {
	if err := p.release.Validate(); err != nil {
		return nil, err
	}

	githubClient, err := p.github.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	builder, err := p.registry.NewBuilder(docker.WithOutput(buildOutput))
	if err != nil {
		return nil, err
	}

	var opts []usecase.ReleaseOption
	if notifier := p.slack.NewNotifier(logURL); notifier != nil {
		opts = append(opts, usecase.WithNotifier(notifier))
	}
	capturer, err := p.sentry.NewCapturer()
	if err != nil {
		return nil, err
	}
	if capturer != nil {
		opts = append(opts, usecase.WithErrorCapturer(capturer))
	}

	return usecase.NewRelease(
		githubClient,
		usecase.NewSource(githubClient),
		builder,
		p.release.ReleaseConfig(runID, logURL),
		opts...,
	), nil
}

func cmdRun() *cli.Command {
	var (
		actionCfg config.Action
		pipeline  pipelineConfig
	)

	flags := append(actionCfg.Flags(), pipeline.flags()...)

	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Handle the issue comment event of a GitHub Actions run",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			out := c.Root().Writer
			if out == nil {
				out = os.Stdout
			}
			if err := runAction(ctx, &actionCfg, &pipeline, out); err != nil {
				printAnnotation(out, err)
				return err
			}
			return nil
		},
	}
}

func runAction(ctx context.Context, actionCfg *config.Action, pipeline *pipelineConfig, out io.Writer) error {
	logger := ctxlog.From(ctx)

	if err := actionCfg.Validate(); err != nil {
		return err
	}

	eventName := actionCfg.EventName
	if eventName != string(model.EventTypeIssueComment) {
		logger.Info("Not an issue comment event, nothing to do", "event_name", eventName)
		return nil
	}

	data, err := os.ReadFile(actionCfg.EventPath)
	if err != nil {
		return goerr.Wrap(err, "failed to read event payload", goerr.V("path", actionCfg.EventPath))
	}

	payload, err := github.ParseWebHook(eventName, data)
	if err != nil {
		return goerr.Wrap(err, "failed to parse event payload", goerr.V("path", actionCfg.EventPath))
	}

	event, err := githubctrl.NewTriggerEvent(actionCfg.RunID, eventName, payload)
	if err != nil {
		return err
	}

	var opts []githubctrl.ProcessorOption
	repo := event.Repository
	if actionCfg.Repository != "" {
		repo, err = model.ParseRepository(actionCfg.Repository)
		if err != nil {
			return err
		}
		opts = append(opts, githubctrl.WithRepository(repo))
	}

	// Failure comments and notifications link the log of this run
	releaseUC, err := pipeline.newReleaseUseCase(ctx, out, actionCfg.RunID, actionCfg.RunURL(repo))
	if err != nil {
		return err
	}

	result, err := githubctrl.NewEventProcessor(releaseUC, opts...).ProcessEvent(ctx, actionCfg.RunID, eventName, payload)
	if err != nil {
		return err
	}

	logger.Info("Run finished", "state", result.State, "version", result.Version, "reason", result.Reason)
	return nil
}

var annotationEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// printAnnotation writes a GitHub Actions error annotation for err
func printAnnotation(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "::error ::%s\n", annotationEscaper.Replace(err.Error()))
}
