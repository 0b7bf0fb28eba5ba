package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/cli/config"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const description = `dockrel releases a Docker container action when a maintainer comments
"/release <major|minor|patch> [changelog]" on an issue or pull request.

  run    handles the issue_comment event of the current GitHub Actions job
  serve  receives issue_comment webhooks and runs releases one at a time`

// Option customizes the CLI application
type Option func(*cli.Command)

// WithWriter sets where command output, such as build progress and GitHub
// Actions annotations, is written. Defaults to stdout.
func WithWriter(w io.Writer) Option {
	return func(c *cli.Command) {
		c.Writer = w
	}
}

// Run runs the CLI application
func Run(ctx context.Context, args []string, opts ...Option) error {
	var loggerCfg config.Logger
	logger := slog.Default()

	app := &cli.Command{
		Name:        "dockrel",
		Usage:       "Release Docker container actions from issue comments",
		Description: description,
		Version:     types.Version,
		Flags:       loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			configured, err := loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			logger = configured.With("version", types.Version)
			slog.SetDefault(logger)
			logger.Debug("Starting dockrel", "command", c.Args().First())
			return ctxlog.With(ctx, logger), nil
		},
		Commands: []*cli.Command{
			cmdRun(),
			cmdServe(),
		},
	}

	for _, opt := range opts {
		opt(app)
	}

	if err := app.Run(ctx, args); err != nil {
		if goerr.HasTag(err, types.ErrTagInvalidConfig) {
			logger.Error("Invalid configuration", slog.Any("error", err))
		} else {
			logger.Error("dockrel failed", slog.Any("error", err))
		}
		return err
	}

	return nil
}
