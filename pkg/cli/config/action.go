package config

import (
	"strings"

	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/dockrel/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Release holds settings of the release pipeline shared by all commands
type Release struct {
	Trigger      string
	ManifestPath string
	Ref          string
}

// Flags returns CLI flags for release configuration
func (c *Release) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "trigger",
			Usage:       "Token a comment must contain to request a release",
			Value:       "/release",
			Destination: &c.Trigger,
			Sources:     cli.EnvVars("INPUT_TRIGGER"),
		},
		&cli.StringFlag{
			Name:        "manifest-path",
			Usage:       "Path of the action metadata file in the repository",
			Value:       model.DefaultManifestPath,
			Destination: &c.ManifestPath,
			Sources:     cli.EnvVars("INPUT_MANIFEST_PATH"),
		},
		&cli.StringFlag{
			Name:        "ref",
			Usage:       "Branch to build and commit the manifest to (default branch if empty)",
			Destination: &c.Ref,
			Sources:     cli.EnvVars("INPUT_REF"),
		},
	}
}

// Validate checks the release settings
func (c *Release) Validate() error {
	if c.Trigger == "" {
		return goerr.New("trigger must not be empty", goerr.T(types.ErrTagInvalidConfig))
	}
	if c.ManifestPath == "" {
		return goerr.New("manifest path must not be empty", goerr.T(types.ErrTagInvalidConfig))
	}
	return nil
}

// ReleaseConfig converts the settings for the release use case
func (c *Release) ReleaseConfig(runID, logURL string) usecase.ReleaseConfig {
	return usecase.ReleaseConfig{
		Trigger:      c.Trigger,
		ManifestPath: c.ManifestPath,
		Ref:          c.Ref,
		RunID:        runID,
		LogURL:       logURL,
	}
}

// Action holds the GitHub Actions run environment
type Action struct {
	EventName  string
	EventPath  string
	Repository string
	RunID      string
	ServerURL  string
}

// Flags returns CLI flags for the Actions environment
func (c *Action) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "event-name",
			Usage:       "Name of the event that triggered the run",
			Destination: &c.EventName,
			Sources:     cli.EnvVars("GITHUB_EVENT_NAME"),
		},
		&cli.StringFlag{
			Name:        "event-path",
			Usage:       "Path of the event payload JSON",
			Required:    true,
			Destination: &c.EventPath,
			Sources:     cli.EnvVars("GITHUB_EVENT_PATH"),
		},
		&cli.StringFlag{
			Name:        "repository",
			Usage:       "Repository to release (owner/name), overrides the payload",
			Destination: &c.Repository,
			Sources:     cli.EnvVars("GITHUB_REPOSITORY"),
		},
		&cli.StringFlag{
			Name:        "run-id",
			Usage:       "Run ID used to link the run log",
			Destination: &c.RunID,
			Sources:     cli.EnvVars("GITHUB_RUN_ID"),
		},
		&cli.StringFlag{
			Name:        "server-url",
			Usage:       "GitHub web URL the run log is served from",
			Value:       "https://github.com",
			Destination: &c.ServerURL,
			Sources:     cli.EnvVars("GITHUB_SERVER_URL"),
		},
	}
}

// RunURL returns the page of the current Actions run of repo, or an empty
// string when the run ID is unknown
func (c *Action) RunURL(repo model.Repository) string {
	if c.RunID == "" || c.ServerURL == "" {
		return ""
	}
	return strings.TrimSuffix(c.ServerURL, "/") + "/" + repo.FullName() + "/actions/runs/" + c.RunID
}

// Validate checks the Actions environment
func (c *Action) Validate() error {
	if c.Repository != "" {
		if _, err := model.ParseRepository(c.Repository); err != nil {
			return err
		}
	}
	return nil
}
