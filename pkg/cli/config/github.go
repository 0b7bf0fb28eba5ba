package config

import (
	"context"
	"os"

	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	githubinfra "github.com/m-mizutani/dockrel/pkg/infra/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub API configuration. Either Token or the three App
// fields must be set.
type GitHub struct {
	Token          string `masq:"secret"`
	AppID          int64
	InstallationID int64
	PrivateKey     string `masq:"secret"` // PEM content or path to a PEM file
	APIURL         string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-token",
			Usage:       "GitHub API token",
			Destination: &c.Token,
			Sources:     cli.EnvVars("INPUT_TOKEN", "GITHUB_TOKEN"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("DOCKREL_GITHUB_APP_ID"),
		},
		&cli.Int64Flag{
			Name:        "github-app-installation-id",
			Usage:       "GitHub App installation ID",
			Destination: &c.InstallationID,
			Sources:     cli.EnvVars("DOCKREL_GITHUB_APP_INSTALLATION_ID"),
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Usage:       "GitHub App private key (PEM content or file path)",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("DOCKREL_GITHUB_APP_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-api-url",
			Usage:       "GitHub API base URL (for GitHub Enterprise)",
			Destination: &c.APIURL,
			Sources:     cli.EnvVars("GITHUB_API_URL"),
		},
	}
}

func (c *GitHub) useApp() bool {
	return c.AppID != 0 || c.InstallationID != 0 || c.PrivateKey != ""
}

// Validate checks that one complete authentication method is configured
func (c *GitHub) Validate() error {
	if c.useApp() {
		if c.AppID == 0 || c.InstallationID == 0 || c.PrivateKey == "" {
			return goerr.New("GitHub App authentication requires app ID, installation ID and private key",
				goerr.V("app_id", c.AppID),
				goerr.V("installation_id", c.InstallationID),
				goerr.T(types.ErrTagInvalidConfig),
			)
		}
		return nil
	}

	if c.Token == "" {
		return goerr.New("GitHub token is required", goerr.T(types.ErrTagInvalidConfig))
	}
	return nil
}

func (c *GitHub) privateKey() ([]byte, error) {
	if _, err := os.Stat(c.PrivateKey); err == nil {
		data, err := os.ReadFile(c.PrivateKey)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read GitHub App private key", goerr.V("path", c.PrivateKey))
		}
		return data, nil
	}
	return []byte(c.PrivateKey), nil
}

// NewClient creates a GitHub client for the configured authentication method
func (c *GitHub) NewClient(ctx context.Context) (interfaces.GitHubClient, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var opts []githubinfra.Option
	if c.APIURL != "" {
		opts = append(opts, githubinfra.WithBaseURL(c.APIURL))
	}

	if c.useApp() {
		key, err := c.privateKey()
		if err != nil {
			return nil, err
		}
		return githubinfra.NewClient(c.AppID, c.InstallationID, key, opts...)
	}

	return githubinfra.NewClientWithToken(ctx, c.Token, opts...)
}
