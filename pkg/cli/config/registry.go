package config

import (
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/infra/docker"
	"github.com/urfave/cli/v3"
)

// Registry holds container registry credentials
type Registry struct {
	Username string
	Password string `masq:"secret"`
	Server   string
}

// Flags returns CLI flags for registry configuration
func (c *Registry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "docker-username",
			Usage:       "Registry user name",
			Required:    true,
			Destination: &c.Username,
			Sources:     cli.EnvVars("INPUT_DOCKER_USERNAME"),
		},
		&cli.StringFlag{
			Name:        "docker-password",
			Usage:       "Registry password or access token",
			Required:    true,
			Destination: &c.Password,
			Sources:     cli.EnvVars("INPUT_DOCKER_PASSWORD"),
		},
		&cli.StringFlag{
			Name:        "docker-server",
			Usage:       "Registry address (Docker Hub if empty)",
			Destination: &c.Server,
			Sources:     cli.EnvVars("INPUT_DOCKER_SERVER"),
		},
	}
}

// NewBuilder creates an image builder talking to the local Docker engine
func (c *Registry) NewBuilder(opts ...docker.Option) (interfaces.ImageBuilder, error) {
	return docker.New(docker.Credential{
		Username:      c.Username,
		Password:      c.Password,
		ServerAddress: c.Server,
	}, opts...)
}
