package docker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"

	dockertypes "github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/moby/patternmatcher/ignorefile"
)

// Credential holds registry credentials
type Credential struct {
	Username      string
	Password      string `masq:"secret"`
	ServerAddress string // Empty means Docker Hub
}

type builder struct {
	api        dockerclient.APIClient
	credential Credential
	output     io.Writer
}

type options struct {
	clientOpts []dockerclient.Opt
	output     io.Writer
}

// Option is a functional option for the image builder
type Option func(*options)

// WithClientOpts overrides how the Docker API client is constructed. By
// default the client is configured from DOCKER_HOST and friends.
func WithClientOpts(opts ...dockerclient.Opt) Option {
	return func(o *options) {
		o.clientOpts = opts
	}
}

// WithOutput sets where build and push progress is written
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// New creates an image builder backed by the Docker engine API
func New(credential Credential, opts ...Option) (interfaces.ImageBuilder, error) {
	o := &options{
		clientOpts: []dockerclient.Opt{
			dockerclient.FromEnv,
			dockerclient.WithAPIVersionNegotiation(),
		},
		output: io.Discard,
	}
	for _, opt := range opts {
		opt(o)
	}

	api, err := dockerclient.NewClientWithOpts(o.clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Docker client")
	}

	return &builder{
		api:        api,
		credential: credential,
		output:     o.output,
	}, nil
}

func (b *builder) authConfig() registry.AuthConfig {
	return registry.AuthConfig{
		Username:      b.credential.Username,
		Password:      b.credential.Password,
		ServerAddress: b.credential.ServerAddress,
	}
}

// Login verifies the registry credentials
func (b *builder) Login(ctx context.Context) error {
	logger := ctxlog.From(ctx)
	logger.Info("Logging into registry",
		"username", b.credential.Username,
		"server", b.credential.ServerAddress,
	)

	resp, err := b.api.RegistryLogin(ctx, b.authConfig())
	if err != nil {
		return goerr.Wrap(err, "failed to log into registry",
			goerr.V("username", b.credential.Username),
			goerr.V("server", b.credential.ServerAddress),
			goerr.T(types.ErrTagPushFailed),
		)
	}

	logger.Debug("Registry login completed", "status", resp.Status)
	return nil
}

// Build builds an image from dir and returns the image ID
func (b *builder) Build(ctx context.Context, dir string) (string, error) {
	logger := ctxlog.From(ctx)

	excludes, err := readDockerignore(dir)
	if err != nil {
		return "", err
	}

	buildCtx, err := archive.TarWithOptions(dir, &archive.TarOptions{ExcludePatterns: excludes})
	if err != nil {
		return "", goerr.Wrap(err, "failed to archive build context",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagBuildFailed),
		)
	}
	defer buildCtx.Close()

	logger.Info("Building image", "dir", dir)

	resp, err := b.api.ImageBuild(ctx, buildCtx, dockertypes.ImageBuildOptions{
		Remove: true,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to start image build",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagBuildFailed),
		)
	}
	defer resp.Body.Close()

	var imageID string
	onAux := func(msg jsonmessage.JSONMessage) {
		if msg.Aux == nil {
			return
		}
		var result dockertypes.BuildResult
		if err := json.Unmarshal(*msg.Aux, &result); err == nil && result.ID != "" {
			imageID = result.ID
		}
	}

	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, b.output, 0, false, onAux); err != nil {
		return "", goerr.Wrap(err, "image build failed",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagBuildFailed),
		)
	}

	if imageID == "" {
		return "", goerr.New("image build finished without an image ID",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagBuildFailed),
		)
	}

	logger.Info("Built image", "image_id", imageID)
	return imageID, nil
}

// readDockerignore returns the exclude patterns of dir/.dockerignore. The
// Dockerfile is always sent, even when a pattern matches it.
func readDockerignore(dir string) ([]string, error) {
	f, err := os.Open(filepath.Join(dir, ".dockerignore"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open .dockerignore",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagBuildFailed),
		)
	}
	defer f.Close()

	patterns, err := ignorefile.ReadAll(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse .dockerignore",
			goerr.V("dir", dir),
			goerr.T(types.ErrTagBuildFailed),
		)
	}
	if len(patterns) > 0 {
		patterns = append(patterns, "!Dockerfile")
	}
	return patterns, nil
}

// Publish tags the image as repository:tag and pushes it
func (b *builder) Publish(ctx context.Context, imageID, repository, tag string) error {
	logger := ctxlog.From(ctx)
	ref := repository + ":" + tag

	if err := b.api.ImageTag(ctx, imageID, ref); err != nil {
		return goerr.Wrap(err, "failed to tag image",
			goerr.V("image_id", imageID),
			goerr.V("ref", ref),
			goerr.T(types.ErrTagPushFailed),
		)
	}

	auth, err := registry.EncodeAuthConfig(b.authConfig())
	if err != nil {
		return goerr.Wrap(err, "failed to encode registry credentials", goerr.T(types.ErrTagPushFailed))
	}

	logger.Info("Pushing image", "ref", ref)

	out, err := b.api.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: auth})
	if err != nil {
		return goerr.Wrap(err, "failed to push image",
			goerr.V("ref", ref),
			goerr.T(types.ErrTagPushFailed),
		)
	}
	defer out.Close()

	if err := jsonmessage.DisplayJSONMessagesStream(out, b.output, 0, false, nil); err != nil {
		return goerr.Wrap(err, "image push failed",
			goerr.V("ref", ref),
			goerr.T(types.ErrTagPushFailed),
		)
	}

	return nil
}
