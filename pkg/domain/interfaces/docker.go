package interfaces

import "context"

// ImageBuilder builds container images and publishes them to a registry
type ImageBuilder interface {
	// Login authenticates against the registry with the configured credentials
	Login(ctx context.Context) error

	// Build builds one image from the directory and returns its image ID.
	// Failures are tagged types.ErrTagBuildFailed.
	Build(ctx context.Context, dir string) (string, error)

	// Publish tags imageID as repository:tag and pushes it.
	// Failures are tagged types.ErrTagPushFailed.
	Publish(ctx context.Context, imageID, repository, tag string) error
}
