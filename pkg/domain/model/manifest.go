package model

import (
	"crypto/sha1" // #nosec G505 git object IDs are SHA-1
	"encoding/hex"
	"fmt"
	"regexp"

	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// DefaultManifestPath is the action metadata file of a Docker action
const DefaultManifestPath = "action.yml"

var (
	imageRefPattern  = regexp.MustCompile(`^docker://(.+):([^:/]+)$`)
	imageLinePattern = regexp.MustCompile(`(image:[ \t]*["']?docker://[^\s"']*):[^\s"']*`)
)

// Manifest is the action metadata file that pins the container image the
// action runs, e.g. `image: docker://acme/app:1.2.3` under `runs`.
type Manifest struct {
	Path       string
	Content    []byte
	Repository string  // Image repository, e.g. acme/app
	Version    Version // Version currently referenced
}

type actionMetadata struct {
	Runs struct {
		Image string `yaml:"image"`
	} `yaml:"runs"`
}

// ParseManifest reads the image reference out of the manifest content
func ParseManifest(path string, content []byte) (*Manifest, error) {
	var meta actionMetadata
	if err := yaml.Unmarshal(content, &meta); err != nil {
		return nil, goerr.Wrap(err, "failed to parse manifest YAML",
			goerr.V("path", path),
			goerr.T(types.ErrTagManifestFormat),
		)
	}

	m := imageRefPattern.FindStringSubmatch(meta.Runs.Image)
	if m == nil {
		return nil, goerr.New("invalid manifest format (Docker repository could not be parsed)",
			goerr.V("path", path),
			goerr.V("image", meta.Runs.Image),
			goerr.T(types.ErrTagManifestFormat),
		)
	}

	version, err := ParseVersion(m[2])
	if err != nil {
		return nil, goerr.Wrap(err, "invalid image version in manifest", goerr.V("path", path))
	}

	if !imageLinePattern.Match(content) {
		return nil, goerr.New("manifest has no rewritable image line",
			goerr.V("path", path),
			goerr.T(types.ErrTagManifestFormat),
		)
	}

	return &Manifest{
		Path:       path,
		Content:    content,
		Repository: m[1],
		Version:    version,
	}, nil
}

// Rewrite returns the manifest content with the image version replaced by
// next. All other bytes are left untouched.
func (m *Manifest) Rewrite(next Version) []byte {
	return imageLinePattern.ReplaceAll(m.Content, []byte("${1}:"+next.String()))
}

// BlobSHA returns the git blob object ID of the current content. The
// contents API uses it to reject writes based on a stale file.
func (m *Manifest) BlobSHA() string {
	h := sha1.New() // #nosec G401
	fmt.Fprintf(h, "blob %d\x00", len(m.Content))
	h.Write(m.Content)
	return hex.EncodeToString(h.Sum(nil))
}
