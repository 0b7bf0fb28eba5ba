package usecase

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docker/docker/pkg/archive"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dockrel/pkg/domain/interfaces"
	"github.com/m-mizutani/dockrel/pkg/domain/model"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

type sourceUseCase struct {
	githubClient interfaces.GitHubClient
}

// NewSource creates a new instance of SourceUseCase
func NewSource(githubClient interfaces.GitHubClient) interfaces.SourceUseCase {
	return &sourceUseCase{
		githubClient: githubClient,
	}
}

// FetchSource downloads the repository tarball and extracts it to a temporary directory
func (uc *sourceUseCase) FetchSource(ctx context.Context, repo model.Repository, ref string) (*model.SourceTree, error) {
	logger := ctxlog.From(ctx)

	logger.Info("Downloading repository",
		"repo", repo.FullName(),
		"ref", ref,
	)

	data, err := uc.githubClient.DownloadTarball(ctx, repo, ref)
	if err != nil {
		return nil, goerr.Wrap(err, "downloading repository failed",
			goerr.V("repo", repo.FullName()),
			goerr.T(types.ErrTagDownloadFailed),
		)
	}

	logger.Info("Downloaded tarball",
		"size_bytes", len(data),
		"repo", repo.FullName(),
	)

	tree, err := uc.extractTarball(ctx, data)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract tarball",
			goerr.V("repo", repo.FullName()),
			goerr.T(types.ErrTagDownloadFailed),
		)
	}

	logger.Info("Extracted tarball to temporary directory",
		"temp_dir", tree.TempDir,
		"root_dir", tree.RootDir,
		"file_count", len(tree.Files),
		"total_size_bytes", tree.Size,
	)

	return tree, nil
}

// extractTarball extracts a gzipped tarball to a new temporary directory.
// GitHub archives hold a single top-level directory, which becomes RootDir.
func (uc *sourceUseCase) extractTarball(ctx context.Context, data []byte) (*model.SourceTree, error) {
	logger := ctxlog.From(ctx)

	tempDir, err := os.MkdirTemp("", "dockrel-source-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create temporary directory")
	}

	tree, err := populateSourceTree(tempDir, data)
	if err != nil {
		if removeErr := os.RemoveAll(tempDir); removeErr != nil {
			logger.Warn("Failed to clean up temporary directory",
				"temp_dir", tempDir,
				"error", removeErr,
			)
		}
		return nil, err
	}

	logger.Debug("Created source tree", "temp_dir", tempDir)
	return tree, nil
}

func populateSourceTree(tempDir string, data []byte) (*model.SourceTree, error) {
	if err := os.Chmod(tempDir, 0700); err != nil {
		return nil, goerr.Wrap(err, "failed to set directory permissions", goerr.V("temp_dir", tempDir))
	}

	// Untar rejects entries escaping tempDir and detects the compression
	if err := archive.Untar(bytes.NewReader(data), tempDir, &archive.TarOptions{NoLchown: true}); err != nil {
		return nil, goerr.Wrap(err, "failed to untar archive")
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read extracted directory", goerr.V("temp_dir", tempDir))
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil, goerr.New("archive must contain exactly one top-level directory",
			goerr.V("entries", len(entries)),
		)
	}

	tree := &model.SourceTree{
		TempDir: tempDir,
		RootDir: filepath.Join(tempDir, entries[0].Name()),
	}

	err = filepath.WalkDir(tree.RootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(tree.RootDir, path)
		if err != nil {
			return err
		}
		tree.Files = append(tree.Files, rel)
		tree.Size += info.Size()
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan extracted files", goerr.V("root_dir", tree.RootDir))
	}

	return tree, nil
}
