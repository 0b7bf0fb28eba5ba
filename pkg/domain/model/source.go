package model

// SourceTree represents a repository snapshot extracted to local disk
type SourceTree struct {
	TempDir string   // Path to temporary directory, removed after the run
	RootDir string   // Top-level directory of the archive inside TempDir
	Files   []string // List of extracted files
	Size    int64    // Total size in bytes
}
