package model

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/m-mizutani/dockrel/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Version is a major.minor.patch release version
type Version struct {
	sv semver.Version
}

// ParseVersion parses a major.minor.patch version string. Missing minor or
// patch components are padded with zero, so "2" and "2.0" both parse as 2.0.0.
func ParseVersion(s string) (Version, error) {
	padded := s
	for strings.Count(padded, ".") < 2 {
		padded += ".0"
	}

	sv, err := semver.StrictNewVersion(padded)
	if err != nil {
		return Version{}, goerr.Wrap(err, "invalid version",
			goerr.V("version", s),
			goerr.T(types.ErrTagManifestFormat),
		)
	}
	if sv.Prerelease() != "" || sv.Metadata() != "" {
		return Version{}, goerr.New("prerelease and build metadata are not supported",
			goerr.V("version", s),
			goerr.T(types.ErrTagManifestFormat),
		)
	}
	return Version{sv: *sv}, nil
}

// NewVersion builds a version from its components
func NewVersion(major, minor, patch uint64) Version {
	return Version{sv: *semver.New(major, minor, patch, "", "")}
}

// Bump returns the next version for the given bump kind
func (v Version) Bump(kind BumpKind) Version {
	switch kind {
	case BumpMajor:
		return NewVersion(v.Major()+1, 0, 0)
	case BumpMinor:
		return NewVersion(v.Major(), v.Minor()+1, 0)
	default:
		return NewVersion(v.Major(), v.Minor(), v.Patch()+1)
	}
}

func (v Version) Major() uint64 { return v.sv.Major() }
func (v Version) Minor() uint64 { return v.sv.Minor() }
func (v Version) Patch() uint64 { return v.sv.Patch() }

// String returns the version without the "v" prefix
func (v Version) String() string {
	return v.sv.String()
}

// Equal reports whether both versions have the same precedence
func (v Version) Equal(other Version) bool {
	return v.sv.Equal(&other.sv)
}
