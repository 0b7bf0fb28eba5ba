package model

import "fmt"

// LatestTag is the floating tag that always follows the newest release
const LatestTag = "latest"

// ReleasePlan holds every name derived from the next version
type ReleasePlan struct {
	ImageRepository string
	Current         Version
	Next            Version
	Changelog       string
}

// NewReleasePlan computes the next release from the manifest and request
func NewReleasePlan(manifest *Manifest, req *ReleaseRequest) *ReleasePlan {
	return &ReleasePlan{
		ImageRepository: manifest.Repository,
		Current:         manifest.Version,
		Next:            manifest.Version.Bump(req.Bump),
		Changelog:       req.Changelog,
	}
}

// ReleaseTag is the git tag and name of the release, e.g. v1.2.3
func (p *ReleasePlan) ReleaseTag() string {
	return "v" + p.Next.String()
}

// ImageTags lists the registry tags the image is pushed under
func (p *ReleasePlan) ImageTags() []string {
	return []string{
		fmt.Sprintf("%d.%d.%d", p.Next.Major(), p.Next.Minor(), p.Next.Patch()),
		fmt.Sprintf("%d.%d", p.Next.Major(), p.Next.Minor()),
		fmt.Sprintf("%d", p.Next.Major()),
		LatestTag,
	}
}

// FloatingTags lists the git tags recreated on every release
func (p *ReleasePlan) FloatingTags() []string {
	return []string{
		fmt.Sprintf("v%d", p.Next.Major()),
		fmt.Sprintf("v%d.%d", p.Next.Major(), p.Next.Minor()),
		LatestTag,
	}
}
