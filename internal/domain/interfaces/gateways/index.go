package gateways

import "context"

// PackageIndex answers release questions about published distributions
type PackageIndex interface {
	// LatestVersion returns the highest release that is not yanked. Pre-releases
	// are considered only when includePre is set.
	LatestVersion(ctx context.Context, name string, includePre bool) (string, error)
}
