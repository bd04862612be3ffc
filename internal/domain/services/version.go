// Package services implements domain business logic and use cases.
package services

import (
	"cmp"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
)

// pep440Pattern accepts the public version forms found in package metadata.
// Groups: 1 release, 2 pre label, 3 pre number, 4 post label, 5 post number,
// 6 implicit post number, 7 dev label, 8 dev number, 9 local.
var pep440Pattern = regexp.MustCompile(`^v?(\d+(?:\.\d+)*)` +
	`(?:[-_.]?(a|alpha|b|beta|c|rc|pre|preview)[-_.]?(\d*))?` +
	`(?:[-_.]?(post|rev|r)[-_.]?(\d*)|-(\d+))?` +
	`(?:[-_.]?(dev)[-_.]?(\d*))?` +
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

// Version is a parsed package version
type Version struct {
	Raw     string
	Release []int
	sv      *semver.Version

	// post is -1 without a post segment; postDev is -1 unless a dev
	// marker follows the post segment
	post    int
	postDev int
}

// ParseVersion parses a package version. Release segments beyond the third
// are accepted only when they are zero; epochs are rejected.
func ParseVersion(raw string) (*Version, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return nil, errors.Wrap(entities.ErrInvalidVersion, "empty version")
	}
	if strings.Contains(s, "!") {
		return nil, errors.Wrapf(entities.ErrInvalidVersion, "%q: epochs are not supported", raw)
	}

	m := pep440Pattern.FindStringSubmatch(s)
	if m == nil {
		return nil, errors.Wrapf(entities.ErrInvalidVersion, "%q", raw)
	}

	parts := strings.Split(m[1], ".")
	release := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(entities.ErrInvalidVersion, "%q: release segment %q", raw, p)
		}
		release[i] = n
	}

	core := [3]int{}
	for i, n := range release {
		if i < 3 {
			core[i] = n
			continue
		}
		if n != 0 {
			return nil, errors.Wrapf(entities.ErrInvalidVersion, "%q: more than three non-zero release segments", raw)
		}
	}

	text := strconv.Itoa(core[0]) + "." + strconv.Itoa(core[1]) + "." + strconv.Itoa(core[2])

	hasPost := m[4] != "" || m[6] != ""
	post, postDev := -1, -1
	if hasPost {
		n := m[5]
		if m[6] != "" {
			n = m[6]
		}
		post = atoiOrZero(n)
		if m[7] != "" {
			postDev = atoiOrZero(m[8])
		}
	}

	var pre []string
	if m[2] != "" {
		pre = append(pre, preLabel(m[2]), numberOrZero(m[3]))
	}
	if m[7] != "" && !hasPost {
		// "0dev" sorts below "a", "b" and "rc"
		pre = append(pre, "0dev", numberOrZero(m[8]))
	}
	if len(pre) > 0 {
		text += "-" + strings.Join(pre, ".")
	}

	if m[9] != "" {
		text += "+" + strings.NewReplacer("_", "-", ".", "-").Replace(m[9])
	}

	sv, err := semver.StrictNewVersion(text)
	if err != nil {
		return nil, errors.Wrapf(entities.ErrInvalidVersion, "%q: %v", raw, err)
	}

	return &Version{Raw: strings.TrimSpace(raw), Release: release, sv: sv, post: post, postDev: postDev}, nil
}

// MustParseVersion is ParseVersion for constant inputs
func MustParseVersion(raw string) *Version {
	v, err := ParseVersion(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Compare returns -1, 0 or 1. A post release orders above its base and a
// dev marker on a post release orders below that post release. Local labels
// do not take part in ordering.
func (v *Version) Compare(o *Version) int {
	if c := v.sv.Compare(o.sv); c != 0 {
		return c
	}
	if c := cmp.Compare(v.post, o.post); c != 0 {
		return c
	}
	// no dev marker sorts last
	switch {
	case v.postDev == o.postDev:
		return 0
	case v.postDev < 0:
		return 1
	case o.postDev < 0:
		return -1
	}
	return cmp.Compare(v.postDev, o.postDev)
}

// IsPrerelease reports whether the version carries a pre-release or dev label
func (v *Version) IsPrerelease() bool {
	return v.sv.Prerelease() != "" || v.postDev >= 0
}

// String returns the version as written
func (v *Version) String() string {
	return v.Raw
}

// hasReleasePrefix reports whether the release segments start with prefix;
// missing segments count as zero.
func (v *Version) hasReleasePrefix(prefix []int) bool {
	for i, want := range prefix {
		got := 0
		if i < len(v.Release) {
			got = v.Release[i]
		}
		if got != want {
			return false
		}
	}
	return true
}

func preLabel(label string) string {
	switch label {
	case "alpha":
		return "a"
	case "beta":
		return "b"
	case "c", "pre", "preview":
		return "rc"
	default:
		return label
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func numberOrZero(s string) string {
	if s == "" {
		return "0"
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return "0"
	}
	return strconv.Itoa(n)
}
