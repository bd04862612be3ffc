package services

import (
	"regexp"
	"strings"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
)

var (
	namePattern      = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?`)
	extraPattern     = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)
	normalizePattern = regexp.MustCompile(`[-_.]+`)

	// Longest operators first so "===" is not read as "==".
	operators = []entities.Operator{
		entities.OpArbitrary,
		entities.OpEqual,
		entities.OpNotEqual,
		entities.OpCompatible,
		entities.OpLessEq,
		entities.OpGreaterEq,
		entities.OpLess,
		entities.OpGreater,
	}
)

// NormalizeName returns the comparable form of a distribution name
func NormalizeName(name string) string {
	return strings.ToLower(normalizePattern.ReplaceAllString(strings.TrimSpace(name), "-"))
}

// ParseRequirement parses a dependency declaration such as
// "numpy==1.12", "requests[security]>=2.8.1,<3" or "six; python_version<'3'"
func ParseRequirement(raw string) (entities.Requirement, error) {
	req := entities.Requirement{Raw: raw}

	s := strings.TrimSpace(raw)
	if s == "" {
		return req, errors.Wrap(entities.ErrInvalidRequirement, "empty requirement")
	}

	// Everything after the first ";" is the environment marker.
	if i := strings.Index(s, ";"); i >= 0 {
		req.Marker = strings.TrimSpace(s[i+1:])
		s = strings.TrimSpace(s[:i])
		if req.Marker == "" {
			return req, errors.Wrapf(entities.ErrInvalidRequirement, "%q: empty marker", raw)
		}
	}

	name := namePattern.FindString(s)
	if name == "" {
		return req, errors.Wrapf(entities.ErrInvalidRequirement, "%q: invalid name", raw)
	}
	req.Name = name
	s = strings.TrimSpace(s[len(name):])

	if strings.HasPrefix(s, "[") {
		end := strings.Index(s, "]")
		if end < 0 {
			return req, errors.Wrapf(entities.ErrInvalidRequirement, "%q: unterminated extras", raw)
		}
		for _, extra := range strings.Split(s[1:end], ",") {
			extra = strings.TrimSpace(extra)
			if extra == "" {
				continue
			}
			if !extraPattern.MatchString(extra) {
				return req, errors.Wrapf(entities.ErrInvalidRequirement, "%q: invalid extra %q", raw, extra)
			}
			req.Extras = append(req.Extras, extra)
		}
		s = strings.TrimSpace(s[end+1:])
	}

	if strings.HasPrefix(s, "@") {
		req.URL = strings.TrimSpace(s[1:])
		if req.URL == "" {
			return req, errors.Wrapf(entities.ErrInvalidRequirement, "%q: empty URL", raw)
		}
		return req, nil
	}

	if strings.HasPrefix(s, "(") {
		if !strings.HasSuffix(s, ")") {
			return req, errors.Wrapf(entities.ErrInvalidRequirement, "%q: unbalanced parentheses", raw)
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	if s == "" {
		return req, nil
	}

	for _, clause := range strings.Split(s, ",") {
		spec, err := ParseSpecifier(clause)
		if err != nil {
			return req, errors.Wrapf(err, "%q", raw)
		}
		req.Specifiers = append(req.Specifiers, spec)
	}

	return req, nil
}

// ParseRequirements parses a list of requirement strings, failing on the first bad one
func ParseRequirements(raws []string) ([]entities.Requirement, error) {
	if len(raws) == 0 {
		return nil, nil
	}

	reqs := make([]entities.Requirement, 0, len(raws))
	for _, raw := range raws {
		req, err := ParseRequirement(raw)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// ParseSpecifier parses one version clause such as ">=1.0" or "==1.*"
func ParseSpecifier(clause string) (entities.Specifier, error) {
	c := strings.TrimSpace(clause)

	for _, op := range operators {
		if !strings.HasPrefix(c, string(op)) {
			continue
		}

		version := strings.TrimSpace(c[len(op):])
		if version == "" {
			return entities.Specifier{}, errors.Wrapf(entities.ErrInvalidRequirement, "clause %q: missing version", clause)
		}

		spec := entities.Specifier{Operator: op, Version: version}
		if err := checkSpecifier(spec); err != nil {
			return entities.Specifier{}, errors.Wrapf(err, "clause %q", clause)
		}
		return spec, nil
	}

	return entities.Specifier{}, errors.Wrapf(entities.ErrInvalidRequirement, "clause %q: unknown operator", clause)
}

func checkSpecifier(spec entities.Specifier) error {
	if spec.Operator == entities.OpArbitrary {
		return nil
	}

	version := spec.Version
	if strings.HasSuffix(version, ".*") {
		if spec.Operator != entities.OpEqual && spec.Operator != entities.OpNotEqual {
			return errors.Wrapf(entities.ErrInvalidRequirement, "wildcard not allowed with %s", spec.Operator)
		}
		version = strings.TrimSuffix(version, ".*")
	}

	v, err := ParseVersion(version)
	if err != nil {
		return err
	}

	if spec.Operator == entities.OpCompatible && len(v.Release) < 2 {
		return errors.Wrap(entities.ErrInvalidRequirement, "~= needs at least two release segments")
	}
	return nil
}

// SpecifierMatches reports whether version satisfies a single clause
func SpecifierMatches(spec entities.Specifier, version *Version) (bool, error) {
	if spec.Operator == entities.OpArbitrary {
		return strings.EqualFold(spec.Version, version.Raw), nil
	}

	if prefix, ok := strings.CutSuffix(spec.Version, ".*"); ok {
		want, err := ParseVersion(prefix)
		if err != nil {
			return false, err
		}
		match := version.hasReleasePrefix(want.Release)
		if spec.Operator == entities.OpNotEqual {
			return !match, nil
		}
		return match, nil
	}

	want, err := ParseVersion(spec.Version)
	if err != nil {
		return false, err
	}
	cmp := version.Compare(want)

	switch spec.Operator {
	case entities.OpEqual:
		return cmp == 0, nil
	case entities.OpNotEqual:
		return cmp != 0, nil
	case entities.OpLessEq:
		return cmp <= 0, nil
	case entities.OpGreaterEq:
		return cmp >= 0, nil
	case entities.OpLess:
		return cmp < 0, nil
	case entities.OpGreater:
		return cmp > 0, nil
	case entities.OpCompatible:
		return cmp >= 0 && version.hasReleasePrefix(want.Release[:len(want.Release)-1]), nil
	default:
		return false, errors.Wrapf(entities.ErrInvalidRequirement, "unknown operator %q", spec.Operator)
	}
}

// Satisfies reports whether an installed version meets every clause of req.
// A requirement without clauses accepts any version.
func Satisfies(req entities.Requirement, version string) (bool, error) {
	if len(req.Specifiers) == 0 {
		return true, nil
	}

	v, err := ParseVersion(version)
	if err != nil {
		return false, err
	}

	for _, spec := range req.Specifiers {
		ok, err := SpecifierMatches(spec, v)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
