package services

import (
	"strings"

	"github.com/codekansas/soc/internal/domain/entities"
)

var requirementFields = map[entities.RequirementGroup]string{
	entities.GroupInstall: "install_requires",
	entities.GroupSetup:   "setup_requires",
	entities.GroupTests:   "tests_require",
}

// ValidateDescriptor applies the descriptor rules. Pinned requirements are
// reported as warnings only.
func ValidateDescriptor(d *entities.Descriptor) *entities.ValidationReport {
	report := &entities.ValidationReport{}

	if d == nil {
		report.Add(entities.SeverityError, "descriptor", "descriptor is empty")
		return report
	}

	if strings.TrimSpace(d.Name) == "" {
		report.Add(entities.SeverityError, "name", "name is required")
	} else if namePattern.FindString(d.Name) != d.Name {
		report.Add(entities.SeverityError, "name", "%q is not a valid distribution name", d.Name)
	}

	if strings.TrimSpace(d.Version) == "" {
		report.Add(entities.SeverityError, "version", "version is required")
	} else if _, err := ParseVersion(d.Version); err != nil {
		report.Add(entities.SeverityError, "version", "%v", err)
	}

	if strings.TrimSpace(d.License) == "" {
		report.Add(entities.SeverityError, "license", "license is required")
	}

	if d.Author != "" && d.AuthorEmail == "" {
		report.Add(entities.SeverityWarning, "author_email", "author has no email address")
	}
	if d.AuthorEmail != "" && !strings.Contains(d.AuthorEmail, "@") {
		report.Add(entities.SeverityError, "author_email", "%q is not an email address", d.AuthorEmail)
	}

	if strings.TrimSpace(d.LongDescription) == "" {
		report.Add(entities.SeverityWarning, "long_description", "long description is empty")
	}

	packages := make(map[string]bool, len(d.Packages))
	for _, p := range d.Packages {
		if !dottedPattern.MatchString(p) {
			report.Add(entities.SeverityError, "packages", "%q is not an importable package name", p)
		}
		packages[p] = true
	}

	for _, group := range entities.RequirementGroups {
		validateRequirements(report, group, d.Requirements(group))
	}

	for _, group := range d.EntryPoints.Groups() {
		field := "entry_points." + group
		for _, ep := range d.EntryPoints[group] {
			if strings.ContainsAny(ep.Name, " \t") {
				report.Add(entities.SeverityError, field, "%q contains whitespace", ep.Name)
			}
			if group == entities.ConsoleScriptsGroup && ep.Attr == "" {
				report.Add(entities.SeverityError, field, "%q does not name a callable", ep.Name)
			}
			if len(packages) > 0 && !packages[ep.TopLevelPackage()] {
				report.Add(entities.SeverityError, field, "%q refers to module %s outside the declared packages", ep.Name, ep.Module)
			}
		}
	}

	if len(d.ConsoleScripts()) == 0 {
		report.Add(entities.SeverityWarning, "entry_points", "no console scripts declared")
	}

	return report
}

func validateRequirements(report *entities.ValidationReport, group entities.RequirementGroup, reqs []entities.Requirement) {
	field := requirementFields[group]
	seen := make(map[string]bool, len(reqs))

	for _, req := range reqs {
		key := NormalizeName(req.Name)
		if seen[key] {
			report.Add(entities.SeverityError, field, "%s is declared more than once", req.Name)
		}
		seen[key] = true

		for _, spec := range req.Specifiers {
			if err := checkSpecifier(spec); err != nil {
				report.Add(entities.SeverityError, field, "%s: %v", req.Name, err)
			}
		}

		if req.IsPinned() {
			report.Add(entities.SeverityWarning, field, "%s is pinned (%s)", req.Name, req.String())
		}
	}
}
