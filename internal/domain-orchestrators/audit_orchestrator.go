package orchestrators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces"
	"github.com/codekansas/soc/internal/domain/interfaces/gateways"
	"github.com/codekansas/soc/internal/domain/services"
)

// Version sources for an audited requirement
const (
	SourceInstalled = "installed"
	SourcePinned    = "pinned"
)

// AuditOptions configures a vulnerability audit
type AuditOptions struct {
	Groups      []entities.RequirementGroup // defaults to install requirements
	MinSeverity string                      // advisories below this are dropped
}

// AuditFinding holds the advisories reported for one requirement
type AuditFinding struct {
	Group       entities.RequirementGroup
	Requirement entities.Requirement
	Version     string
	Source      string // SourceInstalled or SourcePinned
	Advisories  []entities.Advisory
}

// AuditResult contains the result of a vulnerability audit
type AuditResult struct {
	Descriptor *entities.Descriptor
	Findings   []AuditFinding
	Skipped    []string // requirements without a resolvable version
	Duration   time.Duration
}

// AuditOrchestrator looks up published advisories for a descriptor's requirements
type AuditOrchestrator struct {
	advisories gateways.AdvisoryGateway
	env        gateways.EnvironmentGateway
	log        interfaces.Logger
}

// NewAuditOrchestrator creates a new audit orchestrator. env may be nil, in
// which case only pinned requirements are audited.
func NewAuditOrchestrator(
	advisories gateways.AdvisoryGateway,
	env gateways.EnvironmentGateway,
	log interfaces.Logger,
) *AuditOrchestrator {
	if log == nil {
		log = &interfaces.NoOpLogger{}
	}
	return &AuditOrchestrator{advisories: advisories, env: env, log: log}
}

// Audit queries advisories for every requirement of d with a known version
func (o *AuditOrchestrator) Audit(ctx context.Context, d *entities.Descriptor, opts AuditOptions) (*AuditResult, error) {
	start := time.Now()
	result := &AuditResult{Descriptor: d}

	groups := opts.Groups
	if len(groups) == 0 {
		groups = []entities.RequirementGroup{entities.GroupInstall}
	}

	for _, group := range groups {
		for _, req := range d.Requirements(group) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			log := o.log.With(interfaces.F("requirement", req.Name))

			// Step 1: resolve the version to audit
			version, source, err := o.resolveVersion(ctx, req)
			if err != nil {
				return nil, err
			}
			if version == "" {
				log.Debug("no version to audit")
				result.Skipped = append(result.Skipped, req.Name)
				continue
			}

			// Step 2: query and filter advisories
			advs, err := o.advisories.QueryAdvisories(ctx, req.Name, version)
			if err != nil {
				return nil, errors.Wrapf(err, "query advisories for %s %s", req.Name, version)
			}
			advs = services.FilterAdvisories(advs, opts.MinSeverity)

			log.Debug("requirement audited",
				interfaces.F("version", version),
				interfaces.F("source", source),
				interfaces.F("advisories", len(advs)))

			result.Findings = append(result.Findings, AuditFinding{
				Group:       group,
				Requirement: req,
				Version:     version,
				Source:      source,
				Advisories:  advs,
			})
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// resolveVersion prefers the installed version and falls back to a pin
func (o *AuditOrchestrator) resolveVersion(ctx context.Context, req entities.Requirement) (string, string, error) {
	if o.env != nil {
		dist, err := o.env.FindDistribution(ctx, req.Name)
		switch {
		case err == nil:
			return dist.Version, SourceInstalled, nil
		case !errors.Is(err, entities.ErrNotFound):
			return "", "", errors.Wrapf(err, "find %s", req.Name)
		}
	}

	for _, spec := range req.Specifiers {
		if spec.IsPin() {
			return spec.Version, SourcePinned, nil
		}
	}
	return "", "", nil
}

// Vulnerable returns the findings that carry at least one advisory
func (r *AuditResult) Vulnerable() []AuditFinding {
	var out []AuditFinding
	for _, f := range r.Findings {
		if len(f.Advisories) > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Ok reports whether no advisories were found
func (r *AuditResult) Ok() bool {
	return len(r.Vulnerable()) == 0
}

// Summary returns a human-readable summary of the audit
func (r *AuditResult) Summary() string {
	var b strings.Builder

	total := 0
	var all []entities.Advisory
	for _, f := range r.Vulnerable() {
		total += len(f.Advisories)
		all = append(all, f.Advisories...)
	}

	fmt.Fprintf(&b, "Audited %d requirements", len(r.Findings))
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, " (%d skipped: %s)", len(r.Skipped), strings.Join(r.Skipped, ", "))
	}
	b.WriteString("\n")

	if total == 0 {
		b.WriteString("No known vulnerabilities\n")
	} else {
		fmt.Fprintf(&b, "%d advisories in %d requirements, highest severity %s\n",
			total, len(r.Vulnerable()), services.HighestSeverity(all))
	}

	fmt.Fprintf(&b, "Took %s", r.Duration.Round(time.Millisecond))
	return b.String()
}
