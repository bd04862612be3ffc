package orchestrators

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces"
	"github.com/codekansas/soc/internal/domain/interfaces/gateways"
	"github.com/codekansas/soc/internal/domain/services"
)

// OutdatedOptions configures the release comparison
type OutdatedOptions struct {
	Groups     []entities.RequirementGroup // defaults to install requirements
	IncludePre bool
}

// OutdatedCheck compares one requirement with the newest published release
type OutdatedCheck struct {
	Group       entities.RequirementGroup
	Requirement entities.Requirement
	Installed   string // "" without an environment or when not installed
	Latest      string // "" when the index does not know the project
	Allowed     bool   // the requirement's specifiers accept Latest
	Behind      bool   // Installed is older than Latest
}

// OutdatedResult contains the result of a release comparison
type OutdatedResult struct {
	Descriptor *entities.Descriptor
	Checks     []OutdatedCheck
}

// OutdatedOrchestrator compares requirements against the package index
type OutdatedOrchestrator struct {
	index gateways.PackageIndex
	env   gateways.EnvironmentGateway
	log   interfaces.Logger
}

// NewOutdatedOrchestrator creates a new outdated orchestrator; env may be nil
func NewOutdatedOrchestrator(index gateways.PackageIndex, env gateways.EnvironmentGateway, log interfaces.Logger) *OutdatedOrchestrator {
	if log == nil {
		log = &interfaces.NoOpLogger{}
	}
	return &OutdatedOrchestrator{index: index, env: env, log: log}
}

// Outdated looks up the latest release of every requirement in the selected groups
func (o *OutdatedOrchestrator) Outdated(ctx context.Context, d *entities.Descriptor, opts OutdatedOptions) (*OutdatedResult, error) {
	result := &OutdatedResult{Descriptor: d}

	groups := opts.Groups
	if len(groups) == 0 {
		groups = []entities.RequirementGroup{entities.GroupInstall}
	}

	for _, group := range groups {
		for _, req := range d.Requirements(group) {
			check := OutdatedCheck{Group: group, Requirement: req}
			log := o.log.With(interfaces.F("requirement", req.Name))

			latest, err := o.index.LatestVersion(ctx, req.Name, opts.IncludePre)
			switch {
			case errors.Is(err, entities.ErrNotFound):
				log.Warn("requirement not on the package index")
				result.Checks = append(result.Checks, check)
				continue
			case err != nil:
				return nil, errors.Wrapf(err, "latest release of %s", req.Name)
			}
			check.Latest = latest

			// Versions the parser rejects are never considered allowed
			if ok, err := services.Satisfies(req, latest); err == nil {
				check.Allowed = ok
			}

			if o.env != nil {
				dist, err := o.env.FindDistribution(ctx, req.Name)
				switch {
				case err == nil:
					check.Installed = dist.Version
					check.Behind = older(dist.Version, latest)
				case !errors.Is(err, entities.ErrNotFound):
					return nil, errors.Wrapf(err, "find %s", req.Name)
				}
			}

			log.Debug("release compared",
				interfaces.F("latest", latest),
				interfaces.F("allowed", check.Allowed),
				interfaces.F("installed", check.Installed))
			result.Checks = append(result.Checks, check)
		}
	}

	return result, nil
}

func older(installed, latest string) bool {
	a, err := services.ParseVersion(installed)
	if err != nil {
		return false
	}
	b, err := services.ParseVersion(latest)
	if err != nil {
		return false
	}
	return a.Compare(b) < 0
}

// Held returns the requirements whose specifiers exclude the latest release
func (r *OutdatedResult) Held() []OutdatedCheck {
	var out []OutdatedCheck
	for _, c := range r.Checks {
		if c.Latest != "" && !c.Allowed {
			out = append(out, c)
		}
	}
	return out
}

// Summary returns a human-readable summary of the comparison
func (r *OutdatedResult) Summary() string {
	var b strings.Builder

	behind, unknown := 0, 0
	for _, c := range r.Checks {
		if c.Behind {
			behind++
		}
		if c.Latest == "" {
			unknown++
		}
	}

	fmt.Fprintf(&b, "Compared %d requirements with the package index\n", len(r.Checks))
	fmt.Fprintf(&b, "%d held back by their specifiers", len(r.Held()))
	if behind > 0 {
		fmt.Fprintf(&b, ", %d installed behind the latest release", behind)
	}
	if unknown > 0 {
		fmt.Fprintf(&b, ", %d not on the index", unknown)
	}
	return b.String()
}
