// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces"
	"github.com/codekansas/soc/internal/domain/interfaces/gateways"
	"github.com/codekansas/soc/internal/domain/services"
)

// RequirementStatus classifies one requirement against the installed environment
type RequirementStatus string

// Requirement statuses
const (
	StatusSatisfied       RequirementStatus = "satisfied"
	StatusMissing         RequirementStatus = "missing"
	StatusVersionConflict RequirementStatus = "version_conflict"
	StatusInvalidVersion  RequirementStatus = "invalid_version"
)

// ProgressReporter receives RECORD verification progress
type ProgressReporter interface {
	Begin(total int)
	Advance(distribution string)
	Done()
}

// CheckOptions selects which parts of the installation check run
type CheckOptions struct {
	Groups        []entities.RequirementGroup // defaults to install requirements
	VerifyRecords bool
	CheckScripts  bool
	Progress      ProgressReporter
}

// RequirementCheck is the outcome for a single requirement
type RequirementCheck struct {
	Group       entities.RequirementGroup
	Requirement entities.Requirement
	Installed   string // installed version, "" when missing
	Status      RequirementStatus
	Detail      string
}

// RecordCheck is the RECORD verification outcome for one distribution
type RecordCheck struct {
	Distribution string
	Files        int
	Bytes        int64
	Mismatches   []gateways.RecordMismatch
}

// ScriptCheck is the lookup outcome for one console script
type ScriptCheck struct {
	Name      string
	Reference string
	Path      string
	Err       error
}

// CheckResult contains the result of an installation check
type CheckResult struct {
	Descriptor   *entities.Descriptor
	Self         *RequirementCheck
	Requirements []RequirementCheck
	Records      []RecordCheck
	Scripts      []ScriptCheck
	Duration     time.Duration
}

// CheckOrchestrator checks that a descriptor's requirements and console
// scripts are present in an installed environment
type CheckOrchestrator struct {
	env      gateways.EnvironmentGateway
	verifier gateways.RecordVerifier
	scripts  gateways.ScriptLocator
	log      interfaces.Logger
}

// NewCheckOrchestrator creates a new check orchestrator
func NewCheckOrchestrator(
	env gateways.EnvironmentGateway,
	verifier gateways.RecordVerifier,
	scripts gateways.ScriptLocator,
	log interfaces.Logger,
) *CheckOrchestrator {
	if log == nil {
		log = &interfaces.NoOpLogger{}
	}
	return &CheckOrchestrator{env: env, verifier: verifier, scripts: scripts, log: log}
}

// Check runs the installation check for d
func (o *CheckOrchestrator) Check(ctx context.Context, d *entities.Descriptor, opts CheckOptions) (*CheckResult, error) {
	start := time.Now()
	result := &CheckResult{Descriptor: d}

	groups := opts.Groups
	if len(groups) == 0 {
		groups = []entities.RequirementGroup{entities.GroupInstall}
	}

	// Step 1: the distribution itself, pinned to the declared version
	self := entities.Requirement{
		Name:       d.Name,
		Specifiers: []entities.Specifier{{Operator: entities.OpEqual, Version: d.Version}},
	}
	check, dist, err := o.checkRequirement(ctx, entities.GroupInstall, self)
	if err != nil {
		return nil, err
	}
	result.Self = &check

	verify := make([]*entities.Distribution, 0)
	if dist != nil {
		verify = append(verify, dist)
	}

	// Step 2: declared requirements
	for _, group := range groups {
		for _, req := range d.Requirements(group) {
			check, dist, err := o.checkRequirement(ctx, group, req)
			if err != nil {
				return nil, err
			}
			result.Requirements = append(result.Requirements, check)
			if dist != nil {
				verify = append(verify, dist)
			}
		}
	}

	// Step 3: RECORD verification of every distribution found
	if opts.VerifyRecords {
		records, err := o.verifyRecords(ctx, verify, opts.Progress)
		if err != nil {
			return nil, err
		}
		result.Records = records
	}

	// Step 4: console scripts
	if opts.CheckScripts {
		for _, ep := range d.ConsoleScripts() {
			sc := ScriptCheck{Name: ep.Name, Reference: ep.Reference()}
			sc.Path, sc.Err = o.scripts.LocateScript(ep.Name)
			if sc.Err != nil {
				o.log.Warn("console script not found", interfaces.F("script", ep.Name), interfaces.F("error", sc.Err.Error()))
			}
			result.Scripts = append(result.Scripts, sc)
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (o *CheckOrchestrator) checkRequirement(
	ctx context.Context,
	group entities.RequirementGroup,
	req entities.Requirement,
) (RequirementCheck, *entities.Distribution, error) {
	check := RequirementCheck{Group: group, Requirement: req}
	log := o.log.With(interfaces.F("requirement", req.Name))

	dist, err := o.env.FindDistribution(ctx, req.Name)
	switch {
	case errors.Is(err, entities.ErrNotFound):
		check.Status = StatusMissing
		log.Debug("requirement missing")
		return check, nil, nil
	case err != nil:
		return check, nil, errors.Wrapf(err, "find %s", req.Name)
	}

	check.Installed = dist.Version
	ok, err := services.Satisfies(req, dist.Version)
	switch {
	case err != nil:
		check.Status = StatusInvalidVersion
		check.Detail = err.Error()
	case ok:
		check.Status = StatusSatisfied
	default:
		check.Status = StatusVersionConflict
		check.Detail = fmt.Sprintf("%s installed, %s required", dist.Version, req.String())
	}

	log.Debug("requirement checked", interfaces.F("installed", dist.Version), interfaces.F("status", string(check.Status)))
	return check, dist, nil
}

func (o *CheckOrchestrator) verifyRecords(ctx context.Context, dists []*entities.Distribution, progress ProgressReporter) ([]RecordCheck, error) {
	if progress != nil {
		progress.Begin(len(dists))
		defer progress.Done()
	}

	records := make([]RecordCheck, 0, len(dists))
	for _, dist := range dists {
		rc := RecordCheck{Distribution: dist.Name}
		for _, entry := range dist.Record {
			if entry.HasHash() {
				rc.Files++
				if entry.Size > 0 {
					rc.Bytes += entry.Size
				}
			}
		}

		mismatches, err := o.verifier.VerifyRecord(ctx, dist)
		if err != nil {
			return nil, errors.Wrapf(err, "verify %s", dist.Name)
		}
		rc.Mismatches = mismatches
		if len(mismatches) > 0 {
			o.log.Warn("RECORD mismatch", interfaces.F("distribution", dist.Name), interfaces.F("files", len(mismatches)))
		}

		records = append(records, rc)
		if progress != nil {
			progress.Advance(dist.Name)
		}
	}
	return records, nil
}

// Ok reports whether every check passed
func (r *CheckResult) Ok() bool {
	if r.Self != nil && r.Self.Status != StatusSatisfied {
		return false
	}
	for _, c := range r.Requirements {
		if c.Status != StatusSatisfied {
			return false
		}
	}
	for _, rc := range r.Records {
		if len(rc.Mismatches) > 0 {
			return false
		}
	}
	for _, sc := range r.Scripts {
		if sc.Err != nil {
			return false
		}
	}
	return true
}

// Summary returns a human-readable summary of the check
func (r *CheckResult) Summary() string {
	var b strings.Builder

	satisfied := 0
	for _, c := range r.Requirements {
		if c.Status == StatusSatisfied {
			satisfied++
		}
	}

	name := ""
	if r.Descriptor != nil {
		name = r.Descriptor.Name + " " + r.Descriptor.Version
	}
	if r.Ok() {
		fmt.Fprintf(&b, "Installation of %s is complete\n", name)
	} else {
		fmt.Fprintf(&b, "Installation of %s is incomplete\n", name)
	}

	if r.Self != nil {
		fmt.Fprintf(&b, "Distribution: %s\n", r.Self.Status)
	}
	fmt.Fprintf(&b, "Requirements: %d/%d satisfied\n", satisfied, len(r.Requirements))

	if len(r.Records) > 0 {
		files, mismatched := 0, 0
		var size int64
		for _, rc := range r.Records {
			files += rc.Files
			size += rc.Bytes
			mismatched += len(rc.Mismatches)
		}
		//nolint:gosec // G115: size is a sum of non-negative RECORD sizes
		fmt.Fprintf(&b, "Records: %d files (%s) verified, %d mismatched\n", files, humanize.Bytes(uint64(size)), mismatched)
	}

	if len(r.Scripts) > 0 {
		found := 0
		for _, sc := range r.Scripts {
			if sc.Err == nil {
				found++
			}
		}
		fmt.Fprintf(&b, "Console scripts: %d/%d on path\n", found, len(r.Scripts))
	}

	fmt.Fprintf(&b, "Took %s", r.Duration.Round(time.Millisecond))
	return b.String()
}
