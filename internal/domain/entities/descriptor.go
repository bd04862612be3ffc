// Package entities defines core domain models and data structures.
package entities

// ConsoleScriptsGroup is the entry-point group that installers turn into executables
const ConsoleScriptsGroup = "console_scripts"

// Descriptor represents a package descriptor: the metadata record a packaging
// tool reads once at install time
type Descriptor struct {
	Name            string
	Version         string
	Description     string
	Author          string
	AuthorEmail     string
	URL             string
	License         string
	LongDescription string
	Packages        []string
	InstallRequires []Requirement
	SetupRequires   []Requirement
	TestsRequire    []Requirement
	EntryPoints     EntryPointTable
}

// RequirementGroup names one of the descriptor's requirement lists
type RequirementGroup string

// Requirement groups declared by a descriptor
const (
	GroupInstall RequirementGroup = "install"
	GroupSetup   RequirementGroup = "setup"
	GroupTests   RequirementGroup = "tests"
)

// RequirementGroups lists every group in declaration order
var RequirementGroups = []RequirementGroup{GroupInstall, GroupSetup, GroupTests}

// Requirements returns the requirement list for a group
func (d *Descriptor) Requirements(group RequirementGroup) []Requirement {
	switch group {
	case GroupInstall:
		return d.InstallRequires
	case GroupSetup:
		return d.SetupRequires
	case GroupTests:
		return d.TestsRequire
	default:
		return nil
	}
}

// ConsoleScripts returns the console_scripts entry points
func (d *Descriptor) ConsoleScripts() []EntryPoint {
	return d.EntryPoints[ConsoleScriptsGroup]
}

// Clone returns a deep copy so callers never share slices with a loaded descriptor
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}

	c := *d
	c.Packages = append([]string(nil), d.Packages...)
	c.InstallRequires = cloneRequirements(d.InstallRequires)
	c.SetupRequires = cloneRequirements(d.SetupRequires)
	c.TestsRequire = cloneRequirements(d.TestsRequire)
	c.EntryPoints = d.EntryPoints.Clone()

	return &c
}

func cloneRequirements(reqs []Requirement) []Requirement {
	if reqs == nil {
		return nil
	}

	out := make([]Requirement, len(reqs))
	for i, r := range reqs {
		out[i] = r.Clone()
	}

	return out
}
