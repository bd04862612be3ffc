// Package pyproject reads and writes the pyproject.toml form of a package descriptor.
package pyproject

import (
	"bytes"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/services"
)

// DefaultBuildBackend is the build backend written into [build-system]
const DefaultBuildBackend = "setuptools.build_meta"

// defaultBuildRequires are always present in [build-system].requires
var defaultBuildRequires = []string{"setuptools", "wheel"}

// testExtra is the optional-dependencies key that carries tests_require
const testExtra = "test"

// Pyproject is the subset of pyproject.toml a descriptor maps onto.
// https://packaging.python.org/en/latest/specifications/declaring-project-metadata/
type Pyproject struct {
	BuildSystem *BuildSystem   `toml:"build-system,omitempty"`
	Project     *Project       `toml:"project,omitempty"`
	Tool        map[string]any `toml:"tool,omitempty"`
}

// BuildSystem is the [build-system] table
type BuildSystem struct {
	Requires     []string `toml:"requires,omitempty"`
	BuildBackend string   `toml:"build-backend,omitempty"`
}

// Project is the [project] table
type Project struct {
	Name                 string                       `toml:"name"`
	Version              string                       `toml:"version,omitempty"`
	Description          string                       `toml:"description,omitempty"`
	Readme               *Readme                      `toml:"readme,omitempty"`
	License              *License                     `toml:"license,omitempty"`
	Authors              []Contact                    `toml:"authors,omitempty"`
	Dependencies         []string                     `toml:"dependencies,omitempty"`
	OptionalDependencies map[string][]string          `toml:"optional-dependencies,omitempty"`
	URLs                 map[string]string            `toml:"urls,omitempty"`
	Scripts              map[string]string            `toml:"scripts,omitempty"`
	EntryPoints          map[string]map[string]string `toml:"entry-points,omitempty"`
}

// Readme carries inline README text
type Readme struct {
	Text        string `toml:"text"`
	ContentType string `toml:"content-type"`
}

// License populates either File or Text, never both
type License struct {
	File string `toml:"file,omitempty"`
	Text string `toml:"text,omitempty"`
}

// Contact is an author or maintainer
type Contact struct {
	Name  string `toml:"name,omitempty"`
	Email string `toml:"email,omitempty"`
}

// Encode renders the descriptor as pyproject.toml. setup_requires become
// build-system requirements; tests_require becomes the "test" extra.
func Encode(d *entities.Descriptor) ([]byte, error) {
	doc := Pyproject{
		BuildSystem: &BuildSystem{
			Requires:     buildRequires(d.SetupRequires),
			BuildBackend: DefaultBuildBackend,
		},
		Project: &Project{
			Name:         d.Name,
			Version:      d.Version,
			Description:  d.Description,
			Dependencies: requirementStrings(d.InstallRequires),
		},
	}

	p := doc.Project
	if d.LongDescription != "" {
		p.Readme = &Readme{Text: d.LongDescription, ContentType: "text/plain"}
	}
	if d.License != "" {
		p.License = &License{Text: d.License}
	}
	if d.Author != "" || d.AuthorEmail != "" {
		p.Authors = []Contact{{Name: d.Author, Email: d.AuthorEmail}}
	}
	if d.URL != "" {
		p.URLs = map[string]string{"Homepage": d.URL}
	}
	if len(d.TestsRequire) > 0 {
		p.OptionalDependencies = map[string][]string{testExtra: requirementStrings(d.TestsRequire)}
	}
	if len(d.Packages) > 0 {
		doc.Tool = map[string]any{
			"setuptools": map[string]any{"packages": d.Packages},
		}
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to encode pyproject.toml")
	}
	if err := writeEntryPoints(&buf, d.EntryPoints); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeEntryPoints appends [project.scripts] and [project.entry-points.*]
// tables. The encoder sorts map keys, so entries are written one at a time to
// keep their declared order.
func writeEntryPoints(buf *bytes.Buffer, table entities.EntryPointTable) error {
	for _, group := range table.Groups() {
		header := "project.scripts"
		if group != entities.ConsoleScriptsGroup {
			key, err := tomlKey(group)
			if err != nil {
				return err
			}
			header = "project.entry-points." + key
		}
		buf.WriteString("\n[" + header + "]\n")

		for _, ep := range table[group] {
			if err := toml.NewEncoder(buf).Encode(map[string]string{ep.Name: entryPointValue(ep)}); err != nil {
				return errors.Wrapf(err, "encode entry point %s", ep.Name)
			}
		}
	}
	return nil
}

// tomlKey quotes name the way the encoder quotes keys
func tomlKey(name string) (string, error) {
	var b bytes.Buffer
	if err := toml.NewEncoder(&b).Encode(map[string]string{name: ""}); err != nil {
		return "", errors.Wrapf(err, "encode key %q", name)
	}
	key, _, _ := strings.Cut(b.String(), " = ")
	return key, nil
}

// Decode reads a pyproject.toml produced by Encode (or written by hand in the
// same shape) back into a descriptor
func Decode(data []byte) (*entities.Descriptor, error) {
	var doc Pyproject
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse pyproject.toml")
	}
	if doc.Project == nil || !md.IsDefined("project", "name") {
		return nil, errors.Wrap(entities.ErrInvalidDescriptor, "pyproject.toml has no [project] name")
	}

	p := doc.Project
	d := &entities.Descriptor{
		Name:        p.Name,
		Version:     p.Version,
		Description: p.Description,
		URL:         p.URLs["Homepage"],
	}
	if p.Readme != nil {
		d.LongDescription = p.Readme.Text
	}
	if p.License != nil {
		d.License = p.License.Text
	}
	if len(p.Authors) > 0 {
		d.Author = p.Authors[0].Name
		d.AuthorEmail = p.Authors[0].Email
	}

	if d.InstallRequires, err = services.ParseRequirements(p.Dependencies); err != nil {
		return nil, errors.Wrap(err, "dependencies")
	}
	if d.TestsRequire, err = services.ParseRequirements(p.OptionalDependencies[testExtra]); err != nil {
		return nil, errors.Wrap(err, "optional-dependencies.test")
	}
	if doc.BuildSystem != nil {
		if d.SetupRequires, err = services.ParseRequirements(setupRequires(doc.BuildSystem.Requires)); err != nil {
			return nil, errors.Wrap(err, "build-system.requires")
		}
	}

	if setuptools, ok := doc.Tool["setuptools"].(map[string]any); ok {
		if pkgs, ok := setuptools["packages"].([]any); ok {
			for _, pkg := range pkgs {
				if s, ok := pkg.(string); ok {
					d.Packages = append(d.Packages, s)
				}
			}
		}
	}

	groups := entryPointLines(md, p)
	if d.EntryPoints, err = services.ParseEntryPointTable(groups); err != nil {
		return nil, errors.Wrap(err, "entry points")
	}

	return d, nil
}

// buildRequires lists the default build requirements followed by the setup
// requirements. A setup requirement naming a default replaces it in place.
// entryPointLines renders the scripts and entry-point tables as
// "name = value" lines in document order
func entryPointLines(md toml.MetaData, p *Project) map[string][]string {
	groups := make(map[string][]string)
	seen := make(map[[2]string]bool)
	add := func(group, name, value string) {
		if seen[[2]string{group, name}] {
			return
		}
		seen[[2]string{group, name}] = true
		groups[group] = append(groups[group], name+" = "+value)
	}

	for _, key := range md.Keys() {
		switch {
		case len(key) == 3 && key[0] == "project" && key[1] == "scripts":
			if value, ok := p.Scripts[key[2]]; ok {
				add(entities.ConsoleScriptsGroup, key[2], value)
			}
		case len(key) == 4 && key[0] == "project" && key[1] == "entry-points":
			if value, ok := p.EntryPoints[key[2]][key[3]]; ok {
				add(key[2], key[3], value)
			}
		}
	}
	return groups
}

func buildRequires(setup []entities.Requirement) []string {
	out := append([]string(nil), defaultBuildRequires...)
	for _, r := range setup {
		if i := indexOfName(out, r.Name); i >= 0 {
			out[i] = r.String()
			continue
		}
		out = append(out, r.String())
	}
	return out
}

// setupRequires drops the bare build requirements Encode always adds
func setupRequires(requires []string) []string {
	var out []string
	for _, r := range requires {
		if indexOfName(defaultBuildRequires, r) >= 0 && isBare(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func isBare(requirement string) bool {
	req, err := services.ParseRequirement(requirement)
	return err == nil && len(req.Specifiers) == 0 && len(req.Extras) == 0 && req.URL == "" && req.Marker == ""
}

func indexOfName(list []string, requirement string) int {
	want := requirementName(requirement)
	for i, s := range list {
		if requirementName(s) == want {
			return i
		}
	}
	return -1
}

func requirementName(requirement string) string {
	if req, err := services.ParseRequirement(requirement); err == nil {
		return services.NormalizeName(req.Name)
	}
	return services.NormalizeName(requirement)
}

func entryPointValue(ep entities.EntryPoint) string {
	if len(ep.Extras) == 0 {
		return ep.Reference()
	}
	return ep.Reference() + " [" + strings.Join(ep.Extras, ",") + "]"
}

func requirementStrings(reqs []entities.Requirement) []string {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.String()
	}
	return out
}

// Codec reads pyproject.toml documents as descriptors
type Codec struct{}

// Parse decodes a pyproject.toml document
func (Codec) Parse(data []byte) (*entities.Descriptor, error) {
	return Decode(data)
}
