// Package yaml provides YAML-based descriptor parsing and repository implementations.
package yaml

import (
	"os"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/services"
)

// yamlDescriptor represents the raw YAML structure; keys follow setup() keywords
type yamlDescriptor struct {
	Name            string              `yaml:"name"`
	Version         string              `yaml:"version"`
	Description     string              `yaml:"description,omitempty"`
	Author          string              `yaml:"author,omitempty"`
	AuthorEmail     string              `yaml:"author_email,omitempty"`
	URL             string              `yaml:"url,omitempty"`
	License         string              `yaml:"license,omitempty"`
	LongDescription string              `yaml:"long_description,omitempty"`
	Packages        []string            `yaml:"packages,omitempty"`
	InstallRequires []string            `yaml:"install_requires,omitempty"`
	SetupRequires   []string            `yaml:"setup_requires,omitempty"`
	TestsRequire    []string            `yaml:"tests_require,omitempty"`
	EntryPoints     map[string][]string `yaml:"entry_points,omitempty"`
}

// DescriptorParser parses YAML descriptor files
type DescriptorParser struct{}

// NewDescriptorParser creates a new YAML parser
func NewDescriptorParser() *DescriptorParser {
	return &DescriptorParser{}
}

// ParseFile parses a YAML descriptor file into a Descriptor entity
func (p *DescriptorParser) ParseFile(filePath string) (*entities.Descriptor, error) {
	//nolint:gosec // G304: filePath is a descriptor path chosen by the user
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %s", filePath)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a Descriptor entity
func (p *DescriptorParser) Parse(data []byte) (*entities.Descriptor, error) {
	var raw yamlDescriptor
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML")
	}

	// Validate required fields
	if raw.Name == "" {
		return nil, errors.New("descriptor must have a name")
	}

	install, err := services.ParseRequirements(raw.InstallRequires)
	if err != nil {
		return nil, errors.Wrap(err, "install_requires")
	}
	setup, err := services.ParseRequirements(raw.SetupRequires)
	if err != nil {
		return nil, errors.Wrap(err, "setup_requires")
	}
	tests, err := services.ParseRequirements(raw.TestsRequire)
	if err != nil {
		return nil, errors.Wrap(err, "tests_require")
	}
	eps, err := services.ParseEntryPointTable(raw.EntryPoints)
	if err != nil {
		return nil, errors.Wrap(err, "entry_points")
	}

	return &entities.Descriptor{
		Name:            raw.Name,
		Version:         raw.Version,
		Description:     raw.Description,
		Author:          raw.Author,
		AuthorEmail:     raw.AuthorEmail,
		URL:             raw.URL,
		License:         raw.License,
		LongDescription: raw.LongDescription,
		Packages:        raw.Packages,
		InstallRequires: install,
		SetupRequires:   setup,
		TestsRequire:    tests,
		EntryPoints:     eps,
	}, nil
}

// Encode renders a descriptor back into the YAML layout Parse reads
func Encode(d *entities.Descriptor) ([]byte, error) {
	raw := yamlDescriptor{
		Name:            d.Name,
		Version:         d.Version,
		Description:     d.Description,
		Author:          d.Author,
		AuthorEmail:     d.AuthorEmail,
		URL:             d.URL,
		License:         d.License,
		LongDescription: d.LongDescription,
		Packages:        d.Packages,
		InstallRequires: requirementStrings(d.InstallRequires),
		SetupRequires:   requirementStrings(d.SetupRequires),
		TestsRequire:    requirementStrings(d.TestsRequire),
		EntryPoints:     services.FormatEntryPointTable(d.EntryPoints),
	}

	out, err := yaml.Marshal(&raw)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode YAML")
	}
	return out, nil
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
