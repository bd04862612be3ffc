package gateways

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/services"
	"github.com/codekansas/soc/internal/external-adapters/pyproject"
	"github.com/codekansas/soc/internal/external-adapters/yaml"
)

// Output formats understood by the renderer
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
	FormatTOML  = "toml"
)

// Formats lists every supported output format
var Formats = []string{FormatTable, FormatYAML, FormatJSON, FormatTOML}

// descriptorView is the JSON shape of a descriptor
type descriptorView struct {
	Name            string              `json:"name"`
	Version         string              `json:"version"`
	Description     string              `json:"description,omitempty"`
	Author          string              `json:"author,omitempty"`
	AuthorEmail     string              `json:"author_email,omitempty"`
	URL             string              `json:"url,omitempty"`
	License         string              `json:"license,omitempty"`
	LongDescription string              `json:"long_description,omitempty"`
	Packages        []string            `json:"packages,omitempty"`
	InstallRequires []string            `json:"install_requires,omitempty"`
	SetupRequires   []string            `json:"setup_requires,omitempty"`
	TestsRequire    []string            `json:"tests_require,omitempty"`
	EntryPoints     map[string][]string `json:"entry_points,omitempty"`
}

// descriptorRenderer writes descriptors in human and machine readable forms
type descriptorRenderer struct{}

// NewRenderer creates a descriptor renderer
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewRenderer() *descriptorRenderer {
	return &descriptorRenderer{}
}

// Render writes d to w in the given format
func (r *descriptorRenderer) Render(w io.Writer, d *entities.Descriptor, format string) error {
	var (
		out []byte
		err error
	)

	switch strings.ToLower(format) {
	case FormatTable, "":
		_, err = io.WriteString(w, r.metadataTable(d)+"\n")
		return err
	case FormatYAML:
		out, err = yaml.Encode(d)
	case FormatJSON:
		out, err = json.MarshalIndent(viewOf(d), "", "  ")
		out = append(out, '\n')
	case FormatTOML:
		out, err = pyproject.Encode(d)
	default:
		return errors.Errorf("unknown format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
	if err != nil {
		return errors.Wrapf(err, "render %s", format)
	}

	_, err = w.Write(out)
	return err
}

// RenderRequirements writes one table row per requirement of the given groups
func (r *descriptorRenderer) RenderRequirements(w io.Writer, d *entities.Descriptor, groups []entities.RequirementGroup) error {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Group", "Name", "Specifier", "Marker", "Pinned"})

	count := 0
	for _, group := range groups {
		for _, req := range d.Requirements(group) {
			specs := make([]string, len(req.Specifiers))
			for i, s := range req.Specifiers {
				specs[i] = s.String()
			}
			pinned := ""
			if req.IsPinned() {
				pinned = "yes"
			}
			tbl.AppendRow(table.Row{group, req.Name, strings.Join(specs, ","), req.Marker, pinned})
			count++
		}
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", count)})

	_, err := io.WriteString(w, tbl.Render()+"\n")
	return err
}

// RenderEntryPoints writes the entry-point table. When resolved is non-nil it
// adds a column telling whether each reference is served by a Go callable.
func (r *descriptorRenderer) RenderEntryPoints(w io.Writer, d *entities.Descriptor, resolved func(reference string) bool) error {
	tbl := newTable()
	header := table.Row{"Group", "Name", "Reference"}
	if resolved != nil {
		header = append(header, "Resolved")
	}
	tbl.AppendHeader(header)

	for _, group := range d.EntryPoints.Groups() {
		for _, ep := range d.EntryPoints[group] {
			row := table.Row{group, ep.Name, ep.Reference()}
			if resolved != nil {
				status := "no"
				if resolved(ep.Reference()) {
					status = "yes"
				}
				row = append(row, status)
			}
			tbl.AppendRow(row)
		}
	}

	_, err := io.WriteString(w, tbl.Render()+"\n")
	return err
}

func (r *descriptorRenderer) metadataTable(d *entities.Descriptor) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Field", "Value"})

	author := d.Author
	if d.AuthorEmail != "" {
		author = fmt.Sprintf("%s <%s>", d.Author, d.AuthorEmail)
	}

	tbl.AppendRows([]table.Row{
		{"name", d.Name},
		{"version", d.Version},
		{"description", d.Description},
		{"author", author},
		{"url", d.URL},
		{"license", d.License},
		{"packages", strings.Join(d.Packages, ", ")},
	})
	for _, group := range entities.RequirementGroups {
		reqs := d.Requirements(group)
		names := make([]string, len(reqs))
		for i, req := range reqs {
			names[i] = req.String()
		}
		tbl.AppendRow(table.Row{string(group) + " requires", strings.Join(names, ", ")})
	}

	scripts := make([]string, 0)
	for _, ep := range d.ConsoleScripts() {
		scripts = append(scripts, ep.Name)
	}
	sort.Strings(scripts)
	tbl.AppendRow(table.Row{"console scripts", strings.Join(scripts, ", ")})

	return tbl.Render()
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func viewOf(d *entities.Descriptor) descriptorView {
	return descriptorView{
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
}

func requirementStrings(reqs []entities.Requirement) []string {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]string, len(reqs))
	for i, req := range reqs {
		out[i] = req.String()
	}
	return out
}
