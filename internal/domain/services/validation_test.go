package services

import (
	"strings"
	"testing"

	"github.com/codekansas/soc/internal/domain/entities"
)

func socDescriptor(t *testing.T) *entities.Descriptor {
	t.Helper()

	parse := func(raws ...string) []entities.Requirement {
		reqs, err := ParseRequirements(raws)
		if err != nil {
			t.Fatalf("ParseRequirements() error = %v", err)
		}
		return reqs
	}

	table, err := ParseEntryPointTable(map[string][]string{
		entities.ConsoleScriptsGroup: {"pysoc = soc.cli:cli"},
	})
	if err != nil {
		t.Fatalf("ParseEntryPointTable() error = %v", err)
	}

	return &entities.Descriptor{
		Name:            "soc",
		Version:         "0.0.1",
		Description:     "Easily access online datasets.",
		Author:          "codekansas",
		AuthorEmail:     "ben@bolte.cc",
		URL:             "https://github.com/codekansas/soc",
		License:         "MIT",
		LongDescription: `See "https://github.com/codekansas/soc"`,
		Packages:        []string{"soc"},
		InstallRequires: parse("numpy==1.12", "six", "click"),
		SetupRequires:   parse("pytest-runner"),
		TestsRequire:    parse("pytest"),
		EntryPoints:     table,
	}
}

func hasIssue(report *entities.ValidationReport, severity entities.Severity, field, fragment string) bool {
	for _, i := range report.Issues {
		if i.Severity == severity && i.Field == field && strings.Contains(i.Message, fragment) {
			return true
		}
	}
	return false
}

func TestValidateDescriptor_Valid(t *testing.T) {
	report := ValidateDescriptor(socDescriptor(t))

	if !report.Valid() {
		t.Fatalf("ValidateDescriptor() errors = %v", report.Errors())
	}
	if len(report.Warnings()) != 1 {
		t.Errorf("Warnings() = %v, want only the numpy pin", report.Warnings())
	}
	if !hasIssue(report, entities.SeverityWarning, "install_requires", "numpy is pinned (numpy==1.12)") {
		t.Errorf("missing pin warning: %v", report.Issues)
	}
}

func TestValidateDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *entities.Descriptor)
		field    string
		fragment string
	}{
		{"missing name", func(d *entities.Descriptor) { d.Name = "" }, "name", "required"},
		{"bad name", func(d *entities.Descriptor) { d.Name = "soc!" }, "name", "not a valid distribution name"},
		{"missing version", func(d *entities.Descriptor) { d.Version = " " }, "version", "required"},
		{"bad version", func(d *entities.Descriptor) { d.Version = "one" }, "version", "invalid version"},
		{"missing license", func(d *entities.Descriptor) { d.License = "" }, "license", "required"},
		{"bad email", func(d *entities.Descriptor) { d.AuthorEmail = "ben" }, "author_email", "not an email address"},
		{"bad package", func(d *entities.Descriptor) { d.Packages = []string{"soc-data"} }, "packages", "not an importable package name"},
		{
			"duplicate requirement",
			func(d *entities.Descriptor) {
				d.InstallRequires = append(d.InstallRequires, entities.Requirement{Name: "Six"})
			},
			"install_requires", "Six is declared more than once",
		},
		{
			"bad specifier",
			func(d *entities.Descriptor) {
				d.TestsRequire = []entities.Requirement{{
					Name:       "pytest",
					Specifiers: []entities.Specifier{{Operator: entities.OpCompatible, Version: "3"}},
				}}
			},
			"tests_require", "pytest",
		},
		{
			"entry point outside packages",
			func(d *entities.Descriptor) {
				d.EntryPoints[entities.ConsoleScriptsGroup] = []entities.EntryPoint{{Name: "pysoc", Module: "other.cli", Attr: "cli"}}
			},
			"entry_points.console_scripts", "outside the declared packages",
		},
		{
			"console script without callable",
			func(d *entities.Descriptor) {
				d.EntryPoints[entities.ConsoleScriptsGroup] = []entities.EntryPoint{{Name: "pysoc", Module: "soc.cli"}}
			},
			"entry_points.console_scripts", "does not name a callable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := socDescriptor(t)
			tt.mutate(d)

			report := ValidateDescriptor(d)
			if report.Valid() {
				t.Fatal("ValidateDescriptor() reported valid")
			}
			if !hasIssue(report, entities.SeverityError, tt.field, tt.fragment) {
				t.Errorf("missing %s error containing %q: %v", tt.field, tt.fragment, report.Issues)
			}
		})
	}
}

func TestValidateDescriptor_Warnings(t *testing.T) {
	d := socDescriptor(t)
	d.AuthorEmail = ""
	d.LongDescription = ""
	d.EntryPoints = nil

	report := ValidateDescriptor(d)
	if !report.Valid() {
		t.Fatalf("ValidateDescriptor() errors = %v", report.Errors())
	}
	for _, field := range []string{"author_email", "long_description", "entry_points"} {
		if !hasIssue(report, entities.SeverityWarning, field, "") {
			t.Errorf("missing %s warning: %v", field, report.Issues)
		}
	}
}

func TestValidateDescriptor_Nil(t *testing.T) {
	if ValidateDescriptor(nil).Valid() {
		t.Error("ValidateDescriptor(nil) reported valid")
	}
}
