// Package schema validates descriptor documents against the embedded JSON schema.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"

	"github.com/codekansas/soc/internal/domain/entities"
)

//go:embed descriptor.schema.json
var descriptorSchema []byte

const descriptorSchemaURL = "https://github.com/codekansas/soc/descriptor.schema.json"

// Validator implements gateways.SchemaValidator
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded descriptor schema
func NewValidator() (*Validator, error) {
	s, err := compile(descriptorSchemaURL, descriptorSchema)
	if err != nil {
		return nil, err
	}
	return &Validator{schema: s}, nil
}

// ValidateDocument converts a YAML (or JSON) document to JSON and validates
// it. Each failing leaf becomes one error-level issue.
func (v *Validator) ValidateDocument(data []byte) ([]entities.Issue, error) {
	instance, err := decode(data)
	if err != nil {
		return nil, err
	}

	err = v.schema.Validate(instance)
	if err == nil {
		return nil, nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, errors.Wrap(err, "schema validation")
	}

	return issuesFrom(verr), nil
}

// ValidateAgainstSchema validates data against an arbitrary schema document
func ValidateAgainstSchema(name string, schemaData, data []byte) error {
	s, err := compile(name, schemaData)
	if err != nil {
		return err
	}

	instance, err := decode(data)
	if err != nil {
		return err
	}

	if err := s.Validate(instance); err != nil {
		return errors.Wrapf(err, "validation against %s", name)
	}
	return nil
}

func compile(name string, schemaData []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	if err := compiler.AddResource(name, bytes.NewReader(schemaData)); err != nil {
		return nil, errors.Wrapf(err, "load schema %s", name)
	}

	s, err := compiler.Compile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "compile schema %s", name)
	}
	return s, nil
}

func decode(data []byte) (any, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, errors.Wrap(err, "convert YAML to JSON")
	}

	var instance any
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return nil, errors.Wrap(err, "decode JSON")
	}
	return instance, nil
}

func issuesFrom(verr *jsonschema.ValidationError) []entities.Issue {
	var leaves []*jsonschema.ValidationError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			leaves = append(leaves, e)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)

	issues := make([]entities.Issue, 0, len(leaves))
	for _, leaf := range leaves {
		issues = append(issues, entities.Issue{
			Severity: entities.SeverityError,
			Field:    fieldFromPointer(leaf.InstanceLocation),
			Message:  leaf.Message,
		})
	}

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
	return issues
}

// fieldFromPointer turns "/entry_points/console_scripts/0" into
// "entry_points.console_scripts[0]"
func fieldFromPointer(ptr string) string {
	if ptr == "" || ptr == "/" {
		return "descriptor"
	}

	var b strings.Builder
	for _, part := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		part = strings.NewReplacer("~1", "/", "~0", "~").Replace(part)
		if isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
