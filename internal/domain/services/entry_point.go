package services

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
)

var dottedPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ParseEntryPoint parses "name = module:attr [extra,...]"
func ParseEntryPoint(line string) (entities.EntryPoint, error) {
	var ep entities.EntryPoint

	name, value, ok := strings.Cut(line, "=")
	if !ok {
		return ep, errors.Wrapf(entities.ErrInvalidEntryPoint, "%q: missing '='", line)
	}

	ep.Name = strings.TrimSpace(name)
	if ep.Name == "" {
		return ep, errors.Wrapf(entities.ErrInvalidEntryPoint, "%q: empty name", line)
	}
	if strings.ContainsAny(ep.Name, " \t[]") {
		return ep, errors.Wrapf(entities.ErrInvalidEntryPoint, "%q: invalid name", line)
	}

	value = strings.TrimSpace(value)
	if i := strings.Index(value, "["); i >= 0 {
		if !strings.HasSuffix(value, "]") {
			return ep, errors.Wrapf(entities.ErrInvalidEntryPoint, "%q: unterminated extras", line)
		}
		for _, extra := range strings.Split(value[i+1:len(value)-1], ",") {
			if extra = strings.TrimSpace(extra); extra != "" {
				ep.Extras = append(ep.Extras, extra)
			}
		}
		value = strings.TrimSpace(value[:i])
	}

	module, attr, hasAttr := strings.Cut(value, ":")
	ep.Module = strings.TrimSpace(module)
	ep.Attr = strings.TrimSpace(attr)

	if !dottedPattern.MatchString(ep.Module) {
		return ep, errors.Wrapf(entities.ErrInvalidEntryPoint, "%q: invalid module %q", line, ep.Module)
	}
	if hasAttr && !dottedPattern.MatchString(ep.Attr) {
		return ep, errors.Wrapf(entities.ErrInvalidEntryPoint, "%q: invalid attribute %q", line, ep.Attr)
	}

	return ep, nil
}

// ParseEntryPointTable parses group -> lines into a table. Console scripts
// must name an attribute.
func ParseEntryPointTable(groups map[string][]string) (entities.EntryPointTable, error) {
	if len(groups) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	table := make(entities.EntryPointTable, len(groups))
	for _, group := range names {
		seen := make(map[string]bool)
		for _, line := range groups[group] {
			ep, err := ParseEntryPoint(line)
			if err != nil {
				return nil, errors.Wrapf(err, "group %s", group)
			}
			if group == entities.ConsoleScriptsGroup && ep.Attr == "" {
				return nil, errors.Wrapf(entities.ErrInvalidEntryPoint, "console script %q has no callable", ep.Name)
			}
			if seen[ep.Name] {
				return nil, errors.Wrapf(entities.ErrInvalidEntryPoint, "group %s: duplicate name %q", group, ep.Name)
			}
			seen[ep.Name] = true
			table[group] = append(table[group], ep)
		}
	}

	return table, nil
}

// FormatEntryPointTable is the inverse of ParseEntryPointTable
func FormatEntryPointTable(table entities.EntryPointTable) map[string][]string {
	if len(table) == 0 {
		return nil
	}

	out := make(map[string][]string, len(table))
	for group, eps := range table {
		lines := make([]string, len(eps))
		for i, ep := range eps {
			lines[i] = ep.String()
		}
		out[group] = lines
	}
	return out
}

// Registry maps object references ("soc.cli:cli") to the Go values that
// implement them
type Registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewRegistry creates an empty registry
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{entries: make(map[string]T)}
}

// Register binds an object reference to a value
func (r *Registry[T]) Register(reference string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[reference] = value
}

// Lookup returns the value bound to an object reference
func (r *Registry[T]) Lookup(reference string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[reference]
	return v, ok
}

// References returns the registered references in sorted order
func (r *Registry[T]) References() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]string, 0, len(r.entries))
	for ref := range r.entries {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Resolve follows a console script through the entry-point table to its
// registered value
func (r *Registry[T]) Resolve(table entities.EntryPointTable, script string) (T, entities.EntryPoint, error) {
	var zero T

	ep, ok := table.Lookup(entities.ConsoleScriptsGroup, script)
	if !ok {
		return zero, ep, errors.Wrapf(entities.ErrNotFound, "console script %q", script)
	}

	v, ok := r.Lookup(ep.Reference())
	if !ok {
		return zero, ep, errors.Wrapf(entities.ErrUnresolved, "%s -> %s", script, ep.Reference())
	}

	return v, ep, nil
}
