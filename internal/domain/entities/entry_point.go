package entities

import (
	"sort"
	"strings"
)

// EntryPoint represents a named object reference, e.g. "pysoc = soc.cli:cli"
type EntryPoint struct {
	Name   string
	Module string
	Attr   string
	Extras []string
}

// Reference returns the object reference "module:attr"
func (e EntryPoint) Reference() string {
	if e.Attr == "" {
		return e.Module
	}
	return e.Module + ":" + e.Attr
}

// TopLevelPackage returns the first dotted component of the module path
func (e EntryPoint) TopLevelPackage() string {
	pkg, _, _ := strings.Cut(e.Module, ".")
	return pkg
}

// String renders the entry point as it appears in a descriptor
func (e EntryPoint) String() string {
	s := e.Name + " = " + e.Reference()
	if len(e.Extras) > 0 {
		s += " [" + strings.Join(e.Extras, ",") + "]"
	}
	return s
}

// EntryPointTable maps a group name to the entry points it declares
type EntryPointTable map[string][]EntryPoint

// Groups returns the group names in sorted order
func (t EntryPointTable) Groups() []string {
	groups := make([]string, 0, len(t))
	for g := range t {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// Lookup finds an entry point by group and name
func (t EntryPointTable) Lookup(group, name string) (EntryPoint, bool) {
	for _, ep := range t[group] {
		if ep.Name == name {
			return ep, true
		}
	}
	return EntryPoint{}, false
}

// Clone returns a deep copy of the table
func (t EntryPointTable) Clone() EntryPointTable {
	if t == nil {
		return nil
	}

	c := make(EntryPointTable, len(t))
	for g, eps := range t {
		cp := make([]EntryPoint, len(eps))
		for i, ep := range eps {
			cp[i] = ep
			cp[i].Extras = append([]string(nil), ep.Extras...)
			if len(ep.Extras) == 0 {
				cp[i].Extras = nil
			}
		}
		c[g] = cp
	}
	return c
}
