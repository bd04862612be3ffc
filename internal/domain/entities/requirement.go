package entities

import "strings"

// Operator is a version comparison operator
type Operator string

// Version comparison operators
const (
	OpEqual      Operator = "=="
	OpNotEqual   Operator = "!="
	OpLessEq     Operator = "<="
	OpGreaterEq  Operator = ">="
	OpLess       Operator = "<"
	OpGreater    Operator = ">"
	OpCompatible Operator = "~="
	OpArbitrary  Operator = "==="
)

// Specifier represents a single version clause, e.g. "==1.12"
type Specifier struct {
	Operator Operator
	Version  string // may end in ".*" for == and !=
}

// String renders the specifier as written in a requirement
func (s Specifier) String() string {
	return string(s.Operator) + s.Version
}

// IsPin reports whether the specifier pins an exact version
func (s Specifier) IsPin() bool {
	return (s.Operator == OpEqual && !strings.HasSuffix(s.Version, ".*")) || s.Operator == OpArbitrary
}

// Requirement represents a declared dependency such as "numpy==1.12"
type Requirement struct {
	Name       string
	Extras     []string
	Specifiers []Specifier
	URL        string // direct reference ("name @ url")
	Marker     string // environment marker, kept verbatim
	Raw        string
}

// String renders the requirement in canonical form
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)

	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}

	if r.URL != "" {
		b.WriteString(" @ " + r.URL)
	} else {
		specs := make([]string, len(r.Specifiers))
		for i, s := range r.Specifiers {
			specs[i] = s.String()
		}
		b.WriteString(strings.Join(specs, ","))
	}

	if r.Marker != "" {
		if r.URL != "" {
			b.WriteString(" ")
		}
		b.WriteString("; " + r.Marker)
	}

	return b.String()
}

// IsPinned reports whether any clause pins an exact version
func (r Requirement) IsPinned() bool {
	for _, s := range r.Specifiers {
		if s.IsPin() {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the requirement
func (r Requirement) Clone() Requirement {
	c := r
	c.Extras = append([]string(nil), r.Extras...)
	c.Specifiers = append([]Specifier(nil), r.Specifiers...)
	if len(r.Extras) == 0 {
		c.Extras = nil
	}
	if len(r.Specifiers) == 0 {
		c.Specifiers = nil
	}
	return c
}
