package entities

import "fmt"

// Severity ranks a validation issue
type Severity string

// Issue severities
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single finding about a descriptor
type Issue struct {
	Severity Severity
	Field    string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Field, i.Message)
}

// ValidationReport collects the issues found in a descriptor
type ValidationReport struct {
	Issues []Issue
}

// Errors returns only error-level issues
func (r *ValidationReport) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns only warning-level issues
func (r *ValidationReport) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

// Valid reports whether no error-level issue was found
func (r *ValidationReport) Valid() bool {
	return len(r.Errors()) == 0
}

func (r *ValidationReport) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Add appends an issue
func (r *ValidationReport) Add(s Severity, field, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: s, Field: field, Message: fmt.Sprintf(format, args...)})
}
