package entities

// Advisory severities, lowest first
const (
	AdvisoryUnknown  = "UNKNOWN"
	AdvisoryLow      = "LOW"
	AdvisoryMedium   = "MEDIUM"
	AdvisoryHigh     = "HIGH"
	AdvisoryCritical = "CRITICAL"
)

// Advisory represents a published vulnerability affecting a distribution version
type Advisory struct {
	ID       string
	Summary  string
	Aliases  []string
	Severity string
	FixedIn  []string // versions that fix the advisory, lowest first
}
