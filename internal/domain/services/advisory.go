package services

import (
	"strings"

	"github.com/codekansas/soc/internal/domain/entities"
)

var severityRank = map[string]int{
	entities.AdvisoryUnknown:  0,
	entities.AdvisoryLow:      1,
	entities.AdvisoryMedium:   2,
	entities.AdvisoryHigh:     3,
	entities.AdvisoryCritical: 4,
}

// NormalizeSeverity maps advisory database labels onto the severity scale.
// GitHub advisories say "MODERATE" where others say "MEDIUM".
func NormalizeSeverity(label string) string {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "MODERATE" {
		return entities.AdvisoryMedium
	}
	if _, ok := severityRank[s]; ok {
		return s
	}
	return entities.AdvisoryUnknown
}

// SeverityFromScore buckets a CVSS base score
func SeverityFromScore(score float64) string {
	switch {
	case score >= 9.0:
		return entities.AdvisoryCritical
	case score >= 7.0:
		return entities.AdvisoryHigh
	case score >= 4.0:
		return entities.AdvisoryMedium
	case score > 0:
		return entities.AdvisoryLow
	default:
		return entities.AdvisoryUnknown
	}
}

// FilterAdvisories keeps advisories at or above minSeverity. Advisories
// without a severity are kept unless minSeverity is above LOW.
// Pure business logic - no I/O
func FilterAdvisories(advisories []entities.Advisory, minSeverity string) []entities.Advisory {
	minLevel := severityRank[NormalizeSeverity(minSeverity)]
	keepUnknown := minLevel <= severityRank[entities.AdvisoryLow]
	filtered := make([]entities.Advisory, 0, len(advisories))

	for _, adv := range advisories {
		level := severityRank[NormalizeSeverity(adv.Severity)]
		if level >= minLevel || (keepUnknown && level == severityRank[entities.AdvisoryUnknown]) {
			filtered = append(filtered, adv)
		}
	}

	return filtered
}

// HighestSeverity returns the most severe label among advisories
func HighestSeverity(advisories []entities.Advisory) string {
	highest := entities.AdvisoryUnknown
	for _, adv := range advisories {
		s := NormalizeSeverity(adv.Severity)
		if severityRank[s] > severityRank[highest] {
			highest = s
		}
	}
	return highest
}
