package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/services"
)

// DefaultOSVURL is the OSV single-package query endpoint
const DefaultOSVURL = "https://api.osv.dev/v1/query"

// osvEcosystem is the OSV ecosystem name for Python distributions
const osvEcosystem = "PyPI"

// osvGateway implements AdvisoryGateway over the OSV HTTP API
type osvGateway struct {
	apiURL     string
	httpClient *http.Client
}

// NewOSVGateway creates a new OSV gateway; an empty apiURL uses DefaultOSVURL
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewOSVGateway(apiURL string, timeout time.Duration) *osvGateway {
	if apiURL == "" {
		apiURL = DefaultOSVURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &osvGateway{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// QueryAdvisories returns the advisories OSV lists for name at version
func (g *osvGateway) QueryAdvisories(ctx context.Context, name, version string) ([]entities.Advisory, error) {
	body, err := json.Marshal(OSVQueryRequest{
		Package: OSVPackage{Name: services.NormalizeName(name), Ecosystem: osvEcosystem},
		Version: version,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "OSV API request failed")
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("OSV API returned status %d for %s %s", resp.StatusCode, name, version)
	}

	var osvResp OSVQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&osvResp); err != nil {
		return nil, errors.Wrap(err, "failed to parse OSV response")
	}

	advisories := make([]entities.Advisory, 0, len(osvResp.Vulns))
	for _, vuln := range osvResp.Vulns {
		advisories = append(advisories, entities.Advisory{
			ID:       vuln.ID,
			Summary:  vuln.Summary,
			Aliases:  vuln.Aliases,
			Severity: extractSeverity(vuln),
			FixedIn:  fixedVersions(vuln),
		})
	}

	sort.Slice(advisories, func(i, j int) bool { return advisories[i].ID < advisories[j].ID })
	return advisories, nil
}

// extractSeverity prefers the database label and falls back to the highest
// CVSS base score
func extractSeverity(vuln OSVVulnerability) string {
	if vuln.DatabaseSpecific.Severity != "" {
		if s := services.NormalizeSeverity(vuln.DatabaseSpecific.Severity); s != entities.AdvisoryUnknown {
			return s
		}
	}

	best, found := 0.0, false
	for _, s := range vuln.Severity {
		score, err := cvssBaseScore(s.Score)
		if err != nil {
			continue
		}
		if !found || score > best {
			best, found = score, true
		}
	}
	if !found {
		return entities.AdvisoryUnknown
	}
	return services.SeverityFromScore(best)
}

// cvssBaseScore scores a CVSS v2 or v3.x vector. Some databases publish the
// bare base score instead, which is accepted as is.
// TODO: score CVSS_V4 vectors.
func cvssBaseScore(vector string) (float64, error) {
	vector = strings.TrimSpace(vector)
	if score, err := strconv.ParseFloat(vector, 64); err == nil {
		return score, nil
	}

	switch {
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		cvss, err := gocvss31.ParseVector(vector)
		if err != nil {
			return 0, errors.Wrap(err, "parse CVSS 3.1 vector")
		}
		return cvss.BaseScore(), nil
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		cvss, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, errors.Wrap(err, "parse CVSS 3.0 vector")
		}
		return cvss.BaseScore(), nil
	case strings.HasPrefix(vector, "CVSS:"):
		return 0, errors.Errorf("unsupported CVSS version in %q", vector)
	default:
		cvss, err := gocvss20.ParseVector(vector)
		if err != nil {
			return 0, errors.Wrap(err, "parse CVSS 2.0 vector")
		}
		return cvss.BaseScore(), nil
	}
}

// fixedVersions collects the "fixed" events of the PyPI ranges, lowest first
func fixedVersions(vuln OSVVulnerability) []string {
	seen := make(map[string]bool)
	var fixed []string

	for _, affected := range vuln.Affected {
		if affected.Package.Ecosystem != "" && affected.Package.Ecosystem != osvEcosystem {
			continue
		}
		for _, r := range affected.Ranges {
			for _, ev := range r.Events {
				if ev.Fixed != "" && !seen[ev.Fixed] {
					seen[ev.Fixed] = true
					fixed = append(fixed, ev.Fixed)
				}
			}
		}
	}

	sort.SliceStable(fixed, func(i, j int) bool {
		a, errA := services.ParseVersion(fixed[i])
		b, errB := services.ParseVersion(fixed[j])
		if errA != nil || errB != nil {
			return fixed[i] < fixed[j]
		}
		return a.Compare(b) < 0
	})
	return fixed
}

// OSV API request/response types

// OSVQueryRequest represents a query to the OSV API for vulnerability information.
type OSVQueryRequest struct {
	Package OSVPackage `json:"package"`
	Version string     `json:"version,omitempty"`
}

// OSVPackage identifies a software package in a specific ecosystem.
type OSVPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

// OSVQueryResponse contains the vulnerability results from the OSV API.
type OSVQueryResponse struct {
	Vulns []OSVVulnerability `json:"vulns"`
}

// OSVVulnerability represents a single vulnerability from the OSV database.
type OSVVulnerability struct {
	ID               string          `json:"id"`
	Summary          string          `json:"summary"`
	Details          string          `json:"details"`
	Aliases          []string        `json:"aliases,omitempty"`
	Severity         []OSVSeverity   `json:"severity,omitempty"`
	Affected         []OSVAffected   `json:"affected,omitempty"`
	DatabaseSpecific OSVDatabaseInfo `json:"database_specific"`
}

// OSVSeverity contains severity scoring information for a vulnerability.
type OSVSeverity struct {
	Type  string `json:"type"`
	Score string `json:"score"`
}

// OSVAffected lists the affected versions of one package.
type OSVAffected struct {
	Package OSVPackage `json:"package"`
	Ranges  []OSVRange `json:"ranges,omitempty"`
}

// OSVRange is a sequence of introduced/fixed events.
type OSVRange struct {
	Type   string     `json:"type"`
	Events []OSVEvent `json:"events"`
}

// OSVEvent marks a version where a vulnerability was introduced or fixed.
type OSVEvent struct {
	Introduced string `json:"introduced,omitempty"`
	Fixed      string `json:"fixed,omitempty"`
}

// OSVDatabaseInfo holds database specific fields; GitHub advisories carry a severity label.
type OSVDatabaseInfo struct {
	Severity string `json:"severity,omitempty"`
}
