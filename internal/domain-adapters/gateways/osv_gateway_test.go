package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codekansas/soc/internal/domain/entities"
)

func TestNewOSVGateway(t *testing.T) {
	gateway := NewOSVGateway("", 0)

	if gateway.apiURL != DefaultOSVURL {
		t.Errorf("API URL = %s, want %s", gateway.apiURL, DefaultOSVURL)
	}
	if gateway.httpClient.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", gateway.httpClient.Timeout)
	}
}

func TestOSVGateway_QueryAdvisories(t *testing.T) {
	var got OSVQueryRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}

		_ = json.NewEncoder(w).Encode(OSVQueryResponse{
			Vulns: []OSVVulnerability{
				{
					ID:               "PYSEC-2019-108",
					Summary:          "Arbitrary code execution via pickle",
					Aliases:          []string{"CVE-2019-6446"},
					DatabaseSpecific: OSVDatabaseInfo{Severity: "MODERATE"},
					Affected: []OSVAffected{{
						Package: OSVPackage{Name: "numpy", Ecosystem: "PyPI"},
						Ranges: []OSVRange{{
							Type: "ECOSYSTEM",
							Events: []OSVEvent{
								{Introduced: "0"},
								{Fixed: "1.16.3"},
								{Introduced: "1.9.0"},
								{Fixed: "1.10.0"},
							},
						}},
					}},
				},
				{
					ID: "GHSA-0000-0000-0001",
					Severity: []OSVSeverity{
						{Type: "CVSS_V3", Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H"},
					},
				},
			},
		})
	}))
	defer server.Close()

	gateway := NewOSVGateway(server.URL, time.Second)

	advisories, err := gateway.QueryAdvisories(context.Background(), "NumPy", "1.12.0")
	if err != nil {
		t.Fatalf("QueryAdvisories failed: %v", err)
	}

	if got.Package.Name != "numpy" || got.Package.Ecosystem != "PyPI" || got.Version != "1.12.0" {
		t.Errorf("request = %+v", got)
	}

	if len(advisories) != 2 {
		t.Fatalf("Expected 2 advisories, got %d", len(advisories))
	}

	// sorted by ID
	if advisories[0].ID != "GHSA-0000-0000-0001" {
		t.Errorf("First advisory = %s", advisories[0].ID)
	}
	if advisories[0].Severity != entities.AdvisoryHigh {
		t.Errorf("CVSS 7.5 vector severity = %s, want HIGH", advisories[0].Severity)
	}

	pysec := advisories[1]
	if pysec.Severity != entities.AdvisoryMedium {
		t.Errorf("MODERATE severity = %s, want MEDIUM", pysec.Severity)
	}
	if len(pysec.FixedIn) != 2 || pysec.FixedIn[0] != "1.10.0" || pysec.FixedIn[1] != "1.16.3" {
		t.Errorf("FixedIn = %v, want [1.10.0 1.16.3]", pysec.FixedIn)
	}
	if len(pysec.Aliases) != 1 || pysec.Aliases[0] != "CVE-2019-6446" {
		t.Errorf("Aliases = %v", pysec.Aliases)
	}
}

func TestExtractSeverity(t *testing.T) {
	tests := []struct {
		name string
		vuln OSVVulnerability
		want string
	}{
		{
			name: "database label wins",
			vuln: OSVVulnerability{
				DatabaseSpecific: OSVDatabaseInfo{Severity: "LOW"},
				Severity:         []OSVSeverity{{Type: "CVSS_V3", Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"}},
			},
			want: entities.AdvisoryLow,
		},
		{
			name: "cvss 3.1 vector",
			vuln: OSVVulnerability{
				Severity: []OSVSeverity{{Type: "CVSS_V3", Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"}},
			},
			want: entities.AdvisoryCritical,
		},
		{
			name: "cvss 3.0 vector",
			vuln: OSVVulnerability{
				Severity: []OSVSeverity{{Type: "CVSS_V3", Score: "CVSS:3.0/AV:N/AC:H/PR:N/UI:R/S:U/C:L/I:N/A:N"}},
			},
			want: entities.AdvisoryLow,
		},
		{
			name: "cvss 2 vector",
			vuln: OSVVulnerability{
				Severity: []OSVSeverity{{Type: "CVSS_V2", Score: "AV:N/AC:L/Au:N/C:P/I:P/A:P"}},
			},
			want: entities.AdvisoryHigh,
		},
		{
			name: "highest score across vectors",
			vuln: OSVVulnerability{
				Severity: []OSVSeverity{
					{Type: "CVSS_V2", Score: "AV:N/AC:H/Au:N/C:P/I:N/A:N"},
					{Type: "CVSS_V3", Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H"},
				},
			},
			want: entities.AdvisoryHigh,
		},
		{
			name: "unrecognised label falls through to the vector",
			vuln: OSVVulnerability{
				DatabaseSpecific: OSVDatabaseInfo{Severity: "important"},
				Severity:         []OSVSeverity{{Type: "CVSS_V3", Score: "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H"}},
			},
			want: entities.AdvisoryHigh,
		},
		{
			name: "cvss 4 vector is not scored",
			vuln: OSVVulnerability{
				Severity: []OSVSeverity{{Type: "CVSS_V4", Score: "CVSS:4.0/AV:N/AC:L/AT:N/PR:N/UI:N/VC:H/VI:H/VA:H/SC:N/SI:N/SA:N"}},
			},
			want: entities.AdvisoryUnknown,
		},
		{
			name: "malformed vector",
			vuln: OSVVulnerability{
				Severity: []OSVSeverity{{Type: "CVSS_V3", Score: "CVSS:3.1/AV:X"}},
			},
			want: entities.AdvisoryUnknown,
		},
		{name: "no severity", vuln: OSVVulnerability{}, want: entities.AdvisoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractSeverity(tt.vuln); got != tt.want {
				t.Errorf("extractSeverity() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestOSVGateway_QueryAdvisories_NoVulnerabilities(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	advisories, err := NewOSVGateway(server.URL, time.Second).QueryAdvisories(context.Background(), "six", "1.10.0")
	if err != nil {
		t.Fatalf("QueryAdvisories failed: %v", err)
	}
	if len(advisories) != 0 {
		t.Errorf("Expected no advisories, got %d", len(advisories))
	}
}

func TestOSVGateway_QueryAdvisories_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "invalid JSON",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewOSVGateway(server.URL, time.Second).QueryAdvisories(context.Background(), "numpy", "1.12.0")
			if err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestOSVGateway_QueryAdvisories_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewOSVGateway(server.URL, time.Second).QueryAdvisories(ctx, "numpy", "1.12.0"); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
