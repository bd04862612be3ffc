package orchestrators

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces/gateways"
	"github.com/codekansas/soc/internal/domain/services"
)

type mockEnvironment struct {
	dists map[string]*entities.Distribution
	err   error
}

func (m *mockEnvironment) ListDistributions(_ context.Context) ([]*entities.Distribution, error) {
	out := make([]*entities.Distribution, 0, len(m.dists))
	for _, d := range m.dists {
		out = append(out, d)
	}
	return out, m.err
}

func (m *mockEnvironment) FindDistribution(_ context.Context, name string) (*entities.Distribution, error) {
	if m.err != nil {
		return nil, m.err
	}
	if d, ok := m.dists[services.NormalizeName(name)]; ok {
		return d, nil
	}
	return nil, entities.ErrNotFound
}

type mockRecordVerifier struct {
	mismatches map[string][]gateways.RecordMismatch
	err        error
	calls      int
}

func (m *mockRecordVerifier) VerifyRecord(_ context.Context, dist *entities.Distribution) ([]gateways.RecordMismatch, error) {
	m.calls++
	return m.mismatches[dist.Name], m.err
}

type mockScriptLocator struct {
	paths map[string]string
}

func (m *mockScriptLocator) LocateScript(name string) (string, error) {
	if p, ok := m.paths[name]; ok {
		return p, nil
	}
	return "", entities.ErrNotFound
}

type mockProgress struct {
	total    int
	advanced []string
	done     bool
}

func (m *mockProgress) Begin(total int)     { m.total = total }
func (m *mockProgress) Advance(dist string) { m.advanced = append(m.advanced, dist) }
func (m *mockProgress) Done()               { m.done = true }

func testDescriptor(t *testing.T) *entities.Descriptor {
	t.Helper()

	install, err := services.ParseRequirements([]string{"numpy==1.12", "six", "click"})
	if err != nil {
		t.Fatalf("ParseRequirements() error = %v", err)
	}
	tests, err := services.ParseRequirements([]string{"pytest"})
	if err != nil {
		t.Fatalf("ParseRequirements() error = %v", err)
	}
	table, err := services.ParseEntryPointTable(map[string][]string{
		entities.ConsoleScriptsGroup: {"pysoc = soc.cli:cli"},
	})
	if err != nil {
		t.Fatalf("ParseEntryPointTable() error = %v", err)
	}

	return &entities.Descriptor{
		Name:            "soc",
		Version:         "0.0.1",
		InstallRequires: install,
		TestsRequire:    tests,
		EntryPoints:     table,
	}
}

func dist(name, version string) *entities.Distribution {
	return &entities.Distribution{
		Name:    name,
		Version: version,
		Record: []entities.RecordEntry{
			{Path: name + "/__init__.py", Algorithm: "sha256", Digest: "x", Size: 2048},
			{Path: name + ".dist-info/RECORD", Size: -1},
		},
	}
}

func healthyEnv() *mockEnvironment {
	return &mockEnvironment{dists: map[string]*entities.Distribution{
		"soc":   dist("soc", "0.0.1"),
		"numpy": dist("numpy", "1.12.0"),
		"six":   dist("six", "1.10.0"),
		"click": dist("Click", "6.7"),
	}}
}

func TestCheckOrchestrator_Check_Success(t *testing.T) {
	verifier := &mockRecordVerifier{}
	progress := &mockProgress{}
	orch := NewCheckOrchestrator(healthyEnv(), verifier, &mockScriptLocator{paths: map[string]string{"pysoc": "/usr/bin/pysoc"}}, nil)

	result, err := orch.Check(context.Background(), testDescriptor(t), CheckOptions{
		VerifyRecords: true,
		CheckScripts:  true,
		Progress:      progress,
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if !result.Ok() {
		t.Errorf("Check() not ok:\n%s", result.Summary())
	}
	if result.Self == nil || result.Self.Status != StatusSatisfied {
		t.Errorf("Self = %+v, want satisfied", result.Self)
	}
	if len(result.Requirements) != 3 {
		t.Errorf("Requirements = %d, want 3 (install only)", len(result.Requirements))
	}
	if verifier.calls != 4 {
		t.Errorf("VerifyRecord calls = %d, want 4", verifier.calls)
	}
	if progress.total != 4 || len(progress.advanced) != 4 || !progress.done {
		t.Errorf("progress = %+v", progress)
	}
	if len(result.Scripts) != 1 || result.Scripts[0].Path != "/usr/bin/pysoc" {
		t.Errorf("Scripts = %+v", result.Scripts)
	}

	summary := result.Summary()
	for _, want := range []string{"is complete", "3/3 satisfied", "4 files (8.2 kB) verified, 0 mismatched", "1/1 on path"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Summary() missing %q:\n%s", want, summary)
		}
	}
}

func TestCheckOrchestrator_Check_Statuses(t *testing.T) {
	env := healthyEnv()
	env.dists["numpy"] = dist("numpy", "1.13.3")
	env.dists["six"] = dist("six", "not a version")
	delete(env.dists, "click")

	orch := NewCheckOrchestrator(env, &mockRecordVerifier{}, &mockScriptLocator{}, nil)
	result, err := orch.Check(context.Background(), testDescriptor(t), CheckOptions{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	want := map[string]RequirementStatus{
		"numpy": StatusVersionConflict,
		"six":   StatusSatisfied, // no specifier, any version is accepted
		"click": StatusMissing,
	}
	for _, c := range result.Requirements {
		if c.Status != want[c.Requirement.Name] {
			t.Errorf("%s status = %s, want %s", c.Requirement.Name, c.Status, want[c.Requirement.Name])
		}
	}
	if result.Ok() {
		t.Error("Ok() = true, want false")
	}
	if !strings.Contains(result.Summary(), "is incomplete") {
		t.Errorf("Summary() = %q", result.Summary())
	}
}

func TestCheckOrchestrator_Check_InvalidInstalledVersion(t *testing.T) {
	env := healthyEnv()
	env.dists["numpy"] = dist("numpy", "garbage")

	orch := NewCheckOrchestrator(env, &mockRecordVerifier{}, &mockScriptLocator{}, nil)
	result, err := orch.Check(context.Background(), testDescriptor(t), CheckOptions{})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Requirements[0].Status != StatusInvalidVersion {
		t.Errorf("numpy status = %s, want %s", result.Requirements[0].Status, StatusInvalidVersion)
	}
}

func TestCheckOrchestrator_Check_Groups(t *testing.T) {
	env := healthyEnv()
	orch := NewCheckOrchestrator(env, &mockRecordVerifier{}, &mockScriptLocator{}, nil)

	result, err := orch.Check(context.Background(), testDescriptor(t), CheckOptions{
		Groups: entities.RequirementGroups,
	})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(result.Requirements) != 4 {
		t.Fatalf("Requirements = %d, want 4", len(result.Requirements))
	}
	last := result.Requirements[3]
	if last.Group != entities.GroupTests || last.Status != StatusMissing {
		t.Errorf("pytest check = %+v", last)
	}
}

func TestCheckOrchestrator_Check_RecordMismatch(t *testing.T) {
	verifier := &mockRecordVerifier{mismatches: map[string][]gateways.RecordMismatch{
		"six": {{Path: "six.py", Reason: "missing"}},
	}}
	orch := NewCheckOrchestrator(healthyEnv(), verifier, &mockScriptLocator{}, nil)

	result, err := orch.Check(context.Background(), testDescriptor(t), CheckOptions{VerifyRecords: true})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Ok() {
		t.Error("Ok() = true with a RECORD mismatch")
	}
	if !strings.Contains(result.Summary(), "1 mismatched") {
		t.Errorf("Summary() = %q", result.Summary())
	}
}

func TestCheckOrchestrator_Check_MissingScript(t *testing.T) {
	orch := NewCheckOrchestrator(healthyEnv(), &mockRecordVerifier{}, &mockScriptLocator{}, nil)

	result, err := orch.Check(context.Background(), testDescriptor(t), CheckOptions{CheckScripts: true})
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Ok() {
		t.Error("Ok() = true with a missing console script")
	}
	if !errors.Is(result.Scripts[0].Err, entities.ErrNotFound) {
		t.Errorf("script error = %v, want ErrNotFound", result.Scripts[0].Err)
	}
}

func TestCheckOrchestrator_Check_EnvironmentError(t *testing.T) {
	env := &mockEnvironment{err: errors.New("permission denied")}
	orch := NewCheckOrchestrator(env, &mockRecordVerifier{}, &mockScriptLocator{}, nil)

	if _, err := orch.Check(context.Background(), testDescriptor(t), CheckOptions{}); err == nil {
		t.Error("Check() expected error for unreadable environment")
	}
}

func TestCheckOrchestrator_Check_VerifierError(t *testing.T) {
	verifier := &mockRecordVerifier{err: errors.New("disk error")}
	orch := NewCheckOrchestrator(healthyEnv(), verifier, &mockScriptLocator{}, nil)

	if _, err := orch.Check(context.Background(), testDescriptor(t), CheckOptions{VerifyRecords: true}); err == nil {
		t.Error("Check() expected error from verifier")
	}
}
