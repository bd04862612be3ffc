// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/codekansas/soc/internal/domain/entities"
)

// RecordMismatch describes an installed file that does not match its RECORD row
type RecordMismatch struct {
	Path   string
	Reason string
}

// EnvironmentGateway exposes the distributions installed in a Python environment
type EnvironmentGateway interface {
	// ListDistributions returns every installed distribution
	ListDistributions(ctx context.Context) ([]*entities.Distribution, error)

	// FindDistribution looks a distribution up by (normalized) name
	FindDistribution(ctx context.Context, name string) (*entities.Distribution, error)
}

// RecordVerifier checks installed files against the hashes in RECORD
type RecordVerifier interface {
	VerifyRecord(ctx context.Context, dist *entities.Distribution) ([]RecordMismatch, error)
}

// ScriptLocator finds console scripts generated by an installer
type ScriptLocator interface {
	LocateScript(name string) (string, error)
}
