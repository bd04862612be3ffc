// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/codekansas/soc/internal/domain/entities"
)

// DescriptorService defines high-level descriptor operations
type DescriptorService interface {
	// Load returns the embedded descriptor when path is empty, otherwise the file at path
	Load(ctx context.Context, path string) (*entities.Descriptor, error)

	// Validate runs schema and rule validation over the raw document at path
	// (the embedded descriptor when path is empty)
	Validate(ctx context.Context, path string) (*entities.Descriptor, *entities.ValidationReport, error)
}
