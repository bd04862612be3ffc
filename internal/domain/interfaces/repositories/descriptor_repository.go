// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/codekansas/soc/internal/domain/entities"
)

// DescriptorRepository defines the interface for accessing package descriptors
type DescriptorRepository interface {
	// Default returns the descriptor shipped with the binary
	Default(ctx context.Context) (*entities.Descriptor, error)

	// GetDescriptor retrieves a descriptor by package name
	GetDescriptor(ctx context.Context, name string) (*entities.Descriptor, error)

	// Document returns the raw descriptor document at path, or the embedded
	// document when path is empty
	Document(ctx context.Context, path string) ([]byte, error)

	// ListDescriptors returns all available descriptors
	ListDescriptors(ctx context.Context) ([]*entities.Descriptor, error)
}
