package gateways

import (
	"context"

	"github.com/codekansas/soc/internal/domain/entities"
)

// SignatureGateway defines OpenPGP detached-signature operations
type SignatureGateway interface {
	ImportGPGKeys(ctx context.Context, keyIDs []string) error
	ImportGPGKeysFromURL(ctx context.Context, keysURL string) error
	ImportGPGKeyFromFile(keyPath string) error
	VerifyGPGSignatureFromFile(filePath, sigPath string) (*entities.Signer, error)
	GetKeyringSize() int
}

// SchemaValidator checks a raw descriptor document against its schema.
// Violations are returned as issues; the error is reserved for documents that
// cannot be read at all.
type SchemaValidator interface {
	ValidateDocument(data []byte) ([]entities.Issue, error)
}

// DescriptorCodec converts raw descriptor documents into entities
type DescriptorCodec interface {
	Parse(data []byte) (*entities.Descriptor, error)
}
