package gateways

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/external-adapters/gpg"
)

// gpgVerifier adapts the OpenPGP adapter to the SignatureGateway interface
type gpgVerifier struct {
	verifier *gpg.Verifier
}

// NewGPGVerifier creates a new GPG verifier gateway
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier(opts ...gpg.Option) *gpgVerifier {
	return &gpgVerifier{
		verifier: gpg.NewVerifier(opts...),
	}
}

// ImportGPGKeys imports keys by fingerprint from keyservers
func (g *gpgVerifier) ImportGPGKeys(ctx context.Context, keyIDs []string) error {
	if err := g.verifier.ImportKeys(ctx, keyIDs); err != nil {
		return errors.Wrap(err, "failed to import GPG keys")
	}
	return nil
}

// ImportGPGKeysFromURL imports all keys from a KEYS file URL
func (g *gpgVerifier) ImportGPGKeysFromURL(ctx context.Context, keysURL string) error {
	if err := g.verifier.ImportKeysFromURL(ctx, keysURL); err != nil {
		return errors.Wrap(err, "failed to import GPG keys from URL")
	}
	return nil
}

// ImportGPGKeyFromFile imports a key from a local file
func (g *gpgVerifier) ImportGPGKeyFromFile(keyPath string) error {
	if err := g.verifier.ImportKeyFromFile(keyPath); err != nil {
		return errors.Wrap(err, "failed to import GPG key from file")
	}
	return nil
}

// VerifyGPGSignatureFromFile verifies a detached signature from a local file
func (g *gpgVerifier) VerifyGPGSignatureFromFile(filePath, sigPath string) (*entities.Signer, error) {
	signer, err := g.verifier.VerifyFile(filePath, sigPath)
	if err != nil {
		return nil, errors.Wrap(err, "GPG signature verification failed")
	}
	return &entities.Signer{
		KeyID:       signer.KeyID,
		Fingerprint: signer.Fingerprint,
		Identity:    signer.Identity,
	}, nil
}

// GetKeyringSize returns the number of keys loaded
func (g *gpgVerifier) GetKeyringSize() int {
	return g.verifier.KeyringSize()
}
