package orchestrators

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces"
	"github.com/codekansas/soc/internal/domain/interfaces/gateways"
)

// SignatureOrchestrator imports signing keys and verifies a detached signature
type SignatureOrchestrator struct {
	gateway gateways.SignatureGateway
	log     interfaces.Logger
}

// NewSignatureOrchestrator creates a new signature orchestrator
func NewSignatureOrchestrator(gateway gateways.SignatureGateway, log interfaces.Logger) *SignatureOrchestrator {
	if log == nil {
		log = &interfaces.NoOpLogger{}
	}
	return &SignatureOrchestrator{gateway: gateway, log: log}
}

// SignatureResult contains the outcome of a signature verification
type SignatureResult struct {
	File       string
	Signature  string
	KeysLoaded int
	Signer     *entities.Signer
}

// Verify imports keys from every source in keys, then checks sig against file.
// Key files are imported first, then the KEYS URL, then keyserver fingerprints.
func (o *SignatureOrchestrator) Verify(ctx context.Context, file, sig string, keys entities.KeySources) (*SignatureResult, error) {
	if keys.Empty() {
		return nil, errors.New("no key source given: pass a key file, a KEYS URL or key IDs")
	}

	// Step 1: key files
	for _, path := range keys.Files {
		if err := o.gateway.ImportGPGKeyFromFile(path); err != nil {
			return nil, err
		}
		o.log.Debug("imported key file", interfaces.F("path", path))
	}

	// Step 2: KEYS file
	if keys.URL != "" {
		if err := o.gateway.ImportGPGKeysFromURL(ctx, keys.URL); err != nil {
			return nil, err
		}
		o.log.Debug("imported KEYS file", interfaces.F("url", keys.URL))
	}

	// Step 3: keyserver fingerprints
	if len(keys.KeyIDs) > 0 {
		if err := o.gateway.ImportGPGKeys(ctx, keys.KeyIDs); err != nil {
			return nil, err
		}
		o.log.Debug("imported keyserver keys", interfaces.F("keys", keys.KeyIDs))
	}

	result := &SignatureResult{
		File:       file,
		Signature:  sig,
		KeysLoaded: o.gateway.GetKeyringSize(),
	}

	// Step 4: verification
	signer, err := o.gateway.VerifyGPGSignatureFromFile(file, sig)
	if err != nil {
		o.log.Warn("signature rejected", interfaces.F("file", file), interfaces.F("error", err.Error()))
		return result, err
	}
	result.Signer = signer

	o.log.Info("signature verified", interfaces.F("file", file), interfaces.F("key", signer.KeyID))
	return result, nil
}

// Summary returns a human-readable summary of the verification
func (r *SignatureResult) Summary() string {
	if r.Signer == nil {
		return fmt.Sprintf("%s: signature NOT verified (%d keys loaded)", r.File, r.KeysLoaded)
	}

	signer := r.Signer.KeyID
	if r.Signer.Identity != "" {
		signer = fmt.Sprintf("%s (%s)", r.Signer.Identity, r.Signer.KeyID)
	}
	return fmt.Sprintf("%s: good signature from %s\nFingerprint: %s", r.File, signer, r.Signer.Fingerprint)
}
