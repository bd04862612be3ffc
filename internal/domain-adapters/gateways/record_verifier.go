// Package gateways provides adapter implementations for external services and tools.
package gateways

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces/gateways"
)

var errUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

// recordVerifier implements RECORD verification using pure Go
type recordVerifier struct{}

// NewRecordVerifier creates a new RECORD verifier
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewRecordVerifier() *recordVerifier {
	return &recordVerifier{}
}

// VerifyRecord checks every hashed RECORD row of dist against the file on
// disk. Paths are relative to the directory holding the metadata directory.
// Rows without a hash (RECORD itself, compiled bytecode) are skipped.
func (v *recordVerifier) VerifyRecord(ctx context.Context, dist *entities.Distribution) ([]gateways.RecordMismatch, error) {
	root := filepath.Dir(dist.MetadataPath)
	var mismatches []gateways.RecordMismatch

	for _, entry := range dist.Record {
		if err := ctx.Err(); err != nil {
			return mismatches, err
		}
		if !entry.HasHash() {
			continue
		}

		path := filepath.Join(root, filepath.FromSlash(entry.Path))
		digest, size, err := v.digest(path, entry.Algorithm)
		switch {
		case errors.Is(err, os.ErrNotExist):
			mismatches = append(mismatches, gateways.RecordMismatch{Path: entry.Path, Reason: "missing"})
			continue
		case errors.Is(err, errUnsupportedAlgorithm):
			mismatches = append(mismatches, gateways.RecordMismatch{Path: entry.Path, Reason: err.Error()})
			continue
		case err != nil:
			return mismatches, errors.Wrapf(err, "verify %s", entry.Path)
		}

		if entry.Size >= 0 && size != entry.Size {
			mismatches = append(mismatches, gateways.RecordMismatch{
				Path:   entry.Path,
				Reason: fmt.Sprintf("size mismatch: expected %d, got %d", entry.Size, size),
			})
			continue
		}

		if digest != strings.TrimRight(entry.Digest, "=") {
			mismatches = append(mismatches, gateways.RecordMismatch{
				Path:   entry.Path,
				Reason: fmt.Sprintf("%s mismatch: expected %s, got %s", entry.Algorithm, entry.Digest, digest),
			})
		}
	}

	return mismatches, nil
}

func (v *recordVerifier) digest(filePath, algorithm string) (string, int64, error) {
	var h hash.Hash
	switch algorithm {
	case "sha256":
		h = sha256.New()
	case "sha384":
		h = sha512.New384()
	case "sha512":
		h = sha512.New()
	default:
		return "", 0, errors.Wrapf(errUnsupportedAlgorithm, "%q", algorithm)
	}

	size, err := v.hashFile(filePath, h)
	if err != nil {
		return "", 0, err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), size, nil
}

func (v *recordVerifier) hashFile(filePath string, h hash.Hash) (int64, error) {
	//nolint:gosec // G304: filePath comes from an installed RECORD file
	f, err := os.Open(filePath)
	if err != nil {
		return 0, errors.Wrap(err, "failed to open file")
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	n, err := io.Copy(h, f)
	if err != nil {
		return 0, errors.Wrap(err, "failed to hash file")
	}
	return n, nil
}
