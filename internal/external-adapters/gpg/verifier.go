// Package gpg verifies OpenPGP detached signatures.
package gpg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/go-faster/errors"
)

const (
	armorHeader  = "-----BEGIN PGP"
	maxKeysBytes = 10 << 20
)

// DefaultKeyservers are queried in order by ImportKeys
var DefaultKeyservers = []string{
	"https://keys.openpgp.org",
	"https://keyserver.ubuntu.com",
}

// ErrNoKeys is returned when verification is attempted with an empty keyring
var ErrNoKeys = errors.New("no keys imported")

// Verifier holds a keyring and checks detached signatures against it
type Verifier struct {
	keyring    openpgp.EntityList
	keyservers []string
	httpClient *http.Client
}

// Option configures a Verifier
type Option func(*Verifier)

// WithKeyservers replaces the keyserver list
func WithKeyservers(servers ...string) Option {
	return func(v *Verifier) { v.keyservers = servers }
}

// WithHTTPClient replaces the HTTP client used for key downloads
func WithHTTPClient(c *http.Client) Option {
	return func(v *Verifier) { v.httpClient = c }
}

// NewVerifier creates a verifier with an empty keyring
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{
		keyservers: DefaultKeyservers,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ImportKeys fetches each fingerprint (or 16-digit key id) from the keyservers.
// A key is accepted only when the server returns a key matching the request.
// Short key ids are rejected.
func (v *Verifier) ImportKeys(ctx context.Context, keyIDs []string) error {
	if len(keyIDs) == 0 {
		return errors.New("no key IDs provided")
	}

	for _, raw := range keyIDs {
		keyID := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(raw)), "0X")
		if keyID == "" {
			continue
		}
		if !isKeyID(keyID) {
			return errors.Errorf("key %q: want a 16-digit key id or a full fingerprint", raw)
		}

		lastErr := errors.New("no keyservers configured")
		imported := false
		for _, server := range v.keyservers {
			keys, err := v.fetchKey(ctx, server, keyID)
			if err != nil {
				lastErr = err
				continue
			}
			v.keyring = append(v.keyring, keys...)
			imported = true
			break
		}

		if !imported {
			return errors.Wrapf(lastErr, "import key %s", keyID)
		}
	}

	return nil
}

// isKeyID accepts long key ids and v4 or v6 fingerprints
func isKeyID(s string) bool {
	switch len(s) {
	case 16, 40, 64:
	default:
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789ABCDEF", r) {
			return false
		}
	}
	return true
}

func (v *Verifier) fetchKey(ctx context.Context, server, keyID string) (openpgp.EntityList, error) {
	var lastErr error
	for _, url := range []string{
		fmt.Sprintf("%s/vks/v1/by-fingerprint/%s", server, keyID),
		fmt.Sprintf("%s/pks/lookup?op=get&options=mr&search=0x%s", server, keyID),
	} {
		keys, err := v.download(ctx, url)
		if err != nil {
			lastErr = err
			continue
		}

		var matching openpgp.EntityList
		for _, key := range keys {
			fingerprint := fmt.Sprintf("%X", key.PrimaryKey.Fingerprint)
			if strings.HasSuffix(fingerprint, keyID) {
				matching = append(matching, key)
			}
		}
		if len(matching) == 0 {
			lastErr = errors.Errorf("%s returned no key matching %s", server, keyID)
			continue
		}
		return matching, nil
	}
	return nil, lastErr
}

// ImportKeysFromURL imports every key of an armored KEYS file
func (v *Verifier) ImportKeysFromURL(ctx context.Context, keysURL string) error {
	keys, err := v.download(ctx, keysURL)
	if err != nil {
		return errors.Wrap(err, "import KEYS file")
	}
	v.keyring = append(v.keyring, keys...)
	return nil
}

func (v *Verifier) download(ctx context.Context, url string) (openpgp.EntityList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", url)
	}
	//nolint:errcheck // Defer close
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	return readKeys(io.LimitReader(resp.Body, maxKeysBytes))
}

// ImportKeyFromFile imports an armored or binary public key file
func (v *Verifier) ImportKeyFromFile(keyPath string) error {
	//nolint:gosec // G304: keyPath is user-provided for key import
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return errors.Wrap(err, "failed to open key file")
	}

	keys, err := readKeys(bytes.NewReader(data))
	if err != nil {
		return errors.Wrapf(err, "read key %s", keyPath)
	}
	v.keyring = append(v.keyring, keys...)
	return nil
}

// Verify checks a detached signature (armored or binary) over data and
// returns the signing key
func (v *Verifier) Verify(data, signature io.Reader) (*Signer, error) {
	if len(v.keyring) == 0 {
		return nil, ErrNoKeys
	}

	sig := bufio.NewReader(signature)
	peek, _ := sig.Peek(len(armorHeader))

	var (
		entity *openpgp.Entity
		err    error
	)
	if string(peek) == armorHeader {
		entity, err = openpgp.CheckArmoredDetachedSignature(v.keyring, data, sig, nil)
	} else {
		entity, err = openpgp.CheckDetachedSignature(v.keyring, data, sig, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "signature verification failed")
	}

	return signerOf(entity), nil
}

// VerifyFile checks sigPath against filePath
func (v *Verifier) VerifyFile(filePath, sigPath string) (*Signer, error) {
	//nolint:gosec // G304: filePath is user-provided for verification
	data, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open data file")
	}
	//nolint:errcheck // Defer close on read-only file
	defer data.Close()

	//nolint:gosec // G304: sigPath is user-provided for verification
	sig, err := os.Open(sigPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open signature file")
	}
	//nolint:errcheck // Defer close on read-only file
	defer sig.Close()

	return v.Verify(data, sig)
}

// KeyringSize returns the number of imported keys
func (v *Verifier) KeyringSize() int {
	return len(v.keyring)
}

// Signer describes the key behind a valid signature
type Signer struct {
	KeyID       string
	Fingerprint string
	Identity    string
}

func signerOf(e *openpgp.Entity) *Signer {
	s := &Signer{
		KeyID:       fmt.Sprintf("%016X", e.PrimaryKey.KeyId),
		Fingerprint: fmt.Sprintf("%X", e.PrimaryKey.Fingerprint),
	}
	if id := e.PrimaryIdentity(); id != nil {
		s.Identity = id.Name
	}
	return s
}

func readKeys(r io.Reader) (openpgp.EntityList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read keys")
	}

	var keys openpgp.EntityList
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte(armorHeader)) {
		keys, err = openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	} else {
		keys, err = openpgp.ReadKeyRing(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read key")
	}
	if len(keys) == 0 {
		return nil, errors.New("no keys found")
	}
	return keys, nil
}
