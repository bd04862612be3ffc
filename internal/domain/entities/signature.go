package entities

// KeySources lists where signing keys are imported from
type KeySources struct {
	Files  []string
	URL    string
	KeyIDs []string
}

// Empty reports whether no key source was given
func (k KeySources) Empty() bool {
	return len(k.Files) == 0 && k.URL == "" && len(k.KeyIDs) == 0
}

// Signer identifies the key that produced a valid signature
type Signer struct {
	KeyID       string // 16 hex digits
	Fingerprint string
	Identity    string // primary user id, "" when the key carries none
}
