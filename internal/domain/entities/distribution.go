package entities

// DistributionKind identifies the on-disk metadata layout of an installed distribution
type DistributionKind string

// Installed metadata layouts
const (
	KindDistInfo DistributionKind = "dist-info"
	KindEggInfo  DistributionKind = "egg-info"
)

// Distribution represents a distribution installed into a site-packages directory
type Distribution struct {
	Name         string
	Version      string
	Kind         DistributionKind
	MetadataPath string // path of the *.dist-info / *.egg-info directory
	Record       []RecordEntry
}

// RecordEntry represents one row of a RECORD file
type RecordEntry struct {
	Path      string
	Algorithm string // "sha256"; empty when the row carries no hash
	Digest    string // urlsafe base64 without padding
	Size      int64  // -1 when unknown
}

// HasHash reports whether the row can be verified
func (r RecordEntry) HasHash() bool {
	return r.Algorithm != "" && r.Digest != ""
}
