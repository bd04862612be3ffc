package gateways

import (
	"bufio"
	"context"
	"encoding/csv"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces"
	"github.com/codekansas/soc/internal/domain/services"
)

// sitePackagesGateway implements EnvironmentGateway over a site-packages directory
type sitePackagesGateway struct {
	dir string
	log interfaces.Logger
}

// NewSitePackagesGateway creates a gateway reading installed metadata from dir
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewSitePackagesGateway(dir string, log interfaces.Logger) *sitePackagesGateway {
	if log == nil {
		log = &interfaces.NoOpLogger{}
	}
	return &sitePackagesGateway{dir: dir, log: log}
}

// ListDistributions returns every distribution with readable metadata, sorted by name
func (g *sitePackagesGateway) ListDistributions(ctx context.Context) ([]*entities.Distribution, error) {
	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read site-packages %s", g.dir)
	}

	dists := make([]*entities.Distribution, 0)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := entry.Name()
		var (
			dist *entities.Distribution
			err  error
		)
		switch {
		case strings.HasSuffix(name, ".dist-info") && entry.IsDir():
			dist, err = g.readDistInfo(filepath.Join(g.dir, name))
		case strings.HasSuffix(name, ".egg-info"):
			dist, err = g.readEggInfo(filepath.Join(g.dir, name), entry.IsDir())
		default:
			continue
		}

		if err != nil {
			g.log.Warn("skipping unreadable distribution", interfaces.F("path", name), interfaces.F("error", err.Error()))
			continue
		}
		dists = append(dists, dist)
	}

	sort.Slice(dists, func(i, j int) bool {
		return services.NormalizeName(dists[i].Name) < services.NormalizeName(dists[j].Name)
	})
	return dists, nil
}

// FindDistribution looks a distribution up by normalized name
func (g *sitePackagesGateway) FindDistribution(ctx context.Context, name string) (*entities.Distribution, error) {
	dists, err := g.ListDistributions(ctx)
	if err != nil {
		return nil, err
	}

	want := services.NormalizeName(name)
	for _, d := range dists {
		if services.NormalizeName(d.Name) == want {
			return d, nil
		}
	}
	return nil, errors.Wrapf(entities.ErrNotFound, "distribution %s", name)
}

func (g *sitePackagesGateway) readDistInfo(dir string) (*entities.Distribution, error) {
	dist, err := readMetadataFile(filepath.Join(dir, "METADATA"), dir)
	if err != nil {
		return nil, err
	}
	dist.Kind = entities.KindDistInfo

	record, err := readRecord(filepath.Join(dir, "RECORD"))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	dist.Record = record

	return dist, nil
}

// readEggInfo handles both the directory layout and the single PKG-INFO file
// that older installers write as "<name>.egg-info"
func (g *sitePackagesGateway) readEggInfo(path string, isDir bool) (*entities.Distribution, error) {
	metadata := path
	if isDir {
		metadata = filepath.Join(path, "PKG-INFO")
	}

	dist, err := readMetadataFile(metadata, path)
	if err != nil {
		return nil, err
	}
	dist.Kind = entities.KindEggInfo
	return dist, nil
}

func readMetadataFile(path, metadataPath string) (*entities.Distribution, error) {
	//nolint:gosec // G304: path points into the site-packages directory being inspected
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open metadata")
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	dist, err := ParseMetadata(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	dist.MetadataPath = metadataPath

	if dist.Name == "" || dist.Version == "" {
		name, version := splitInfoName(filepath.Base(metadataPath))
		if dist.Name == "" {
			dist.Name = name
		}
		if dist.Version == "" {
			dist.Version = version
		}
	}
	if dist.Name == "" {
		return nil, errors.New("metadata has no Name")
	}

	return dist, nil
}

// ParseMetadata reads the RFC 822 header block of a METADATA / PKG-INFO file
func ParseMetadata(r io.Reader) (*entities.Distribution, error) {
	tp := textproto.NewReader(bufio.NewReader(r))

	header, err := tp.ReadMIMEHeader()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "read metadata headers")
	}

	return &entities.Distribution{
		Name:    strings.TrimSpace(header.Get("Name")),
		Version: strings.TrimSpace(header.Get("Version")),
	}, nil
}

// splitInfoName splits "numpy-1.12.0.dist-info" into name and version
func splitInfoName(base string) (string, string) {
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".dist-info"), ".egg-info")
	name, version, _ := strings.Cut(base, "-")
	// egg-info names may carry a "-py3.8" suffix
	version, _, _ = strings.Cut(version, "-py")
	return strings.ReplaceAll(name, "_", "-"), version
}

func readRecord(path string) ([]entities.RecordEntry, error) {
	//nolint:gosec // G304: path points into the site-packages directory being inspected
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	return ParseRecord(f)
}

// ParseRecord reads a RECORD file: "path,algorithm=digest,size" per row
func ParseRecord(r io.Reader) ([]entities.RecordEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var entries []entities.RecordEntry
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read RECORD")
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}

		entry := entities.RecordEntry{Path: row[0], Size: -1}
		if len(row) > 1 && row[1] != "" {
			algorithm, digest, ok := strings.Cut(row[1], "=")
			if !ok {
				return nil, errors.Errorf("RECORD %s: malformed hash %q", row[0], row[1])
			}
			entry.Algorithm = algorithm
			entry.Digest = digest
		}
		if len(row) > 2 && row[2] != "" {
			size, err := strconv.ParseInt(row[2], 10, 64)
			if err != nil {
				return nil, errors.Wrapf(err, "RECORD %s: size", row[0])
			}
			entry.Size = size
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
