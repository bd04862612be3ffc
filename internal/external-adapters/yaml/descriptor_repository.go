package yaml

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces"
	"github.com/codekansas/soc/internal/domain/services"
)

// DescriptorRepository implements repositories.DescriptorRepository using YAML files
type DescriptorRepository struct {
	descriptorsDir string
	embedded       []byte
	parser         *DescriptorParser
	log            interfaces.Logger

	once         sync.Once
	defaultDesc  *entities.Descriptor
	defaultError error
}

// NewDescriptorRepository creates a repository over descriptorsDir; embedded is
// the document returned by Default
func NewDescriptorRepository(descriptorsDir string, embedded []byte, log interfaces.Logger) *DescriptorRepository {
	if log == nil {
		log = &interfaces.NoOpLogger{}
	}
	return &DescriptorRepository{
		descriptorsDir: descriptorsDir,
		embedded:       embedded,
		parser:         NewDescriptorParser(),
		log:            log,
	}
}

// Default returns a copy of the embedded descriptor, parsed on first use
func (r *DescriptorRepository) Default(_ context.Context) (*entities.Descriptor, error) {
	r.once.Do(func() {
		if len(r.embedded) == 0 {
			r.defaultError = errors.Wrap(entities.ErrNotFound, "no embedded descriptor")
			return
		}
		r.defaultDesc, r.defaultError = r.parser.Parse(r.embedded)
	})
	if r.defaultError != nil {
		return nil, r.defaultError
	}
	return r.defaultDesc.Clone(), nil
}

// Document returns the raw document at path, or the embedded one when path is empty
func (r *DescriptorRepository) Document(_ context.Context, path string) ([]byte, error) {
	if path == "" {
		if len(r.embedded) == 0 {
			return nil, errors.Wrap(entities.ErrNotFound, "no embedded descriptor")
		}
		return r.embedded, nil
	}

	//nolint:gosec // G304: path is a descriptor path chosen by the user
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(entities.ErrNotFound, "descriptor %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read descriptor %s", path)
	}
	return data, nil
}

// GetDescriptor retrieves a descriptor by package name; file names may use
// either the .yml or .yaml extension
func (r *DescriptorRepository) GetDescriptor(ctx context.Context, name string) (*entities.Descriptor, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		filePath := filepath.Join(r.descriptorsDir, name+ext)
		if _, err := os.Stat(filePath); err == nil {
			return r.parser.ParseFile(filePath)
		}
	}

	// Fall back to matching on the declared name
	all, err := r.ListDescriptors(ctx)
	if err != nil {
		return nil, err
	}
	want := services.NormalizeName(name)
	for _, d := range all {
		if services.NormalizeName(d.Name) == want {
			return d, nil
		}
	}

	return nil, errors.Wrapf(entities.ErrNotFound, "descriptor %s", name)
}

// ListDescriptors returns all descriptors in the directory sorted by name
func (r *DescriptorRepository) ListDescriptors(_ context.Context) ([]*entities.Descriptor, error) {
	entries, err := os.ReadDir(r.descriptorsDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read descriptors directory")
	}

	descriptors := make([]*entities.Descriptor, 0)
	for _, entry := range entries {
		// Skip non-YAML files
		if entry.IsDir() || !(strings.HasSuffix(entry.Name(), ".yml") || strings.HasSuffix(entry.Name(), ".yaml")) {
			continue
		}

		filePath := filepath.Join(r.descriptorsDir, entry.Name())
		d, err := r.parser.ParseFile(filePath)
		if err != nil {
			// Log warning but continue processing other files
			r.log.Warn("skipping descriptor", interfaces.F("file", entry.Name()), interfaces.F("error", err.Error()))
			continue
		}

		descriptors = append(descriptors, d)
	}

	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].Name < descriptors[j].Name })
	return descriptors, nil
}
