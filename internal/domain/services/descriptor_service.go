package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/interfaces"
	"github.com/codekansas/soc/internal/domain/interfaces/gateways"
	"github.com/codekansas/soc/internal/domain/interfaces/repositories"
	"github.com/codekansas/soc/internal/domain/interfaces/services"
)

// descriptorService implements DescriptorService
type descriptorService struct {
	repo      repositories.DescriptorRepository
	codec     gateways.DescriptorCodec
	validator gateways.SchemaValidator
	log       interfaces.Logger
}

// NewDescriptorService creates a new descriptor service with dependency injection
func NewDescriptorService(
	repo repositories.DescriptorRepository,
	codec gateways.DescriptorCodec,
	validator gateways.SchemaValidator,
	log interfaces.Logger,
) services.DescriptorService {
	if log == nil {
		log = &interfaces.NoOpLogger{}
	}
	return &descriptorService{repo: repo, codec: codec, validator: validator, log: log}
}

// Load returns a validated descriptor; any error-level issue fails the load
func (s *descriptorService) Load(ctx context.Context, path string) (*entities.Descriptor, error) {
	d, report, err := s.Validate(ctx, path)
	if err != nil {
		return nil, err
	}

	for _, w := range report.Warnings() {
		s.log.Debug("descriptor warning", interfaces.F("field", w.Field), interfaces.F("message", w.Message))
	}

	if !report.Valid() {
		msgs := make([]string, 0, len(report.Errors()))
		for _, issue := range report.Errors() {
			msgs = append(msgs, issue.Field+": "+issue.Message)
		}
		return nil, errors.Wrap(entities.ErrInvalidDescriptor, strings.Join(msgs, "; "))
	}

	return d, nil
}

// Validate checks the raw document against the schema, then parses it and
// applies the descriptor rules. Schema violations skip rule validation.
func (s *descriptorService) Validate(ctx context.Context, path string) (*entities.Descriptor, *entities.ValidationReport, error) {
	source := path
	if source == "" {
		source = "<embedded>"
	}
	log := s.log.With(interfaces.F("descriptor", source))

	data, err := s.repo.Document(ctx, path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "read descriptor")
	}

	report := &entities.ValidationReport{}

	if s.validator != nil {
		issues, err := s.validator.ValidateDocument(data)
		if err != nil {
			return nil, nil, errors.Wrap(err, "schema validation")
		}
		if len(issues) > 0 {
			log.Warn("descriptor does not match schema", interfaces.F("issues", len(issues)))
			report.Issues = append(report.Issues, issues...)
			return nil, report, nil
		}
	}

	d, err := s.codec.Parse(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse descriptor")
	}

	report.Issues = append(report.Issues, ValidateDescriptor(d).Issues...)
	log.Debug("descriptor validated",
		interfaces.F("name", d.Name),
		interfaces.F("errors", len(report.Errors())),
		interfaces.F("warnings", len(report.Warnings())))

	return d, report, nil
}
