package gateways

import (
	"context"

	"github.com/codekansas/soc/internal/domain/entities"
)

// AdvisoryGateway looks up published vulnerabilities for a distribution version
type AdvisoryGateway interface {
	QueryAdvisories(ctx context.Context, name, version string) ([]entities.Advisory, error)
}
