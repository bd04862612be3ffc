package gateways

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
	"github.com/codekansas/soc/internal/domain/services"
)

// DefaultIndexURL is the public Python package index
const DefaultIndexURL = "https://pypi.org"

// pypiIndex implements PackageIndex over the PyPI JSON API
type pypiIndex struct {
	baseURL    string
	httpClient *http.Client
}

// NewPyPIIndex creates a new package index client; an empty baseURL uses DefaultIndexURL
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewPyPIIndex(baseURL string, timeout time.Duration) *pypiIndex {
	if baseURL == "" {
		baseURL = DefaultIndexURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &pypiIndex{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// pypiProject is the subset of /pypi/<name>/json the lookup needs
type pypiProject struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"info"`
	Releases map[string][]pypiFile `json:"releases"`
}

type pypiFile struct {
	Filename string `json:"filename"`
	Yanked   bool   `json:"yanked"`
}

// LatestVersion fetches the project document and picks the highest usable release
func (p *pypiIndex) LatestVersion(ctx context.Context, name string, includePre bool) (string, error) {
	project, err := p.fetchProject(ctx, name)
	if err != nil {
		return "", err
	}

	raws := make([]string, 0, len(project.Releases))
	for raw := range project.Releases {
		raws = append(raws, raw)
	}
	sort.Strings(raws)

	var latest *services.Version
	for _, raw := range raws {
		if !available(project.Releases[raw]) {
			continue
		}

		// Releases with non-standard versions are ignored
		v, err := services.ParseVersion(raw)
		if err != nil {
			continue
		}
		if v.IsPrerelease() && !includePre {
			continue
		}
		if latest == nil || v.Compare(latest) > 0 {
			latest = v
		}
	}

	if latest != nil {
		return latest.Raw, nil
	}

	// Old index mirrors only fill in info.version
	if len(project.Releases) == 0 && project.Info.Version != "" {
		return project.Info.Version, nil
	}

	return "", errors.Wrapf(entities.ErrNotFound, "no usable release of %s", name)
}

func (p *pypiIndex) fetchProject(ctx context.Context, name string) (*pypiProject, error) {
	endpoint := p.baseURL + "/pypi/" + url.PathEscape(services.NormalizeName(name)) + "/json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "package index request failed")
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errors.Wrapf(entities.ErrNotFound, "%s is not on the package index", name)
	default:
		return nil, errors.Errorf("package index returned status %d for %s", resp.StatusCode, name)
	}

	var project pypiProject
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return nil, errors.Wrap(err, "failed to parse package index response")
	}
	return &project, nil
}

// available reports whether a release has at least one file that is not yanked
func available(files []pypiFile) bool {
	for _, f := range files {
		if !f.Yanked {
			return true
		}
	}
	return false
}
