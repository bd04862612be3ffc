package gateways

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/go-faster/errors"

	"github.com/codekansas/soc/internal/domain/entities"
)

// scriptLocator finds console scripts either in a fixed bin directory or on PATH
type scriptLocator struct {
	binDir string
}

// NewScriptLocator creates a locator; an empty binDir searches PATH
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewScriptLocator(binDir string) *scriptLocator {
	return &scriptLocator{binDir: binDir}
}

// LocateScript returns the path of an executable named name
func (l *scriptLocator) LocateScript(name string) (string, error) {
	if l.binDir == "" {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", errors.Wrapf(entities.ErrNotFound, "%s on PATH", name)
		}
		return path, nil
	}

	path := filepath.Join(l.binDir, name)
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.Wrapf(entities.ErrNotFound, "%s in %s", name, l.binDir)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", errors.Errorf("%s is not executable", path)
	}
	return path, nil
}
