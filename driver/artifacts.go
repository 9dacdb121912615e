package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Artifacts writes diagnostic screenshots into one directory. Every capture
// gets a fresh name, so concurrent writers never need a lock and no file is
// ever overwritten.
type Artifacts struct {
	Dir string
}

// NewArtifacts returns a store rooted at dir.
func NewArtifacts(dir string) *Artifacts {
	return &Artifacts{Dir: dir}
}

// Save writes a PNG as <tag>_<uuid>.png and returns its path.
func (a *Artifacts) Save(tag string, png []byte) (string, error) {
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", fmt.Errorf("creating screenshot directory %s: %w", a.Dir, err)
	}
	path := filepath.Join(a.Dir, fmt.Sprintf("%s_%s.png", tag, uuid.NewString()))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating screenshot %s: %w", path, err)
	}
	if _, err := f.Write(png); err != nil {
		f.Close()
		return "", fmt.Errorf("writing screenshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing screenshot %s: %w", path, err)
	}
	return path, nil
}
