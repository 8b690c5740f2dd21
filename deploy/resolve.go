package deploy

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// NewID generates the name of a clean mode working directory.
type NewID func() string

func newUUID() string {
	return uuid.New().String()
}

// ResolveWorkDir picks the directory a deployment runs in. In clean mode this
// is a new, not yet existing, child of base named by newID. Otherwise it is
// base itself.
func ResolveWorkDir(base string, clean bool, newID NewID) (string, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}
	if !clean {
		return abs, nil
	}
	if newID == nil {
		newID = newUUID
	}
	return filepath.Join(abs, newID()), nil
}
