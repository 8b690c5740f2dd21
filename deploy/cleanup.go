package deploy

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// Cleanup removes a clean mode working directory unless keep is set.
// It reports whether the directory was removed; a failure to remove it is
// logged as a warning and returned for the outcome, never as a pipeline error.
func Cleanup(clean, keep bool, base, workDir string) (bool, error) {
	if !clean {
		return false, nil
	}
	if keep {
		log.Info("Keeping checkout directory", "dir", workDir)
		return false, nil
	}

	if err := removeWorkDir(base, workDir); err != nil {
		log.Warn("Failed to remove checkout directory", "dir", workDir, "error", err)
		return false, err
	}

	log.Info("Removed checkout directory", "dir", workDir)
	return true, nil
}

func removeWorkDir(base, workDir string) error {
	if workDir == "" {
		return fmt.Errorf("%w: empty path", ErrUnsafeCleanupDir)
	}
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return err
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return err
	}
	if absDir == absBase || filepath.Dir(absDir) == absDir {
		return fmt.Errorf("%w: %s", ErrUnsafeCleanupDir, workDir)
	}
	return os.RemoveAll(absDir)
}
