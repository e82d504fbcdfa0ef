package rewrite

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// tmpPattern names the temporary file next to the one being replaced. The
// suffix keeps it out of the walker's extension filter.
const tmpPattern = ".relimport-*.tmp"

// writeFileAtomic replaces path with data through a temp file and rename, so
// readers see either the old or the new content.
func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), tmpPattern)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	if writeErr != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("write temp: %w", writeErr)
	}

	chmodErr := tmp.Chmod(perm)
	if chmodErr != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("chmod temp: %w", chmodErr)
	}

	closeErr := tmp.Close()
	if closeErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("close temp: %w", closeErr)
	}

	renameErr := os.Rename(tmpPath, path)
	if renameErr != nil {
		os.Remove(tmpPath)

		return fmt.Errorf("rename temp: %w", renameErr)
	}

	return nil
}
