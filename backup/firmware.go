package backup

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFirmware writes a firmware image to path. The image is written to a
// temporary file in the same directory and renamed into place, so path
// either holds the complete image or is left untouched.
func WriteFirmware(path string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("firmware image is empty")
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tempFile, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempPath) // no-op after a successful rename
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write firmware image: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync firmware image: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// ReadFirmware reads a firmware image written by WriteFirmware.
func ReadFirmware(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 - image path from caller
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("firmware image %s is empty", path)
	}
	return data, nil
}
