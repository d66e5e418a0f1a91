package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/go-pkgz/lgr"
)

// Files keeps every key as a separate .json file in the location directory
type Files struct {
	location string
}

// NewFiles makes file-backed KV for given location, the directory is created if missing
func NewFiles(location string) (*Files, error) {
	if err := os.MkdirAll(location, 0o700); err != nil {
		return nil, fmt.Errorf("failed to make store location %s: %w", location, err)
	}
	return &Files{location: location}, nil
}

// Get reads the file for the key
func (f *Files) Get(key string) ([]byte, error) {
	fname, err := f.fileName(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fname) // #nosec G304 - name is validated by fileName
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", fname, err)
	}
	return data, nil
}

// Set writes value to a temp file and renames it over the key file
func (f *Files) Set(key string, value []byte) error {
	fname, err := f.fileName(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.location, ".jobsync-tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			log.Printf("[WARN] can't remove temp file %s, %v", tmpName, rmErr)
		}
	}

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file for %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file for %s: %w", key, err)
	}
	if err := os.Rename(tmpName, fname); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename temp file to %s: %w", fname, err)
	}
	log.Printf("[DEBUG] stored %s, %d bytes", fname, len(value))
	return nil
}

// Delete removes the key file. Safe to call for missing keys
func (f *Files) Delete(key string) error {
	fname, err := f.fileName(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fname); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", fname, err)
	}
	return nil
}

func (f *Files) String() string {
	return fmt.Sprintf("files:%s", f.location)
}

func (f *Files) fileName(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(f.location, key+".json"), nil
}
