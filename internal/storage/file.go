package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// File stores each key as a file under a base directory. Writes go to a
// temp file first and are renamed into place, so a crash mid-write never
// leaves a half-written blob behind.
type File struct {
	baseDir string
}

func NewFile(baseDir string) (*File, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &File{baseDir: baseDir}, nil
}

func (f *File) Read(key string) ([]byte, bool, error) {
	path, err := f.pathFor(key)
	if err != nil {
		return nil, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

func (f *File) Write(key string, data []byte) error {
	path, err := f.pathFor(key)
	if err != nil {
		return err
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

func (f *File) Close() error {
	return nil
}

func (f *File) pathFor(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(f.baseDir, key+".json"), nil
}
