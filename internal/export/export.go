// Package export writes generated images to disk.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nafisa/promptpix/pkg/models"
)

var ErrNoImageData = errors.New("image has no data to export")

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// Export writes the image payload to path. An empty path falls back to the
// deterministic default name derived from the image id. It returns the
// path actually written.
func (e *Exporter) Export(img *models.GeneratedImage, path string) (string, error) {
	if img == nil || len(img.ImageData) == 0 {
		return "", ErrNoImageData
	}

	if path == "" {
		path = DefaultFilename(img)
	}

	if err := ensureDir(path); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, img.ImageData, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// DefaultFilename is deterministic for a given image: the same entry always
// exports to the same name.
func DefaultFilename(img *models.GeneratedImage) string {
	return fmt.Sprintf("promptpix-%s.%s", img.ID, img.Ext())
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
