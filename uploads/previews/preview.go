package uploads

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// DefaultPreviewWidth is the thumbnail width shown in the upload queue.
const DefaultPreviewWidth = 200

// Generator writes preview thumbnails for queued image files to a local
// directory. Each preview is owned by exactly one queue entry and removed
// when that entry leaves the queue.
type Generator struct {
	dir   string
	width int
}

func NewGenerator(dir string, width int) (*Generator, error) {
	if width <= 0 {
		width = DefaultPreviewWidth
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return &Generator{dir: dir, width: width}, nil
}

// Generate decodes an uploaded image and writes a resized thumbnail,
// returning its path.
func (g *Generator) Generate(data []byte, fileID string) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	// Resize while preserving aspect ratio
	preview := imaging.Resize(img, g.width, 0, imaging.Lanczos)

	previewPath := filepath.Join(g.dir, fileID+".jpg")
	if err := imaging.Save(preview, previewPath); err != nil {
		return "", fmt.Errorf("failed to save preview: %w", err)
	}
	return previewPath, nil
}

// Remove releases a preview file. Callers guarantee exactly-once release.
func (g *Generator) Remove(path string) error {
	return os.Remove(path)
}
