// Package assets stores image blobs for image blocks and watches the asset
// tree for changes made by other processes.
package assets

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const dataURLPrefix = "data:image/png;base64,"

// Store writes image data under <root>/<docID>/<blockID>.png.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the asset root directory.
func (s *Store) Root() string { return s.root }

// SaveImage decodes a base64 data URL and writes it as the block's image
// file, returning the stored path for use as the block's image reference.
func (s *Store) SaveImage(docID, blockID, dataURL string) (string, error) {
	dir := filepath.Join(s.root, docID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("mkdir for image: %w", err)
	}
	data, err := decodeDataURL(dataURL)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	path := filepath.Join(dir, blockID+".png")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

// ImageData reads a stored image back as a base64 data URL.
func (s *Store) ImageData(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// DeleteImage removes a stored image; a missing file is not an error.
func (s *Store) DeleteImage(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

func decodeDataURL(dataURL string) ([]byte, error) {
	encoded := dataURL
	if strings.HasPrefix(dataURL, dataURLPrefix) {
		encoded = dataURL[len(dataURLPrefix):]
	}
	return base64.StdEncoding.DecodeString(encoded)
}
