package bootstrap

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"cybersentinel/pkg/models"
)

//go:embed fallback.json
var fallbackJSON []byte

// FileSource reads a dataset document from disk.
type FileSource struct {
	name string
	path string
}

// NewFileSource creates a file source reported under name.
func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

func (s *FileSource) Name() string { return s.name }

func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return raw, nil
}

// BytesSource serves a fixed document.
type BytesSource struct {
	name string
	raw  []byte
}

// NewBytesSource creates a source that always returns raw.
func NewBytesSource(name string, raw []byte) *BytesSource {
	return &BytesSource{name: name, raw: raw}
}

func (s *BytesSource) Name() string { return s.name }

func (s *BytesSource) Fetch(ctx context.Context) ([]byte, error) {
	if len(s.raw) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	return s.raw, nil
}

// Fallback returns the built-in dataset, the last link of every chain.
func Fallback() *BytesSource {
	return NewBytesSource("fallback", fallbackJSON)
}

// FallbackDataset decodes the built-in dataset.
func FallbackDataset() (*models.Dataset, error) {
	return Decode(fallbackJSON)
}
