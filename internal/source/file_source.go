package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gcbaptista/forum-query-engine/model"
)

// FileSource reads a JSON site dump shaped like model.Batch.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }

// Path returns the dump file location.
func (s *FileSource) Path() string { return s.path }

func (s *FileSource) Load(ctx context.Context) (*model.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open site dump %s: %w", s.path, err)
	}
	defer func() { _ = file.Close() }()

	var batch model.Batch
	if err := json.NewDecoder(file).Decode(&batch); err != nil {
		return nil, fmt.Errorf("failed to decode site dump %s: %w", s.path, err)
	}
	return &batch, nil
}

func (s *FileSource) Close() error { return nil }
