package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/omnivore-export/pkg/client"
	"github.com/gosimple/slug"
)

// ErrMissingSlug is returned for an item without slug or id to name its file after.
var ErrMissingSlug = errors.New("item has no slug")

// FileSink writes each item's content to <dir>/<slug>.md.
type FileSink struct {
	dir string
}

// NewFileSink creates dir if needed and returns a sink writing into it.
// An existing directory is not an error.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Name implements Sink.
func (s *FileSink) Name() string {
	return "file"
}

// Dir returns the output directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// Path returns the file an item is written to.
func (s *FileSink) Path(item client.Item) (string, error) {
	name, err := fileName(item)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+".md"), nil
}

// Write implements Sink. The file holds the item's content byte for byte.
func (s *FileSink) Write(_ context.Context, item client.Item) (int, error) {
	path, err := s.Path(item)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, []byte(item.Content), 0o644); err != nil {
		return 0, err
	}
	return len(item.Content), nil
}

// Close implements Sink.
func (s *FileSink) Close() error {
	return nil
}

// fileName returns the item key unchanged unless it could leave the output
// directory, in which case it is slugified.
func fileName(item client.Item) (string, error) {
	key := item.Key()
	if key == "" {
		return "", ErrMissingSlug
	}
	if key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		key = slug.Make(key)
		if key == "" {
			return "", fmt.Errorf("%w: %q", ErrMissingSlug, item.Key())
		}
	}
	return key, nil
}
