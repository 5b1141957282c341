// internal/storage/archive/interface.go
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Read when nothing is stored at a path.
var ErrNotFound = errors.New("archive: not found")

// Storage defines the interface for run report and snapshot backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Open returns the backend named by kind. An empty kind disables archiving
// and returns a nil Storage.
func Open(kind, path string, s3cfg S3Config) (Storage, error) {
	switch kind {
	case "":
		return nil, nil
	case "localfs":
		fs, err := NewLocalFS(path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "s3":
		s, err := NewS3(s3cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown archive type %q", kind)
	}
}

// WriteJSON marshals v as indented JSON and stores it at path.
func WriteJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return s.Write(ctx, path, data)
}

// ReadJSON loads path and unmarshals it into v.
func ReadJSON(ctx context.Context, s Storage, path string, v any) error {
	data, err := s.Read(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshaling %s: %w", path, err)
	}
	return nil
}
