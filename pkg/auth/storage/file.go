package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/joat-cli/joat/pkg/paths"
)

// FileStorage keeps the token in `~/.<app>.joat/.<app>.token`.
type FileStorage struct {
	path string
}

// NewFileStorage creates a file storage for app under homeDir.
func NewFileStorage(homeDir, app string) *FileStorage {
	return &FileStorage{
		path: paths.TokenFile(homeDir, app),
	}
}

// Save writes the token with owner-only permissions.
func (f *FileStorage) Save(_ context.Context, token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "failed to create token directory")
	}

	if err := os.WriteFile(f.path, []byte(token), 0o600); err != nil {
		return errors.Wrap(err, "failed to write token file")
	}

	return nil
}

// Load reads the token file. Surrounding whitespace is ignored.
func (f *FileStorage) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to read token file")
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// Delete removes the token file.
func (f *FileStorage) Delete(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "failed to delete token file")
	}
	return nil
}
