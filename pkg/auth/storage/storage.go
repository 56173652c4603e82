// Package storage persists the OAuth bearer token of an application.
package storage

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Storage types accepted by oauth.token_storage.
const (
	TypeFile    = "file"
	TypeKeyring = "keyring"
)

// ErrNotFound is returned by Load when no token is stored.
var ErrNotFound = errors.New("token not found")

// TokenStorage stores the raw token string of one application.
type TokenStorage interface {
	// Save stores a token, replacing any previous one.
	Save(ctx context.Context, token string) error
	// Load returns the stored token or ErrNotFound.
	Load(ctx context.Context) (string, error)
	// Delete removes the stored token. Deleting a missing token is not an error.
	Delete(ctx context.Context) error
}

// New creates the storage of kind for app. An empty kind selects file
// storage under homeDir.
func New(kind, homeDir, app string) (TokenStorage, error) {
	switch kind {
	case "", TypeFile:
		return NewFileStorage(homeDir, app), nil
	case TypeKeyring:
		return NewKeyringStorage(app), nil
	default:
		return nil, errors.Newf("unsupported token storage type: %s", kind)
	}
}
