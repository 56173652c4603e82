package storage

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/zalando/go-keyring"

	"github.com/joat-cli/joat/pkg/paths"
)

// KeyringStorage keeps the token in the OS keyring under service "joat"
// with the application name as user.
type KeyringStorage struct {
	service string
	user    string
}

// NewKeyringStorage creates a keyring storage for app.
func NewKeyringStorage(app string) *KeyringStorage {
	return &KeyringStorage{
		service: paths.ToolName,
		user:    app,
	}
}

// Save saves a token to the OS keyring.
func (k *KeyringStorage) Save(_ context.Context, token string) error {
	if err := keyring.Set(k.service, k.user, token); err != nil {
		return errors.Wrap(err, "failed to store token in keyring")
	}
	return nil
}

// Load loads a token from the OS keyring.
func (k *KeyringStorage) Load(_ context.Context) (string, error) {
	token, err := keyring.Get(k.service, k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to retrieve token from keyring")
	}
	return token, nil
}

// Delete deletes the token from the OS keyring.
func (k *KeyringStorage) Delete(_ context.Context) error {
	err := keyring.Delete(k.service, k.user)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errors.Wrap(err, "failed to delete token from keyring")
	}
	return nil
}
