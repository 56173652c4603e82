// Package auth obtains the bearer token injected into requests of a command
// tree that declares an oauth block.
//
// The token is read from a cache first (a file under the application's
// directory, or the OS keyring). Only when nothing usable is cached does the
// authorization code flow run: the consent page opens in a browser and a
// local listener waits for the redirect.
package auth

import (
	"context"
)

// Credentials are the expanded oauth fields of a command tree.
type Credentials struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
}

// TokenProvider returns a bearer token for the configured application.
type TokenProvider interface {
	Token(ctx context.Context, creds Credentials) (string, error)
}
