package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/joat-cli/joat/pkg/auth/storage"
	errUtils "github.com/joat-cli/joat/pkg/errors"
)

// DefaultRedirectURL is where the authorization server sends the browser back.
const DefaultRedirectURL = "http://localhost:8080"

// OAuth2Provider obtains bearer tokens with the authorization code flow and
// caches them in a TokenStorage. A cached token is reused until it is a JWT
// past its expiry.
type OAuth2Provider struct {
	app           string
	store         storage.TokenStorage
	redirectURL   string
	browserOpener BrowserOpener
	out           io.Writer
	logger        *zap.Logger
}

// Option configures an OAuth2Provider.
type Option func(*OAuth2Provider)

// WithRedirectURL sets the redirect URL served by the local callback
// listener. A port of 0 picks a free port.
func WithRedirectURL(redirectURL string) Option {
	return func(p *OAuth2Provider) {
		p.redirectURL = redirectURL
	}
}

// WithBrowserOpener sets a custom browser opener (useful for testing).
func WithBrowserOpener(opener BrowserOpener) Option {
	return func(p *OAuth2Provider) {
		p.browserOpener = opener
	}
}

// WithOutput sets where user notices are written. Defaults to stderr.
func WithOutput(w io.Writer) Option {
	return func(p *OAuth2Provider) {
		p.out = w
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *OAuth2Provider) {
		p.logger = logger
	}
}

// NewOAuth2Provider creates a provider for app backed by store.
func NewOAuth2Provider(app string, store storage.TokenStorage, opts ...Option) *OAuth2Provider {
	p := &OAuth2Provider{
		app:           app,
		store:         store,
		redirectURL:   DefaultRedirectURL,
		browserOpener: &SystemBrowserOpener{},
		out:           os.Stderr,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Token returns the cached token, running the browser flow when there is
// none or it has expired.
func (p *OAuth2Provider) Token(ctx context.Context, creds Credentials) (string, error) {
	token, err := p.store.Load(ctx)
	switch {
	case err == nil && !TokenExpired(token, time.Now()):
		p.logger.Debug("using cached oauth token", zap.String("app", p.app))
		return token, nil
	case err == nil:
		p.logger.Debug("cached oauth token expired", zap.String("app", p.app))
		if err := p.store.Delete(ctx); err != nil {
			return "", errors.Wrap(err, "removing expired token")
		}
	case !errors.Is(err, storage.ErrNotFound):
		return "", errors.Wrapf(errUtils.ErrOAuth, "loading cached token: %v", err)
	}

	token, err = p.authorizationCode(ctx, creds)
	if err != nil {
		return "", err
	}

	if err := p.store.Save(ctx, token); err != nil {
		return "", errors.Wrap(err, "caching oauth token")
	}
	return token, nil
}

// authorizationCode performs the authorization code flow: it opens the
// consent page, waits for exactly one redirect and exchanges the code.
func (p *OAuth2Provider) authorizationCode(ctx context.Context, creds Credentials) (string, error) {
	listener, redirectURL, err := p.listen()
	if err != nil {
		return "", err
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURL.String(),
		Endpoint: oauth2.Endpoint{
			AuthURL:  creds.AuthURL,
			TokenURL: creds.TokenURL,
		},
	}

	state, err := randomState()
	if err != nil {
		_ = listener.Close()
		return "", err
	}

	server, callbackChan := startCallbackServer(listener, redirectURL.Path, state)
	defer func() { _ = server.Close() }()

	authURL := cfg.AuthCodeURL(state)
	pterm.Info.WithWriter(p.out).Printfln("Authorizing %s, opening browser to:\n%s", p.app, authURL)
	if err := p.browserOpener.Open(authURL); err != nil {
		pterm.Warning.WithWriter(p.out).Printfln("Failed to open browser automatically, please visit the URL above manually.")
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(p.out))
	s.Suffix = " Waiting for authorization..."
	s.Start()
	defer s.Stop()

	select {
	case result := <-callbackChan:
		if result.err != nil {
			return "", result.err
		}

		token, err := cfg.Exchange(ctx, result.code)
		if err != nil {
			return "", errors.Wrapf(errUtils.ErrOAuth, "failed to exchange code for token: %v", err)
		}
		return token.AccessToken, nil

	case <-ctx.Done():
		return "", errors.Wrap(errUtils.ErrOAuth, "authorization cancelled")
	}
}

// listen binds the callback address. The returned URL carries the actual
// port when the configured one was 0.
func (p *OAuth2Provider) listen() (net.Listener, *url.URL, error) {
	u, err := url.Parse(p.redirectURL)
	if err != nil {
		return nil, nil, errors.Wrapf(errUtils.ErrOAuth, "invalid redirect URL %q: %v", p.redirectURL, err)
	}

	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "80")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(errUtils.ErrOAuth, "failed to start callback server: %v", err)
	}

	if u.Port() == "0" {
		port := listener.Addr().(*net.TCPAddr).Port
		u.Host = net.JoinHostPort(u.Hostname(), fmt.Sprint(port))
	}
	return listener, u, nil
}

type callbackResult struct {
	code string
	err  error
}

// startCallbackServer serves the redirect path and reports the first
// callback it receives.
func startCallbackServer(listener net.Listener, path, state string) (*http.Server, <-chan callbackResult) {
	callbackChan := make(chan callbackResult, 1)
	report := func(r callbackResult) {
		select {
		case callbackChan <- r:
		default:
		}
	}

	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "Authentication failed", http.StatusBadRequest)
			report(callbackResult{err: errors.Wrap(errUtils.ErrOAuth, "state mismatch in authorization callback")})
			return
		}

		code := query.Get("code")
		if code == "" {
			http.Error(w, "No authorization code received", http.StatusBadRequest)
			report(callbackResult{err: errors.Wrapf(errUtils.ErrOAuth, "authorization failed: %s", query.Get("error"))})
			return
		}

		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
		report(callbackResult{code: code})
	})

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() { _ = server.Serve(listener) }()

	return server, callbackChan
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generating oauth state")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
