package executor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joat-cli/joat/pkg/config"
	errUtils "github.com/joat-cli/joat/pkg/errors"
)

func TestBuildRequest_Endpoint(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		treeQP   map[string]any
		action   *config.RequestAction
		args     map[string]any
		expected string
	}{
		{
			name:     "base and path",
			base:     "http://x/",
			action:   &config.RequestAction{Path: "items"},
			expected: "http://x/items",
		},
		{
			name:     "subcommand query wins",
			base:     "http://x/",
			treeQP:   map[string]any{"q": "tree", "limit": "10"},
			action:   &config.RequestAction{Path: "items", QueryParams: map[string]any{"q": "scmd"}},
			expected: "http://x/items?limit=10&q=scmd",
		},
		{
			name:     "existing query keeps params out",
			base:     "http://x/",
			treeQP:   map[string]any{"q": "tree"},
			action:   &config.RequestAction{Path: "items?page=2"},
			expected: "http://x/items?page=2",
		},
		{
			name:     "null params skipped",
			base:     "http://x/",
			action:   &config.RequestAction{Path: "items", QueryParams: map[string]any{"q": nil}},
			expected: "http://x/items",
		},
		{
			name:     "values escaped",
			base:     "http://x/",
			action:   &config.RequestAction{Path: "items", QueryParams: map[string]any{"q": "{{ .args.name }}"}},
			args:     map[string]any{"name": "a b&c"},
			expected: "http://x/items?q=a+b%26c",
		},
		{
			name:     "keys escaped",
			base:     "http://x/",
			action:   &config.RequestAction{Path: "items", QueryParams: map[string]any{"filter[a&b]": "1"}},
			expected: "http://x/items?filter%5Ba%26b%5D=1",
		},
		{
			name:     "scalar params",
			base:     "http://x/",
			action:   &config.RequestAction{Path: "items", QueryParams: map[string]any{"page": 2}},
			expected: "http://x/items?page=2",
		},
		{
			name:     "templated path",
			base:     "http://x/{{ .vars.team }}/",
			action:   &config.RequestAction{Path: "items/{{ .args.id }}"},
			args:     map[string]any{"id": "7"},
			expected: "http://x/core/items/7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := &config.CommandTree{BaseEndpoint: tt.base, QueryParams: tt.treeQP}
			d := newTestDispatcher(t, tree, io.Discard)

			req, err := d.buildRequest(context.Background(), tt.action, testScope(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.URL.String())
		})
	}
}

func TestBuildRequest_Method(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		expected string
		wantErr  bool
	}{
		{name: "default", method: "", expected: http.MethodGet},
		{name: "lowercase", method: "post", expected: http.MethodPost},
		{name: "templated", method: "{{ .args.verb }}", expected: http.MethodDelete},
		{name: "unknown", method: "fetch", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDispatcher(t, &config.CommandTree{BaseEndpoint: "http://x"}, io.Discard)
			action := &config.RequestAction{Path: "/", Method: tt.method}

			req, err := d.buildRequest(context.Background(), action, testScope(map[string]any{"verb": "delete"}))
			if tt.wantErr {
				assert.True(t, errors.Is(err, errUtils.ErrInvalidConfig), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, req.Method)
		})
	}
}

func TestBuildRequest_JSONBody(t *testing.T) {
	d := newTestDispatcher(t, &config.CommandTree{BaseEndpoint: "http://x"}, io.Discard)
	action := &config.RequestAction{
		Path:   "/",
		Method: "post",
		Body: map[string]any{
			"count":   "42",
			"ratio":   "-1.5e3",
			"enabled": "true",
			"name":    "{{ .args.name }}",
			"zip":     "01234",
			"omitted": "{{ get .args \"missing\" | default \"[[empty]]\" }}",
			"nested": map[string]any{
				"owner": "{{ .env.USER }}",
				"tags":  []any{"a", "[[empty]]", "false"},
			},
			"literal": 3,
		},
	}

	req, err := d.buildRequest(context.Background(), action, testScope(map[string]any{"name": "widget"}))
	require.NoError(t, err)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"count": 42,
		"ratio": -1.5e3,
		"enabled": true,
		"name": "widget",
		"zip": "01234",
		"nested": {"owner": "tester", "tags": ["a", false]},
		"literal": 3
	}`, string(raw))
}

func TestBuildRequest_Form(t *testing.T) {
	d := newTestDispatcher(t, &config.CommandTree{BaseEndpoint: "http://x"}, io.Discard)
	action := &config.RequestAction{
		Path:   "/",
		Method: "post",
		Body:   map[string]any{"ignored": "yes"},
		Form: map[string]any{
			"user":  "{{ .args.user }}",
			"age":   "30",
			"debug": "[[empty]]",
		},
	}

	req, err := d.buildRequest(context.Background(), action, testScope(map[string]any{"user": "ann"}))
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	values, err := url.ParseQuery(string(raw))
	require.NoError(t, err)
	assert.Equal(t, url.Values{"user": {"ann"}, "age": {"30"}}, values)
}

func TestBuildRequest_Headers(t *testing.T) {
	tree := &config.CommandTree{
		BaseEndpoint: "http://x",
		Headers: map[string]any{
			"X-Team":       "{{ .vars.team }}",
			"X-Skipped":    nil,
			"Content-Type": "application/vnd.api+json",
		},
	}
	d := newTestDispatcher(t, tree, io.Discard)

	req, err := d.buildRequest(context.Background(), &config.RequestAction{Path: "/", Body: map[string]any{"a": "b"}}, testScope(nil))
	require.NoError(t, err)
	assert.Equal(t, "core", req.Header.Get("X-Team"))
	assert.Empty(t, req.Header.Values("X-Skipped"))
	assert.Equal(t, "application/vnd.api+json", req.Header.Get("Content-Type"))
}

func TestBuildRequest_NestedHeaderRejected(t *testing.T) {
	tree := &config.CommandTree{
		BaseEndpoint: "http://x",
		Headers:      map[string]any{"X-Bad": map[string]any{"a": "b"}},
	}
	d := newTestDispatcher(t, tree, io.Discard)

	_, err := d.buildRequest(context.Background(), &config.RequestAction{Path: "/"}, testScope(nil))
	assert.True(t, errors.Is(err, errUtils.ErrInvalidConfig), "got %v", err)
}

func TestBuildRequest_OAuth(t *testing.T) {
	tree := &config.CommandTree{
		BaseEndpoint: "http://x",
		OAuth: &config.OAuth{
			ClientID:     "{{ .vars.team }}-client",
			ClientSecret: "{{ .env.USER }}",
			AuthURL:      "https://auth/authorize",
			TokenURL:     "https://auth/token",
			HeaderKey:    "Authorization",
		},
	}
	tokens := &staticTokens{token: "Bearer abc"}
	d := newTestDispatcher(t, tree, io.Discard, func(c *Config) { c.Tokens = tokens })

	req, err := d.buildRequest(context.Background(), &config.RequestAction{Path: "/"}, testScope(nil))
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
	assert.Equal(t, "core-client", tokens.got.ClientID)
	assert.Equal(t, "tester", tokens.got.ClientSecret)
	assert.Equal(t, "https://auth/token", tokens.got.TokenURL)
}

func TestBuildRequest_OAuthWithoutProvider(t *testing.T) {
	tree := &config.CommandTree{BaseEndpoint: "http://x", OAuth: &config.OAuth{HeaderKey: "Authorization"}}
	d := newTestDispatcher(t, tree, io.Discard)

	_, err := d.buildRequest(context.Background(), &config.RequestAction{Path: "/"}, testScope(nil))
	assert.True(t, errors.Is(err, errUtils.ErrOAuth), "got %v", err)
}

func TestBuildRequest_TemplateError(t *testing.T) {
	d := newTestDispatcher(t, &config.CommandTree{BaseEndpoint: "http://x"}, io.Discard)

	_, err := d.buildRequest(context.Background(), &config.RequestAction{Path: "/{{ .args.missing }}"}, testScope(nil))
	assert.True(t, errors.Is(err, errUtils.ErrTemplate), "got %v", err)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in       string
		expected any
	}{
		{in: "42", expected: json.Number("42")},
		{in: "-0.5", expected: json.Number("-0.5")},
		{in: "1e10", expected: json.Number("1e10")},
		{in: "true", expected: true},
		{in: "false", expected: false},
		{in: "True", expected: "True"},
		{in: "007", expected: "007"},
		{in: "1.", expected: "1."},
		{in: "", expected: ""},
		{in: "hello", expected: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, Coerce(tt.in))
		})
	}
}
