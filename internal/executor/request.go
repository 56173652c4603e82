package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/joat-cli/joat/pkg/auth"
	"github.com/joat-cli/joat/pkg/config"
	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/output"
	"github.com/joat-cli/joat/pkg/scope"
	"github.com/joat-cli/joat/pkg/secrets"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

func (d *Dispatcher) runRequest(ctx context.Context, scmd *config.Subcommand, action *config.RequestAction, s scope.Scope) error {
	req, err := d.buildRequest(ctx, action, s)
	if err != nil {
		return err
	}
	d.logger.Debug("sending request",
		zap.String("subcommand", scmd.Name),
		zap.String("method", req.Method),
		zap.String("endpoint", secrets.MaskURL(req.URL)),
		zap.Any("headers", secrets.MaskHeaders(req.Header)))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(errUtils.ErrTransport, "%s %s: %v", req.Method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(errUtils.ErrTransport, "reading response of %s %s: %v", req.Method, req.URL, err)
	}
	d.logger.Debug("received response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(body)))

	return d.renderer.Render(s, scmd.ResponseTemplate, output.NewResponse(resp.StatusCode, body, resp.Header))
}

// buildRequest expands every templated part of action into an HTTP request.
func (d *Dispatcher) buildRequest(ctx context.Context, action *config.RequestAction, s scope.Scope) (*http.Request, error) {
	r := valueResolver{expand: d.expand, data: s.Data()}

	method, err := d.method(r, action.Method)
	if err != nil {
		return nil, err
	}

	endpoint, err := d.endpoint(r, action)
	if err != nil {
		return nil, err
	}

	headers, err := r.shallow("headers", d.tree.Headers)
	if err != nil {
		return nil, err
	}

	if d.tree.OAuth != nil {
		key, token, err := d.bearer(ctx, r)
		if err != nil {
			return nil, err
		}
		headers[key] = token
	}

	body, contentType, err := requestBody(r, action)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errors.Wrapf(errUtils.ErrInvalidConfig, "invalid request %s %s: %v", method, endpoint, err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	return req, nil
}

func (d *Dispatcher) method(r valueResolver, declared string) (string, error) {
	if declared == "" {
		declared = config.DefaultMethod
	}
	m, err := r.expand("method", declared, r.data)
	if err != nil {
		return "", err
	}
	m = strings.TrimSpace(m)
	if !config.IsValidMethod(m) {
		return "", errors.Wrapf(errUtils.ErrInvalidConfig, "unsupported method %q", m)
	}
	return strings.ToUpper(m), nil
}

// endpoint joins base_endpoint and path, appends the query parameters unless
// the result already has a query, then expands the whole string.
func (d *Dispatcher) endpoint(r valueResolver, action *config.RequestAction) (string, error) {
	raw := d.tree.BaseEndpoint + action.Path

	params := lo.Assign(d.tree.QueryParams, action.QueryParams)
	if !strings.Contains(raw, "?") && len(params) > 0 {
		values, err := r.shallow("query_params", params)
		if err != nil {
			return "", err
		}

		pairs := make([]string, 0, len(values))
		for _, k := range slices.Sorted(maps.Keys(values)) {
			pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(values[k]))
		}
		if len(pairs) > 0 {
			raw += "?" + strings.Join(pairs, "&")
		}
	}

	return r.expand("endpoint", raw, r.data)
}

// bearer expands the oauth block and asks the token provider for a token.
func (d *Dispatcher) bearer(ctx context.Context, r valueResolver) (string, string, error) {
	if d.tokens == nil {
		return "", "", errors.Wrap(errUtils.ErrOAuth, "no token provider configured")
	}

	o := d.tree.OAuth
	fields, err := r.shallow("oauth", map[string]any{
		"client_id":     o.ClientID,
		"client_secret": o.ClientSecret,
		"auth_url":      o.AuthURL,
		"token_url":     o.TokenURL,
		"header_key":    o.HeaderKey,
	})
	if err != nil {
		return "", "", err
	}

	token, err := d.tokens.Token(ctx, auth.Credentials{
		ClientID:     fields["client_id"],
		ClientSecret: fields["client_secret"],
		AuthURL:      fields["auth_url"],
		TokenURL:     fields["token_url"],
	})
	if err != nil {
		return "", "", err
	}
	return fields["header_key"], token, nil
}

// requestBody encodes the form when one is declared, otherwise the JSON body.
// Subcommands declaring neither send no body.
func requestBody(r valueResolver, action *config.RequestAction) (io.Reader, string, error) {
	if len(action.Form) > 0 {
		form, err := r.deep("form", action.Form)
		if err != nil {
			return nil, "", err
		}
		values := url.Values{}
		for k, v := range form {
			s, err := formValue(v)
			if err != nil {
				return nil, "", err
			}
			values.Set(k, s)
		}
		return strings.NewReader(values.Encode()), contentTypeForm, nil
	}

	if len(action.Body) > 0 {
		body, err := r.deep("body", action.Body)
		if err != nil {
			return nil, "", err
		}
		b, err := json.Marshal(body)
		if err != nil {
			return nil, "", errors.Wrap(err, "failed to encode request body")
		}
		return bytes.NewReader(b), contentTypeJSON, nil
	}

	return nil, "", nil
}
