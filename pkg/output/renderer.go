// Package output renders the result of a request subcommand.
package output

import (
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/joat-cli/joat/pkg/config"
	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/scope"
)

// TemplateRenderer renders a named template.
type TemplateRenderer interface {
	Render(name string, data any) (string, error)
}

// Response is a completed HTTP exchange as seen by templates.
type Response struct {
	StatusCode int
	Body       any
	Headers    map[string]any
}

// NewResponse builds a Response from a status, raw body and headers.
func NewResponse(status int, body []byte, header http.Header) *Response {
	return &Response{
		StatusCode: status,
		Body:       ParseBody(body),
		Headers:    FlattenHeaders(header),
	}
}

// FlattenHeaders lowercases header names and joins repeated values with ", ".
func FlattenHeaders(header http.Header) map[string]any {
	out := make(map[string]any, len(header))
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		name := strings.ToLower(k)
		value := strings.Join(header[k], ", ")
		if prev, ok := out[name].(string); ok {
			value = prev + ", " + value
		}
		out[name] = value
	}
	return out
}

// Renderer prints responses following the output flags of a subcommand.
type Renderer struct {
	out       io.Writer
	json      *JSONFormatter
	templates TemplateRenderer
}

// NewRenderer creates a renderer writing to out and resolving named
// templates with templates.
func NewRenderer(out io.Writer, templates TemplateRenderer) *Renderer {
	return &Renderer{
		out:       out,
		json:      NewJSONFormatter(),
		templates: templates,
	}
}

// Render prints resp. The first matching rule applies:
//
//   - quiet: nothing is printed
//   - raw_response: compact JSON
//   - --template json: pretty JSON
//   - --template NAME: the named template, an empty NAME is an error
//   - the subcommand's response template
//   - pretty JSON
//
// Named templates see s extended with response and response_headers.
func (r *Renderer) Render(s scope.Scope, responseTemplate string, resp *Response) error {
	if s.HasArg(config.QuietFlag) {
		return nil
	}
	if s.HasArg(config.RawResponseFlag) {
		return r.json.Format(r.out, resp.Body, false)
	}

	name := responseTemplate
	if v, ok := s.Arg(config.TemplateFlag); ok {
		name, _ = v.(string)
		switch name {
		case config.JSONTemplate:
			return r.json.Format(r.out, resp.Body, true)
		case "":
			return errors.Wrapf(errUtils.ErrTemplateNotFound, "empty --%s value", config.TemplateFlag)
		}
	}
	if name == "" {
		return r.json.Format(r.out, resp.Body, true)
	}

	data := s.With(scope.Response, resp.Body).With(scope.ResponseHeaders, resp.Headers)
	text, err := r.templates.Render(name, data.Data())
	if err != nil {
		return err
	}
	_, err = io.WriteString(r.out, text)
	return err
}
