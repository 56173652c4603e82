package output

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"
)

// JSONFormatter prints response bodies as JSON.
type JSONFormatter struct {
	indent string
}

// NewJSONFormatter creates a new JSON formatter indenting with two spaces.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		indent: "  ",
	}
}

// Format writes data as JSON, indented when pretty is set. No trailing
// newline is written and HTML characters are not escaped.
func (f *JSONFormatter) Format(w io.Writer, data any, pretty bool) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if pretty {
		encoder.SetIndent("", f.indent)
	}

	if err := encoder.Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}

	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}

// ParseBody decodes a response body as JSON, keeping numbers as written.
// Bodies that are not JSON are returned as a string.
func ParseBody(body []byte) any {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var v any
	if err := decoder.Decode(&v); err != nil {
		return string(body)
	}
	// trailing garbage means the body was not a single JSON document
	if decoder.More() {
		return string(body)
	}
	return v
}
