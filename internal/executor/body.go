package executor

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"

	"github.com/cockroachdb/errors"

	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/scope"
)

// EmptySentinel is the expanded value that drops a body or form field.
const EmptySentinel = "[[empty]]"

var numberPattern = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

// valueResolver expands configuration values against one scope.
type valueResolver struct {
	expand scope.Expander
	data   map[string]any
}

// Coerce converts an expanded string to the JSON value it looks like:
// "true" and "false" become booleans and numbers become json.Number.
func Coerce(s string) any {
	switch {
	case s == "true":
		return true
	case s == "false":
		return false
	case numberPattern.MatchString(s):
		return json.Number(s)
	default:
		return s
	}
}

// deep resolves every string in m recursively, coercing the results. Keys
// whose value expands to EmptySentinel are left out.
func (r valueResolver) deep(name string, m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		v, keep, err := r.deepValue(name+"."+k, m[k])
		if err != nil {
			return nil, err
		}
		if keep {
			out[k] = v
		}
	}
	return out, nil
}

func (r valueResolver) deepValue(name string, v any) (any, bool, error) {
	switch v := v.(type) {
	case string:
		s, err := r.expand(name, v, r.data)
		if err != nil {
			return nil, false, err
		}
		if s == EmptySentinel {
			return nil, false, nil
		}
		return Coerce(s), true, nil
	case map[string]any:
		m, err := r.deep(name, v)
		return m, err == nil, err
	case []any:
		out := make([]any, 0, len(v))
		for i, item := range v {
			resolved, keep, err := r.deepValue(fmt.Sprintf("%s[%d]", name, i), item)
			if err != nil {
				return nil, false, err
			}
			if keep {
				out = append(out, resolved)
			}
		}
		return out, true, nil
	default:
		return v, true, nil
	}
}

// shallow resolves a map of scalars to strings. Null values are skipped;
// nested values are a configuration error.
func (r valueResolver) shallow(name string, m map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		var text string
		switch v := v.(type) {
		case nil:
			continue
		case string:
			text = v
		case bool, int, int64, uint64, float64:
			text = fmt.Sprint(v)
		default:
			return nil, errors.Wrapf(errUtils.ErrInvalidConfig, "%s.%s: only scalar values are allowed", name, k)
		}

		s, err := r.expand(name+"."+k, text, r.data)
		if err != nil {
			return nil, err
		}
		out[k] = s
	}
	return out, nil
}

// formValue renders a resolved form field as a single string.
func formValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return "", errors.Wrap(err, "failed to encode form value")
		}
		return string(b), nil
	default:
		return fmt.Sprint(v), nil
	}
}
