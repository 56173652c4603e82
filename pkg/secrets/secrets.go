// Package secrets masks credentials before request details reach the logs.
package secrets

import (
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Replacement stands in for the masked part of a value.
const Replacement = "***"

// showChars is how many leading characters of a secret stay visible.
const showChars = 6

// DefaultFieldPatterns returns the name patterns of headers and query
// parameters that typically carry credentials. Names are matched lowercase.
func DefaultFieldPatterns() []string {
	return []string{
		"*password*",
		"*passwd*",
		"*secret*",
		"*token*",
		"*key", // api_key, x-api-key
		"*apikey*",
		"*api_key*",
		"*api-key*",
		"*credential*",
		"auth",
		"authorization",
		"proxy-authorization",
		"cookie",
		"set-cookie",
		"*session*",
		"*bearer*",
		"*jwt*",
	}
}

var valuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
	regexp.MustCompile(`Basic\s+[A-Za-z0-9+/]+=*`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`[sS][kK]_[a-zA-Z0-9_]{10,}`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`),
}

// IsSecretField reports whether a header or parameter name looks like it
// holds a credential.
func IsSecretField(name string) bool {
	name = strings.ToLower(name)
	return slices.ContainsFunc(DefaultFieldPatterns(), func(pattern string) bool {
		ok, _ := doublestar.Match(pattern, name)
		return ok
	})
}

// MaskValue keeps the first characters of value and masks the rest. Short
// values are masked entirely.
func MaskValue(value string) string {
	if len(value) <= showChars {
		return Replacement
	}
	return value[:showChars] + Replacement
}

// MaskString masks every well-known credential format found in s.
func MaskString(s string) string {
	for _, re := range valuePatterns {
		s = re.ReplaceAllStringFunc(s, MaskValue)
	}
	return s
}

// MaskHeaders flattens h for logging, masking secret headers.
func MaskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		value := strings.Join(values, ", ")
		if IsSecretField(name) {
			value = MaskValue(value)
		} else {
			value = MaskString(value)
		}
		out[name] = value
	}
	return out
}

// MaskURL renders u with secret query values masked.
func MaskURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	masked := *u
	masked.User = nil
	if u.RawQuery != "" {
		query := u.Query()
		for name, values := range query {
			for i, v := range values {
				if IsSecretField(name) {
					values[i] = MaskValue(v)
				} else {
					values[i] = MaskString(v)
				}
			}
			query[name] = values
		}
		masked.RawQuery = query.Encode()
	}
	return masked.String()
}
