// Package scope builds the variables visible to templates. Variables live in
// namespaces: env, vars, args, scmd and, once a request completes, response
// and response_headers.
package scope

import (
	"maps"

	"github.com/cockroachdb/errors"

	"github.com/joat-cli/joat/pkg/config"
)

// Namespace names.
const (
	Env             = "env"
	Vars            = "vars"
	Args            = "args"
	Scmd            = "scmd"
	Response        = "response"
	ResponseHeaders = "response_headers"
)

// ConfigBasePath is the scmd variable holding the subcommand's config
// directory.
const ConfigBasePath = "scmd_config_base_path"

// Scope maps a namespace name to its variables. Namespaces are one level
// deep; values may be structured.
type Scope map[string]any

// With returns a copy of s with namespace set to value. s is not modified.
func (s Scope) With(namespace string, value any) Scope {
	out := maps.Clone(s)
	if out == nil {
		out = make(Scope, 1)
	}
	out[namespace] = value
	return out
}

// Data returns s as plain template data.
func (s Scope) Data() map[string]any {
	return s
}

// Namespace returns the variables of a map-valued namespace, or nil.
func (s Scope) Namespace(name string) map[string]any {
	ns, _ := s[name].(map[string]any)
	return ns
}

// HasArg reports whether the args namespace holds name.
func (s Scope) HasArg(name string) bool {
	_, ok := s.Namespace(Args)[name]
	return ok
}

// Arg returns the value of an argument, if present.
func (s Scope) Arg(name string) (any, bool) {
	v, ok := s.Namespace(Args)[name]
	return v, ok
}

// ArgSource reports the arguments present on the command line.
type ArgSource interface {
	// Values returns the values given for a declared argument and whether it
	// was given at all. Flags that take no value report no values.
	Values(name string) ([]string, bool)
}

// Expander expands a one-off template against data.
type Expander func(name, text string, data any) (string, error)

// Builder assembles the scope of one invocation.
type Builder struct {
	expand Expander
}

// NewBuilder creates a builder expanding vars with expand.
func NewBuilder(expand Expander) *Builder {
	return &Builder{expand: expand}
}

// Build returns the env, vars, args and scmd namespaces for scmd.
func (b *Builder) Build(env map[string]string, tree *config.CommandTree, scmd *config.Subcommand, args ArgSource) (Scope, error) {
	envNS := make(map[string]any, len(env))
	for k, v := range env {
		envNS[k] = v
	}

	s := Scope{Env: envNS}

	vars, err := b.vars(tree.Vars, Scope{Env: envNS})
	if err != nil {
		return nil, err
	}
	s[Vars] = vars
	s[Args] = ArgValues(scmd.Args, args)

	scmdNS := make(map[string]any, 1)
	if scmd.ConfigBasePath != "" {
		scmdNS[ConfigBasePath] = scmd.ConfigBasePath
	}
	s[Scmd] = scmdNS

	return s, nil
}

// vars expands each declared variable with only the env namespace visible.
func (b *Builder) vars(declared map[string]string, envOnly Scope) (map[string]any, error) {
	out := make(map[string]any, len(declared))
	for name, text := range declared {
		value, err := b.expand("vars."+name, text, envOnly.Data())
		if err != nil {
			return nil, errors.Wrapf(err, "expanding variable %q", name)
		}
		out[name] = value
	}
	return out, nil
}

// ArgValues converts the arguments present on the command line into the
// args namespace. Arguments taking no value are true when given; repeated
// values of a multiple argument form a list. Absent arguments fall back to
// their default value, if any.
func ArgValues(specs []config.ArgSpec, src ArgSource) map[string]any {
	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		values, present := src.Values(spec.Name)
		switch {
		case !present:
			if spec.DefaultValue != "" {
				out[spec.Name] = spec.DefaultValue
			}
		case !spec.TakesValue && len(values) == 0:
			out[spec.Name] = true
		case spec.Multiple && len(values) > 1:
			list := make([]any, len(values))
			for i, v := range values {
				list[i] = v
			}
			out[spec.Name] = list
		case len(values) > 0:
			out[spec.Name] = values[0]
		default:
			out[spec.Name] = true
		}
	}
	return out
}
