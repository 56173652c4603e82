// Package config discovers, merges, decodes and augments the layered YAML
// configuration that declares a joat personality's subcommands.
package config

// DefaultMaxRecursionCount bounds nested self-invocations when the
// configuration does not set max_recursion_count.
const DefaultMaxRecursionCount = 100

// DefaultMethod is used when a request subcommand declares no method.
const DefaultMethod = "get"

// CommandTree is the merged and augmented configuration of one personality.
// It is built once per invocation and treated as read-only afterwards.
type CommandTree struct {
	Name              string
	Version           string
	About             string
	Author            string
	BaseEndpoint      string
	Headers           map[string]any
	QueryParams       map[string]any
	OAuth             *OAuth
	Vars              map[string]string
	MaxRecursionCount int
	Subcommands       []*Subcommand
}

// Subcommand looks up a subcommand by name.
func (t *CommandTree) Subcommand(name string) (*Subcommand, bool) {
	for _, s := range t.Subcommands {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// OAuth holds the template strings used to obtain a bearer token.
type OAuth struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	AuthURL      string `mapstructure:"auth_url"`
	TokenURL     string `mapstructure:"token_url"`
	HeaderKey    string `mapstructure:"header_key"`
	// TokenStorage selects where the token is cached: "file" (default) or "keyring".
	TokenStorage string `mapstructure:"token_storage"`
}

// Subcommand is one declared subcommand. What it does is described by Action.
type Subcommand struct {
	Name             string
	About            string
	Args             []ArgSpec
	ResponseTemplate string
	// ConfigBasePath is the directory of the layer the subcommand came from.
	ConfigBasePath string
	Action         Action
}

// IsScript reports whether the subcommand runs a shell script.
func (s *Subcommand) IsScript() bool {
	_, ok := s.Action.(*ScriptAction)
	return ok
}

// Arg looks up a declared argument by name.
func (s *Subcommand) Arg(name string) (ArgSpec, bool) {
	for _, a := range s.Args {
		if a.Name == name {
			return a, true
		}
	}
	return ArgSpec{}, false
}

// Action is implemented by ScriptAction, RequestAction and BuiltinAction.
type Action interface {
	isAction()
}

// ScriptAction runs a templated shell script.
type ScriptAction struct {
	Script string
}

// RequestAction issues a templated HTTP request.
type RequestAction struct {
	Path        string
	Method      string
	Body        map[string]any
	Form        map[string]any
	QueryParams map[string]any
}

// BuiltinAction marks subcommands implemented by joat itself, such as
// auto_complete.
type BuiltinAction struct{}

func (*ScriptAction) isAction()  {}
func (*RequestAction) isAction() {}
func (*BuiltinAction) isAction() {}

// ArgSpec declares one CLI argument of a subcommand.
type ArgSpec struct {
	Name         string `mapstructure:"-"`
	Short        string `mapstructure:"short"`
	Long         string `mapstructure:"long"`
	Help         string `mapstructure:"help"`
	TakesValue   bool   `mapstructure:"takes_value"`
	Multiple     bool   `mapstructure:"multiple"`
	Required     bool   `mapstructure:"required"`
	DefaultValue string `mapstructure:"default_value"`
}

// IsPositional reports whether the argument is positional. Arguments without
// a short or long flag are positional, in declaration order.
func (a ArgSpec) IsPositional() bool {
	return a.Short == "" && a.Long == ""
}

// FlagName returns the long flag name.
func (a ArgSpec) FlagName() string {
	if a.Long != "" {
		return a.Long
	}
	return a.Name
}
