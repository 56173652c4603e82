package executor

import (
	"maps"
	"os"
	"slices"
	"strings"
)

// Environment is a snapshot of the process environment taken when a
// subcommand is dispatched. Children get a copy extended with an overlay.
type Environment struct {
	vars map[string]string
}

// NewEnvironment parses KEY=VALUE pairs as returned by os.Environ. Later
// duplicates win.
func NewEnvironment(environ []string) Environment {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		vars[key] = value
	}
	return Environment{vars: vars}
}

// CurrentEnvironment snapshots the environment of this process.
func CurrentEnvironment() Environment {
	return NewEnvironment(os.Environ())
}

// Get returns the value of key and whether it is set.
func (e Environment) Get(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Map returns a copy of the variables.
func (e Environment) Map() map[string]string {
	return maps.Clone(e.vars)
}

// With returns a copy of e with overlay applied on top.
func (e Environment) With(overlay map[string]string) Environment {
	vars := maps.Clone(e.vars)
	if vars == nil {
		vars = make(map[string]string, len(overlay))
	}
	maps.Copy(vars, overlay)
	return Environment{vars: vars}
}

// Environ returns the variables as sorted KEY=VALUE pairs for exec.Cmd.
func (e Environment) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for _, k := range slices.Sorted(maps.Keys(e.vars)) {
		out = append(out, k+"="+e.vars[k])
	}
	return out
}
