// Package paths locates joat configuration, template and token files.
package paths

import (
	"fmt"
	"iter"
	"path/filepath"
)

// ToolName is the default identity of the binary. Configuration for any other
// name is a personality.
const ToolName = "joat"

// Ancestors yields dir followed by each of its parents up to the filesystem
// root.
func Ancestors(dir string) iter.Seq[string] {
	return func(yield func(string) bool) {
		current := filepath.Clean(dir)
		for {
			if !yield(current) {
				return
			}
			parent := filepath.Dir(current)
			if parent == current {
				return
			}
			current = parent
		}
	}
}

// AppDir returns the per-application directory under base, e.g.
// `<base>/.myapp.joat`.
func AppDir(base, app string) string {
	return filepath.Join(base, fmt.Sprintf(".%s.%s", app, ToolName))
}

// ConfigFile returns `<base>/.<app>.joat/<app>.yml`.
func ConfigFile(base, app string) string {
	return filepath.Join(AppDir(base, app), app+".yml")
}

// DevConfigFile returns `<base>/<app>.yml`, accepted next to the working tree
// to ease development of a new personality.
func DevConfigFile(base, app string) string {
	return filepath.Join(base, app+".yml")
}

// TemplatesDir returns the template directory of app under base.
func TemplatesDir(base, app string) string {
	return filepath.Join(AppDir(base, app), "templates")
}

// TokenFile returns the cached OAuth token path for app: `~/.<app>.joat/.<app>.token`.
func TokenFile(home, app string) string {
	return filepath.Join(AppDir(home, app), fmt.Sprintf(".%s.token", app))
}
