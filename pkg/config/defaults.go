package config

import (
	_ "embed"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/joat-cli/joat/pkg/paths"
)

//go:embed defaults/joat.yml
var defaultConfig []byte

//go:embed defaults/config_template.yml
var configTemplate string

// DefaultConfig returns the bundled configuration of the joat identity.
func DefaultConfig() []byte {
	return defaultConfig
}

// ConfigTemplate returns the skeleton rendered by `joat init`. It expects
// args.PROJECT_NAME.
func ConfigTemplate() string {
	return configTemplate
}

// WriteDefaultConfig writes the bundled configuration under homeDir and
// returns its path.
func WriteDefaultConfig(homeDir string) (string, error) {
	dir := paths.AppDir(homeDir, paths.ToolName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	path := paths.ConfigFile(homeDir, paths.ToolName)
	if err := os.WriteFile(path, defaultConfig, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing default configuration to %s", path)
	}
	return path, nil
}
