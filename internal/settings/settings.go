// Package settings reads joat's own settings from JOAT_* environment
// variables.
package settings

import (
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read here.
const EnvPrefix = "JOAT"

const (
	keyLogLevel      = "log_level"
	keyShell         = "shell"
	keyOAuthRedirect = "oauth_redirect"

	defaultLogLevel      = "warn"
	defaultOAuthRedirect = "http://localhost:8080"
)

// Settings are the tool-level settings of one invocation.
type Settings struct {
	// LogLevel is one of debug, info, warn or error.
	LogLevel string
	// Shell runs script subcommands. Empty selects bash, or sh without bash.
	Shell string
	// OAuthRedirect is the redirect URL of the local OAuth callback.
	OAuthRedirect string
	// Home is the user's home directory.
	Home string
}

// Load reads the settings from the environment.
func Load() *Settings {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyLogLevel, defaultLogLevel)
	v.SetDefault(keyShell, "")
	v.SetDefault(keyOAuthRedirect, defaultOAuthRedirect)

	return &Settings{
		LogLevel:      strings.ToLower(strings.TrimSpace(v.GetString(keyLogLevel))),
		Shell:         strings.TrimSpace(v.GetString(keyShell)),
		OAuthRedirect: v.GetString(keyOAuthRedirect),
		Home:          xdg.Home,
	}
}
