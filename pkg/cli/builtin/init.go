package builtin

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"

	"github.com/joat-cli/joat/pkg/config"
	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/scope"
	"github.com/joat-cli/joat/pkg/template"
)

// ProjectNameArg is the positional argument of init.
const ProjectNameArg = "PROJECT_NAME"

// InitProject renders the configuration skeleton for name into
// workDir/<name>.yml and returns the path written. An existing file is left
// untouched.
func InitProject(workDir, name string, out io.Writer) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", errors.Newf("invalid project name %q", name)
	}

	path := filepath.Join(workDir, name+".yml")
	if _, err := os.Stat(path); err == nil {
		return "", errors.Wrapf(errUtils.ErrFileExists, "%s", path)
	} else if !os.IsNotExist(err) {
		return "", errors.Wrapf(err, "checking %s", path)
	}

	data := scope.Scope{scope.Args: map[string]any{ProjectNameArg: name}}
	content, err := template.Expand("config template", config.ConfigTemplate(), data.Data())
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}

	pterm.Success.WithWriter(out).Printfln("Config file %s created", filepath.Base(path))
	pterm.Info.WithWriter(out).Printfln(
		"To start testing, create a symlink in your PATH named %s targeting the joat binary, e.g.\n  ln -s \"$(command -v joat)\" ~/.local/bin/%s",
		name, name)
	return path, nil
}
