package executor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/joat-cli/joat/pkg/config"
	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/scope"
)

const (
	// ColumnsVar overrides the terminal width handed to scripts.
	ColumnsVar = "COLUMNS"

	defaultColumns = 80
	defaultShell   = "bash"
	fallbackShell  = "sh"
)

// terminalWidth reports the width of the terminal attached to stdout.
var terminalWidth = func() (int, bool) {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 0, false
	}
	return w, true
}

// ResolveShell returns preferred when set, otherwise bash if it is on PATH
// and sh if not.
func ResolveShell(preferred string) string {
	if preferred != "" {
		return preferred
	}
	if _, err := exec.LookPath(defaultShell); err == nil {
		return defaultShell
	}
	return fallbackShell
}

// Columns returns the width scripts should format for: COLUMNS when it holds
// a positive integer, else the terminal width, else 80.
func Columns(env Environment) int {
	if raw, ok := env.Get(ColumnsVar); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	if w, ok := terminalWidth(); ok {
		return w
	}
	return defaultColumns
}

func (d *Dispatcher) runScript(ctx context.Context, env Environment, depth int, scmd *config.Subcommand, action *config.ScriptAction, s scope.Scope) error {
	script, err := d.expand("script of "+scmd.Name, action.Script, s.Data())
	if err != nil {
		return err
	}
	d.logger.Debug("executing script", zap.String("subcommand", scmd.Name), zap.String("script", script))

	child := env.With(map[string]string{
		ColumnsVar:        strconv.Itoa(Columns(env)),
		RecursionCountVar: strconv.Itoa(depth),
	})

	cmd := exec.CommandContext(ctx, d.shell, "-c", script)
	cmd.Env = child.Environ()
	cmd.Stdin = d.stdin
	if s.HasArg(config.QuietFlag) {
		cmd.Stdout = io.Discard
		cmd.Stderr = io.Discard
	} else {
		cmd.Stdout = d.stdout
		cmd.Stderr = d.stderr
	}

	err = cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exitErr):
		code := exitErr.ExitCode()
		// killed by a signal
		if code < 0 {
			code = 1
		}
		return errUtils.ExitCodeError{Code: code}
	default:
		return errors.Wrapf(err, "failed to run script of %q with %s", scmd.Name, d.shell)
	}
}
