// Package errors defines the error taxonomy shared by every joat component
// and the helpers used to turn an error into a process exit code.
package errors

import (
	"strconv"

	"github.com/cockroachdb/errors"
)

// Configuration errors.
var (
	ErrNoConfig      = errors.New("no configuration found")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrReservedFlag  = errors.New("reserved flag")
)

// Template errors.
var (
	ErrTemplate         = errors.New("template error")
	ErrTemplateNotFound = errors.New("template not found")
)

// Execution errors.
var (
	ErrTransport      = errors.New("request failed")
	ErrRecursionLimit = errors.New("max recursion count reached")
	ErrOAuth          = errors.New("oauth flow failed")
)

// UsageExitCode is the exit code of a command line that does not parse.
const UsageExitCode = 2

// Usage errors.
var (
	ErrUnknownShell = errors.New("unknown shell")
	ErrNoSubcommand = errors.New("no subcommand given")
	ErrFileExists   = errors.New("file already exists")
)

// ExitCodeError reports the exit status of a child process. It is not a
// failure of joat itself, so callers print nothing for it and exit with Code.
type ExitCodeError struct {
	Code int
}

func (e ExitCodeError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

// IsSilent reports whether err should terminate the process without a
// diagnostic.
func IsSilent(err error) bool {
	var exitCodeErr ExitCodeError
	return errors.As(err, &exitCodeErr)
}
