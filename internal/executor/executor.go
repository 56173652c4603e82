// Package executor dispatches a parsed subcommand. After the recursion guard
// passes, a script subcommand is handed to a shell and a request subcommand
// becomes an HTTP call whose response is rendered.
package executor

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/joat-cli/joat/pkg/auth"
	"github.com/joat-cli/joat/pkg/config"
	"github.com/joat-cli/joat/pkg/output"
	"github.com/joat-cli/joat/pkg/scope"
	"github.com/joat-cli/joat/pkg/template"
)

// ResponseRenderer prints the response of a request subcommand.
type ResponseRenderer interface {
	Render(s scope.Scope, responseTemplate string, resp *output.Response) error
}

// Dispatcher runs the subcommands of one command tree.
type Dispatcher struct {
	tree       *config.CommandTree
	httpClient *http.Client
	renderer   ResponseRenderer
	tokens     auth.TokenProvider
	expand     scope.Expander
	shell      string
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	logger     *zap.Logger
}

// Config configures a Dispatcher. Only Tree and Renderer are required.
type Config struct {
	Tree       *config.CommandTree
	Renderer   ResponseRenderer
	HTTPClient *http.Client
	// Tokens supplies the bearer token when the tree declares oauth.
	Tokens auth.TokenProvider
	// Expand defaults to template.Expand.
	Expand scope.Expander
	// Shell runs scripts with "-c". Defaults to bash, or sh without bash.
	Shell  string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg *Config) (*Dispatcher, error) {
	if cfg == nil {
		return nil, errors.New("dispatcher config is required")
	}
	if cfg.Tree == nil {
		return nil, errors.New("command tree is required")
	}
	if cfg.Renderer == nil {
		return nil, errors.New("response renderer is required")
	}

	d := &Dispatcher{
		tree:       cfg.Tree,
		httpClient: cfg.HTTPClient,
		renderer:   cfg.Renderer,
		tokens:     cfg.Tokens,
		expand:     cfg.Expand,
		shell:      ResolveShell(cfg.Shell),
		stdin:      cfg.Stdin,
		stdout:     cfg.Stdout,
		stderr:     cfg.Stderr,
		logger:     cfg.Logger,
	}

	// Requests have no timeout; a hung server blocks until interrupted.
	if d.httpClient == nil {
		d.httpClient = &http.Client{}
	}
	if d.expand == nil {
		d.expand = template.Expand
	}
	if d.stdin == nil {
		d.stdin = os.Stdin
	}
	if d.stdout == nil {
		d.stdout = os.Stdout
	}
	if d.stderr == nil {
		d.stderr = os.Stderr
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}

	return d, nil
}

// Dispatch runs scmd with the variables in s. env is the environment the
// invocation started with; scripts inherit it.
func (d *Dispatcher) Dispatch(ctx context.Context, env Environment, scmd *config.Subcommand, s scope.Scope) error {
	depth, err := NextRecursionCount(env, d.tree.MaxRecursionCount)
	if err != nil {
		return err
	}

	switch action := scmd.Action.(type) {
	case *config.ScriptAction:
		return d.runScript(ctx, env, depth, scmd, action, s)
	case *config.RequestAction:
		return d.runRequest(ctx, scmd, action, s)
	default:
		return errors.Newf("subcommand %q cannot be dispatched", scmd.Name)
	}
}
