// Package runtime wires one invocation of joat: it loads and augments the
// personality's configuration, builds the command line and dispatches the
// selected subcommand.
package runtime

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joat-cli/joat/internal/builder"
	"github.com/joat-cli/joat/internal/executor"
	"github.com/joat-cli/joat/internal/settings"
	"github.com/joat-cli/joat/pkg/auth"
	"github.com/joat-cli/joat/pkg/auth/storage"
	"github.com/joat-cli/joat/pkg/cli/builtin"
	"github.com/joat-cli/joat/pkg/config"
	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/output"
	"github.com/joat-cli/joat/pkg/paths"
	"github.com/joat-cli/joat/pkg/scope"
	"github.com/joat-cli/joat/pkg/template"
)

// Runtime holds everything resolved before a subcommand runs.
type Runtime struct {
	app        string
	workDir    string
	settings   *settings.Settings
	env        executor.Environment
	tree       *config.CommandTree
	rootCmd    *cobra.Command
	tokens     auth.TokenProvider
	httpClient *http.Client
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	logger     *zap.Logger
}

// RuntimeConfig configures a Runtime. App is required.
type RuntimeConfig struct {
	// App is the personality, normally the name the binary was invoked as.
	App         string
	ToolVersion string
	// WorkDir defaults to the current directory.
	WorkDir string
	// Settings defaults to settings.Load().
	Settings *settings.Settings
	// Environ defaults to os.Environ().
	Environ    []string
	HTTPClient *http.Client
	// Tokens overrides the OAuth provider built from the configuration.
	Tokens auth.TokenProvider
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// NewRuntime loads the configuration of cfg.App and builds its commands.
func NewRuntime(cfg *RuntimeConfig) (*Runtime, error) {
	if cfg == nil || cfg.App == "" {
		return nil, errors.New("runtime config with an application name is required")
	}

	rt := &Runtime{
		app:        cfg.App,
		workDir:    cfg.WorkDir,
		settings:   cfg.Settings,
		tokens:     cfg.Tokens,
		httpClient: cfg.HTTPClient,
		stdin:      cfg.Stdin,
		stdout:     cfg.Stdout,
		stderr:     cfg.Stderr,
		logger:     cfg.Logger,
	}
	if err := rt.applyDefaults(cfg.Environ); err != nil {
		return nil, err
	}

	loader := config.NewLoader(rt.app, rt.workDir, rt.settings.Home, rt.logger)
	tree, err := loader.Load()
	if err != nil {
		return nil, err
	}

	rt.tree, err = config.Augment(tree, rt.app, cfg.ToolVersion)
	if err != nil {
		return nil, err
	}

	if err := rt.initializeAuth(); err != nil {
		return nil, err
	}

	if err := rt.buildCommandTree(); err != nil {
		return nil, err
	}

	return rt, nil
}

func (rt *Runtime) applyDefaults(environ []string) error {
	if rt.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "failed to determine the working directory")
		}
		rt.workDir = wd
	}
	if rt.settings == nil {
		rt.settings = settings.Load()
	}
	if environ == nil {
		environ = os.Environ()
	}
	rt.env = executor.NewEnvironment(environ)

	if rt.stdin == nil {
		rt.stdin = os.Stdin
	}
	if rt.stdout == nil {
		rt.stdout = os.Stdout
	}
	if rt.stderr == nil {
		rt.stderr = os.Stderr
	}
	if rt.logger == nil {
		rt.logger = zap.NewNop()
	}
	return nil
}

// initializeAuth sets up the OAuth provider when the tree declares oauth.
func (rt *Runtime) initializeAuth() error {
	if rt.tree.OAuth == nil || rt.tokens != nil {
		return nil
	}

	store, err := storage.New(rt.tree.OAuth.TokenStorage, rt.settings.Home, rt.app)
	if err != nil {
		return err
	}

	rt.tokens = auth.NewOAuth2Provider(rt.app, store,
		auth.WithRedirectURL(rt.settings.OAuthRedirect),
		auth.WithOutput(rt.stderr),
		auth.WithLogger(rt.logger))
	return nil
}

func (rt *Runtime) buildCommandTree() error {
	b := builder.NewBuilder(rt.tree, &builder.BuilderConfig{Name: rt.app, Run: rt.run})
	rootCmd, err := b.Build()
	if err != nil {
		return err
	}

	rootCmd.SetIn(rt.stdin)
	rootCmd.SetOut(rt.stdout)
	rootCmd.SetErr(rt.stderr)

	if cmd := builder.FindSubcommand(rootCmd, config.AutoCompleteCommand); cmd != nil {
		cmd.ValidArgsFunction = builtin.FixedCompletion(builtin.Shells...)
	}

	rt.rootCmd = rootCmd
	return nil
}

// GetRootCommand returns the root command.
func (rt *Runtime) GetRootCommand() *cobra.Command {
	return rt.rootCmd
}

// Tree returns the augmented command tree.
func (rt *Runtime) Tree() *config.CommandTree {
	return rt.tree
}

// Execute parses args and runs the selected subcommand.
func (rt *Runtime) Execute(ctx context.Context, args []string) error {
	rt.rootCmd.SetArgs(args)
	return rt.rootCmd.ExecuteContext(ctx)
}

// run is the handler of every subcommand.
func (rt *Runtime) run(cmd *cobra.Command, scmd *config.Subcommand, args *builder.Args) error {
	s, err := scope.NewBuilder(template.Expand).Build(rt.env.Map(), rt.tree, scmd, args)
	if err != nil {
		return err
	}

	if _, ok := scmd.Action.(*config.BuiltinAction); ok {
		return rt.runBuiltin(scmd, s)
	}

	roots := template.SearchRoots(rt.app, scmd.ConfigBasePath, rt.workDir, rt.settings.Home)
	d, err := executor.NewDispatcher(&executor.Config{
		Tree:       rt.tree,
		Renderer:   output.NewRenderer(rt.stdout, template.NewRegistry(roots, rt.logger)),
		HTTPClient: rt.httpClient,
		Tokens:     rt.tokens,
		Shell:      rt.settings.Shell,
		Stdin:      rt.stdin,
		Stdout:     rt.stdout,
		Stderr:     rt.stderr,
		Logger:     rt.logger,
	})
	if err != nil {
		return err
	}

	return d.Dispatch(cmd.Context(), rt.env, scmd, s)
}

func (rt *Runtime) runBuiltin(scmd *config.Subcommand, s scope.Scope) error {
	switch {
	case scmd.Name == config.AutoCompleteCommand:
		shell, _ := s.Arg("SHELL")
		name, _ := shell.(string)
		return builtin.Completion(rt.rootCmd, name, rt.stdout)
	case scmd.Name == config.InitCommand && rt.app == paths.ToolName:
		project, _ := s.Arg(builtin.ProjectNameArg)
		name, _ := project.(string)
		_, err := builtin.InitProject(rt.workDir, name, rt.stdout)
		return err
	default:
		return errors.Wrapf(errUtils.ErrInvalidConfig, "%q is not a builtin subcommand of %s", scmd.Name, rt.app)
	}
}
