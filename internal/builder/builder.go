// Package builder converts a command tree into cobra commands.
package builder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joat-cli/joat/pkg/config"
	errUtils "github.com/joat-cli/joat/pkg/errors"
)

// Handler runs the subcommand selected on the command line.
type Handler func(cmd *cobra.Command, scmd *config.Subcommand, args *Args) error

// Builder builds the cobra command tree of a personality.
type Builder struct {
	tree   *config.CommandTree
	config *BuilderConfig
}

// BuilderConfig configures command building behavior.
type BuilderConfig struct {
	// Name is the root command name, the name the binary was invoked as.
	// Defaults to the tree's name.
	Name string

	// Run is invoked for every subcommand.
	Run Handler
}

// NewBuilder creates a new command builder for tree.
func NewBuilder(tree *config.CommandTree, config *BuilderConfig) *Builder {
	if config == nil {
		config = &BuilderConfig{}
	}
	return &Builder{
		tree:   tree,
		config: config,
	}
}

// Build returns the root command with one child per subcommand, in
// declaration order.
func (b *Builder) Build() (*cobra.Command, error) {
	rootCmd := b.buildRootCommand()

	for _, scmd := range b.tree.Subcommands {
		cmd, err := b.buildSubcommand(scmd)
		if err != nil {
			return nil, fmt.Errorf("failed to build subcommand %s: %w", scmd.Name, err)
		}
		rootCmd.AddCommand(cmd)
	}

	return rootCmd, nil
}

// buildRootCommand creates the root command. Without a subcommand it prints
// help and fails.
func (b *Builder) buildRootCommand() *cobra.Command {
	name := b.config.Name
	if name == "" {
		name = b.tree.Name
	}

	rootCmd := &cobra.Command{
		Use:           name,
		Short:         b.tree.About,
		Version:       b.tree.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errUtils.WithExitCode(errUtils.ErrNoSubcommand, errUtils.UsageExitCode)
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errUtils.WithExitCode(err, errUtils.UsageExitCode)
	})

	if b.tree.Author != "" {
		rootCmd.Long = fmt.Sprintf("%s\n\nAuthor: %s", b.tree.About, b.tree.Author)
	}

	// auto_complete replaces cobra's completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("{{ .Name }} {{ .Version }}\n")

	return rootCmd
}

// buildSubcommand creates the command for scmd: positional arguments go to
// Use and Args, the rest become flags.
func (b *Builder) buildSubcommand(scmd *config.Subcommand) (*cobra.Command, error) {
	positionals := make([]config.ArgSpec, 0, len(scmd.Args))
	for _, spec := range scmd.Args {
		if spec.IsPositional() {
			positionals = append(positionals, spec)
		}
	}

	cmd := &cobra.Command{
		Use:   commandUse(scmd.Name, positionals),
		Short: scmd.About,
		Args:  usageArgs(positionalArgs(positionals)),
		Annotations: map[string]string{
			"subcommand": scmd.Name,
		},
	}
	cmd.Flags().SortFlags = false

	fb := NewFlagBuilder()
	if err := fb.AddArgFlags(cmd, scmd.Args); err != nil {
		return nil, err
	}

	if b.config.Run != nil {
		run := b.config.Run
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			return run(cmd, scmd, NewArgs(cmd.Flags(), scmd.Args, args))
		}
	}

	return cmd, nil
}

// commandUse renders "name <REQUIRED> [OPTIONAL] [MANY...]".
func commandUse(name string, positionals []config.ArgSpec) string {
	parts := []string{name}
	for _, spec := range positionals {
		p := spec.Name
		if spec.Multiple {
			p += "..."
		}
		if spec.Required {
			p = "<" + p + ">"
		} else {
			p = "[" + p + "]"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// positionalArgs accepts at least the required positionals and at most all
// declared ones. A trailing multiple positional lifts the upper bound.
func positionalArgs(positionals []config.ArgSpec) cobra.PositionalArgs {
	required := 0
	for _, spec := range positionals {
		if spec.Required {
			required++
		}
	}

	if n := len(positionals); n > 0 && positionals[n-1].Multiple {
		return cobra.MinimumNArgs(required)
	}
	return cobra.RangeArgs(required, len(positionals))
}

// usageArgs gives argument count errors the usage exit code.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return errUtils.WithExitCode(check(cmd, args), errUtils.UsageExitCode)
	}
}

// FindSubcommand returns the command built for the named subcommand.
func FindSubcommand(rootCmd *cobra.Command, name string) *cobra.Command {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Annotations["subcommand"] == name {
			return cmd
		}
	}
	return nil
}
