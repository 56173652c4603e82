package builder

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/joat-cli/joat/pkg/config"
)

// FlagBuilder declares the flags of a subcommand.
type FlagBuilder struct{}

// NewFlagBuilder creates a new flag builder.
func NewFlagBuilder() *FlagBuilder {
	return &FlagBuilder{}
}

// AddArgFlags adds a flag for every non-positional argument. Arguments
// taking a value become string flags, repeatable when multiple; the others
// are switches.
func (fb *FlagBuilder) AddArgFlags(cmd *cobra.Command, specs []config.ArgSpec) error {
	for _, spec := range specs {
		if spec.IsPositional() {
			continue
		}

		name := spec.FlagName()
		if cmd.Flags().Lookup(name) != nil {
			return fmt.Errorf("flag --%s declared twice", name)
		}

		switch {
		case spec.TakesValue && spec.Multiple:
			var defaults []string
			if spec.DefaultValue != "" {
				defaults = []string{spec.DefaultValue}
			}
			cmd.Flags().StringArrayP(name, spec.Short, defaults, spec.Help)
		case spec.TakesValue:
			cmd.Flags().StringP(name, spec.Short, spec.DefaultValue, spec.Help)
		default:
			cmd.Flags().BoolP(name, spec.Short, false, spec.Help)
		}

		if spec.Required {
			if err := cmd.MarkFlagRequired(name); err != nil {
				return fmt.Errorf("failed to mark flag %s required: %w", name, err)
			}
		}
	}
	return nil
}

// Args exposes the arguments given to one subcommand.
type Args struct {
	flags       *pflag.FlagSet
	specs       []config.ArgSpec
	positionals map[string][]string
}

// NewArgs assigns the positional values to the declared positional arguments
// in order. A multiple positional takes every remaining value.
func NewArgs(flags *pflag.FlagSet, specs []config.ArgSpec, positional []string) *Args {
	a := &Args{
		flags:       flags,
		specs:       specs,
		positionals: make(map[string][]string),
	}

	rest := positional
	for _, spec := range specs {
		if !spec.IsPositional() || len(rest) == 0 {
			continue
		}
		if spec.Multiple {
			a.positionals[spec.Name] = rest
			rest = nil
			continue
		}
		a.positionals[spec.Name] = rest[:1]
		rest = rest[1:]
	}

	return a
}

// Values implements scope.ArgSource. A flag is present only when it was set
// on the command line.
func (a *Args) Values(name string) ([]string, bool) {
	var spec *config.ArgSpec
	for i := range a.specs {
		if a.specs[i].Name == name {
			spec = &a.specs[i]
			break
		}
	}
	if spec == nil {
		return nil, false
	}

	if spec.IsPositional() {
		values, ok := a.positionals[name]
		return values, ok
	}

	f := a.flags.Lookup(spec.FlagName())
	if f == nil || !f.Changed {
		return nil, false
	}
	if !spec.TakesValue {
		return nil, true
	}
	if spec.Multiple {
		values, err := a.flags.GetStringArray(f.Name)
		if err != nil {
			return nil, false
		}
		return values, true
	}
	return []string{f.Value.String()}, true
}
