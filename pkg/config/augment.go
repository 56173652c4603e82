package config

import (
	"fmt"

	"github.com/cockroachdb/errors"

	errUtils "github.com/joat-cli/joat/pkg/errors"
	"github.com/joat-cli/joat/pkg/paths"
)

// Names of the flags injected into every subcommand.
const (
	TemplateFlag    = "template"
	QuietFlag       = "quiet"
	RawResponseFlag = "raw_response"
)

// AutoCompleteCommand is the name of the synthetic completion subcommand.
const AutoCompleteCommand = "auto_complete"

// InitCommand is the name of the built-in project scaffolding subcommand.
const InitCommand = "init"

// JSONTemplate is the --template value that selects pretty JSON output.
const JSONTemplate = "json"

var (
	templateArg = ArgSpec{
		Name:       TemplateFlag,
		Short:      "t",
		Long:       TemplateFlag,
		Help:       "Render the response with the named template, or \"json\"",
		TakesValue: true,
	}
	quietArg = ArgSpec{
		Name:  QuietFlag,
		Short: "q",
		Long:  QuietFlag,
		Help:  "Suppress all output",
	}
	rawResponseArg = ArgSpec{
		Name:  RawResponseFlag,
		Short: "R",
		Long:  RawResponseFlag,
		Help:  "Print the response body as compact JSON",
	}
)

// Augment returns a copy of tree with the version resolved, the reserved
// flags injected and the auto_complete subcommand appended. It must run once
// per invocation; tree is left untouched.
func Augment(tree *CommandTree, app, toolVersion string) (*CommandTree, error) {
	out := *tree
	if out.Name == "" {
		out.Name = app
	}
	out.Version = ResolveVersion(tree.Version, app, toolVersion)

	out.Subcommands = make([]*Subcommand, 0, len(tree.Subcommands)+1)
	for _, scmd := range tree.Subcommands {
		augmented, err := augmentSubcommand(scmd)
		if err != nil {
			return nil, err
		}
		out.Subcommands = append(out.Subcommands, augmented)
	}

	out.Subcommands = append(out.Subcommands, &Subcommand{
		Name:  AutoCompleteCommand,
		About: "Generate a shell completion script (zsh, bash, fish, powershell, elvish)",
		Args: []ArgSpec{{
			Name:       "SHELL",
			Help:       "Target shell",
			TakesValue: true,
			Required:   true,
		}},
		Action: &BuiltinAction{},
	})

	return &out, nil
}

// ResolveVersion formats the version shown by a personality. The tool's own
// identity shows its declared version unchanged.
func ResolveVersion(declared, app, toolVersion string) string {
	if app == paths.ToolName {
		return declared
	}
	return fmt.Sprintf("%s (%s %s)", declared, paths.ToolName, toolVersion)
}

func augmentSubcommand(scmd *Subcommand) (*Subcommand, error) {
	out := *scmd
	out.Args = make([]ArgSpec, len(scmd.Args), len(scmd.Args)+3)
	copy(out.Args, scmd.Args)

	if _, builtin := scmd.Action.(*BuiltinAction); builtin {
		return &out, nil
	}

	reserved := []ArgSpec{quietArg, rawResponseArg}
	if !scmd.IsScript() {
		reserved = append([]ArgSpec{templateArg}, reserved...)
	}

	for _, flag := range reserved {
		inject, err := needsInjection(out.Args, flag)
		if err != nil {
			return nil, errors.Wrapf(err, "subcommand %q", scmd.Name)
		}
		if inject {
			out.Args = append(out.Args, flag)
		}
	}

	return &out, nil
}

// needsInjection reports whether flag must be added to args. An argument with
// the reserved name is taken as the flag itself; any other argument using the
// reserved short or long name is a collision.
func needsInjection(args []ArgSpec, flag ArgSpec) (bool, error) {
	for _, arg := range args {
		if arg.Name == flag.Name {
			return false, nil
		}
	}
	for _, arg := range args {
		if arg.IsPositional() {
			continue
		}
		if arg.Short == flag.Short || arg.FlagName() == flag.Long {
			return false, errors.Wrapf(errUtils.ErrReservedFlag,
				"argument %q uses -%s/--%s reserved for %s", arg.Name, flag.Short, flag.Long, flag.Name)
		}
	}
	return true, nil
}
