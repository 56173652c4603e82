// Package builtin implements the subcommands joat provides itself:
// auto_complete for every personality and init for the joat identity.
package builtin

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	errUtils "github.com/joat-cli/joat/pkg/errors"
)

// Shells lists the shells auto_complete generates scripts for.
var Shells = []string{"bash", "zsh", "fish", "powershell", "elvish"}

// elvishCompletion delegates to cobra's hidden __complete command. Candidate
// lines are "value<TAB>description"; the final ":<directive>" line is skipped.
const elvishCompletion = `# elvish completion for %[1]s
use str

set edit:completion:arg-completer[%[1]s] = {|@words|
    %[1]s __complete $@words[1..] 2>/dev/null | each {|line|
        if (not (str:has-prefix $line ':')) {
            var parts = [(str:split "\t" $line)]
            if (> (count $parts) 1) {
                edit:complex-candidate $parts[0] &display=$parts[0]' ('$parts[1]')'
            } else {
                edit:complex-candidate $parts[0]
            }
        }
    }
}
`

// Completion writes the completion script of rootCmd for shell to out.
// The shell name is case-insensitive.
func Completion(rootCmd *cobra.Command, shell string, out io.Writer) error {
	switch strings.ToLower(strings.TrimSpace(shell)) {
	case "bash":
		return rootCmd.GenBashCompletionV2(out, true)
	case "zsh":
		return rootCmd.GenZshCompletion(out)
	case "fish":
		return rootCmd.GenFishCompletion(out, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletionWithDesc(out)
	case "elvish":
		_, err := fmt.Fprintf(out, elvishCompletion, rootCmd.Name())
		return err
	default:
		return errors.Wrapf(errUtils.ErrUnknownShell, "%q, use one of %s", shell, strings.Join(Shells, ", "))
	}
}

// CompletionFunc is a helper type for dynamic completion functions.
type CompletionFunc func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective)

// FixedCompletion returns a completion function with fixed values.
func FixedCompletion(values ...string) CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
