package passcan

import (
	"io"

	"github.com/spf13/cobra"
)

var completionShells = map[string]func(w io.Writer) error{
	"bash":       func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
	"zsh":        func(w io.Writer) error { return rootCmd.GenZshCompletion(w) },
	"fish":       func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
	"powershell": func(w io.Writer) error { return rootCmd.GenPowerShellCompletionWithDesc(w) },
}

func init() {
	cmd := &cobra.Command{
		Use:       "completion <bash|zsh|fish|powershell>",
		Short:     "Print a shell completion script",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Example: `  source <(passcan completion bash)
  passcan completion zsh > "${fpath[1]}/_passcan"
  passcan completion fish | source`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionShells[args[0]](cmd.OutOrStdout())
		},
	}
	rootCmd.AddCommand(cmd)
}
