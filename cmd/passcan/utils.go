package passcan

import (
	"os"
	"time"

	"github.com/passcan/passcan/internal/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickFloat(cli float64, local, global *float64) float64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

// pickBoolFlag is pickBool for flags whose default is true: an explicit
// flag wins, then the config files, then the flag default.
func pickBoolFlag(cmd *cobra.Command, name string, cli bool, local, global *bool) bool {
	if changed(cmd, name) {
		return cli
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return cli
}

// pickStringFlag is pickString for flags with a non-empty default.
func pickStringFlag(cmd *cobra.Command, name, cli string, local, global *string) string {
	if changed(cmd, name) {
		return cli
	}
	if v := pickString("", local, global); v != "" {
		return v
	}
	return cli
}

func pickDuration(cmd *cobra.Command, name string, cli time.Duration, local, global *string) (time.Duration, error) {
	if changed(cmd, name) {
		return cli, nil
	}
	if local != nil {
		return config.Duration(local, cli)
	}
	return config.Duration(global, cli)
}

func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

func globList(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

// stderrIsTerminal gates progress output and color.
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
