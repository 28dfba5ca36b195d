package passcan

import (
	"errors"
	"fmt"
	"os"

	"github.com/passcan/passcan/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	cfgOutput string
	cfgForce  bool
	cfgPath   string
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .passcan.yml with the default options",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	initCmd.Flags().StringVar(&cfgOutput, "output", config.LocalNames[0], "output file path")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the local and global config files that apply to a path",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
	showCmd.Flags().StringVarP(&cfgPath, "path", "p", ".", "directory to resolve the local config for")
	cfgCmd.AddCommand(showCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if _, err := os.Stat(cfgOutput); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgOutput)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := os.WriteFile(cfgOutput, []byte(config.Template), 0o644); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	local, global, err := loadConfigs(cfgPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, c := range []struct {
		name string
		fc   config.FileConfig
	}{{"global", global}, {"local", local}} {
		if c.fc.Path() == "" {
			_, _ = fmt.Fprintf(out, "# %s: none\n", c.name)
			continue
		}
		b, err := yaml.Marshal(c.fc)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "# %s: %s\n%s", c.name, c.fc.Path(), b)
	}
	return nil
}
