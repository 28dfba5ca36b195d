package passcan

import (
	"fmt"
	"path/filepath"

	"github.com/passcan/passcan/internal/ignore"
	"github.com/spf13/cobra"
)

var (
	flagIgnorePath      string
	flagIgnoreGenerated bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "ignore [pattern...]",
		Short: "Add patterns to " + ignore.FileName,
		Long:  "Append gitignore-style patterns to " + ignore.FileName + " at the scan root. Existing patterns are not duplicated.",
		RunE: func(cmd *cobra.Command, args []string) error {
			patterns := args
			if flagIgnoreGenerated {
				patterns = append(patterns, ignore.DefaultGeneratedIgnores()...)
			}
			if len(patterns) == 0 {
				return fmt.Errorf("no pattern given")
			}
			root, err := filepath.Abs(flagIgnorePath)
			if err != nil {
				return err
			}
			for _, p := range patterns {
				if err := ignore.Append(root, ignore.FileName, p); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", filepath.Join(root, ignore.FileName))
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagIgnorePath, "path", "p", ".", "scan root holding the ignore file")
	cmd.Flags().BoolVar(&flagIgnoreGenerated, "generated", false, "also ignore common generated-code files")
	rootCmd.AddCommand(cmd)
}
