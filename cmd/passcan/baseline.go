package passcan

import (
	"fmt"

	"github.com/passcan/passcan/internal/report"
	"github.com/spf13/cobra"
)

var (
	flagBaselinePath string
	flagBaselineOut  string
)

func init() {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Record current findings so later scans only report new ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := resolveSettings(cmd, flagBaselinePath)
			if err != nil {
				return err
			}
			coord, _, err := s.coordinator(false, nil)
			if err != nil {
				return err
			}
			rep, err := coord.RunFull(cmd.Context())
			if err != nil {
				return err
			}
			out := flagBaselineOut
			if out == "" {
				out = s.baseline
			}
			snap := rep.Snapshot()
			if err := report.SaveBaseline(out, snap.Findings); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Baseline updated: %d findings in %s\n", len(snap.Findings), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagBaselinePath, "path", "p", ".", "path to scan")
	cmd.Flags().StringVarP(&flagBaselineOut, "output", "o", "", "baseline file to write (default "+report.DefaultBaselineFile+")")
	rootCmd.AddCommand(cmd)
}
