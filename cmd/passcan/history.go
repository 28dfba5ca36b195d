package passcan

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/passcan/passcan/internal/audit"
	"github.com/spf13/cobra"
)

var (
	flagHistoryPath   string
	flagHistoryLimit  int
	flagHistoryDelete int
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the audit log of past scans (newest first)",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().StringVarP(&flagHistoryPath, "path", "p", ".", "scanned directory whose audit log to read")
	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "show at most this many records (0 = all)")
	cmd.Flags().IntVar(&flagHistoryDelete, "delete", -1, "delete the record at this index instead of listing")
	rootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	log := audit.Open(flagHistoryPath)
	if flagHistoryDelete >= 0 {
		if err := log.Delete(flagHistoryDelete); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted record %d\n", flagHistoryDelete)
		return nil
	}
	records, err := log.History()
	if err != nil {
		return err
	}
	if flagHistoryLimit > 0 && len(records) > flagHistoryLimit {
		records = records[:flagHistoryLimit]
	}
	out := cmd.OutOrStdout()
	if flagJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	table := tablewriter.NewTable(out,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{Symbols: tw.NewSymbols(tw.StyleLight)})),
	)
	table.Header("#", "Time", "Findings", "New", "Files", "Skipped", "Duration")
	for i, r := range records {
		if err := table.Append([]string{
			strconv.Itoa(i),
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.TotalFindings),
			strconv.Itoa(r.NewFindings),
			strconv.Itoa(r.FilesScanned),
			strconv.Itoa(r.FilesSkipped),
			r.Duration,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
