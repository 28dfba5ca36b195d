package passcan

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/passcan/passcan/internal/detectors"
	"github.com/passcan/passcan/internal/report"
	"github.com/passcan/passcan/internal/rules"
	"github.com/spf13/cobra"
)

var flagRulesPath string

func init() {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the loaded rules",
		Long:  "List the built-in rules merged with any rule files and overrides from the config files and --rules.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, err := loadRuleSet(cmd)
			if err != nil {
				return err
			}
			if flagJSON {
				return writeRulesJSON(cmd.OutOrStdout(), rs)
			}
			return printRules(cmd.OutOrStdout(), rs)
		},
	}

	test := &cobra.Command{
		Use:   "test <id> <file>",
		Short: "Run a single rule against a file (use - for stdin)",
		Args:  cobra.ExactArgs(2),
		RunE:  runRulesTest,
	}

	cmd.PersistentFlags().StringArrayVar(&flagRules, "rules", nil, "YAML rule file merged over the built-in rules (repeatable)")
	cmd.PersistentFlags().BoolVar(&flagGitleaksRules, "gitleaks-rules", false, "add the gitleaks default rule pack")
	cmd.PersistentFlags().StringVarP(&flagRulesPath, "path", "p", ".", "directory whose config files are applied")
	cmd.AddCommand(test)
	rootCmd.AddCommand(cmd)
}

func loadRuleSet(cmd *cobra.Command) (*rules.Set, error) {
	s, err := resolveSettings(cmd, flagRulesPath)
	if err != nil {
		return nil, err
	}
	return s.ruleSet()
}

func runRulesTest(cmd *cobra.Command, args []string) error {
	rs, err := loadRuleSet(cmd)
	if err != nil {
		return err
	}
	one, err := rs.Only(args[0])
	if err != nil {
		return fmt.Errorf("%w (see `passcan rules`)", err)
	}
	var data []byte
	name := args[1]
	if name == "-" {
		name = "stdin"
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return err
	}
	snap := report.Snapshot{
		Root:         name,
		FilesScanned: 1,
		Findings:     detectors.Scan(name, data, one),
	}
	if flagJSON {
		return report.WriteJSON(cmd.OutOrStdout(), snap)
	}
	return report.PrintTable(cmd.OutOrStdout(), snap, report.PrintOptions{NoColor: flagNoColor || !stdoutIsTerminal(), ShowSecrets: true})
}

type ruleInfo struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Severity    string   `json:"severity"`
	MinEntropy  float64  `json:"min_entropy"`
	Specificity float64  `json:"specificity"`
	Validator   string   `json:"validator,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}

func writeRulesJSON(w io.Writer, rs *rules.Set) error {
	out := make([]ruleInfo, 0, rs.Len())
	for _, r := range rs.Rules() {
		out = append(out, ruleInfo{
			ID:          r.ID,
			Label:       r.Label,
			Severity:    string(r.Severity),
			MinEntropy:  r.MinEntropy,
			Specificity: r.Specificity,
			Validator:   r.Validator,
			Keywords:    r.Keywords,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printRules(w io.Writer, rs *rules.Set) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{Symbols: tw.NewSymbols(tw.StyleLight)})),
	)
	table.Header("ID", "Label", "Severity", "Min entropy", "Validator")
	for _, r := range rs.Rules() {
		if err := table.Append([]string{
			r.ID,
			r.Label,
			string(r.Severity),
			strconv.FormatFloat(r.MinEntropy, 'f', 1, 64),
			r.Validator,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d rules, fingerprint %016x\n", rs.Len(), rs.Fingerprint())
	return err
}
