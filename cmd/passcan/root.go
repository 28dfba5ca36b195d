package passcan

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	flagJSON            bool
	flagSARIF           bool
	flagText            bool
	flagThreads         int
	flagFailOn          string
	flagNoColor         bool
	flagMinConfidence   float64
	flagNoCache         bool
	flagDefaultExcludes bool
	flagLogLevel        string
	flagVerbose         bool

	version = "0.1.0"

	logger = logrus.New()
)

// exitCode lets a command choose the process exit status without error
// output, e.g. 1 when findings reach --fail-on.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// rootCmd is the base Cobra command for the passcan CLI.
var rootCmd = &cobra.Command{
	Use:           "passcan",
	Short:         "Find secrets in your files",
	Long:          "passcan scans a directory tree for credentials, API keys and other secrets, and can keep watching it for changes.",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		l, err := newLogger(cmd.ErrOrStderr(), flagLogLevel, flagVerbose, flagNoColor)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute runs the passcan CLI. It should be called by the main package.
// Exit codes: 0 clean, 1 findings at or above --fail-on, 2 usage, load or
// watch errors.
func Execute() {
	os.Exit(run())
}

func run() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	if code, ok := err.(exitCode); ok {
		return int(code)
	}
	fmt.Fprintln(os.Stderr, "error:", err)
	return 2
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON")
	rootCmd.PersistentFlags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	rootCmd.PersistentFlags().BoolVar(&flagText, "text", false, "output in plain text columnar format instead of a table")
	rootCmd.PersistentFlags().IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	rootCmd.PersistentFlags().StringVar(&flagFailOn, "fail-on", "medium", "fail on low|medium|high|critical")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().Float64Var(&flagMinConfidence, "min-confidence", 0.0, "only show findings with confidence >= value (0-1)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "disable the in-memory match cache")
	rootCmd.PersistentFlags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "apply built-in exclude list (node_modules, dist, images, etc.)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show progress and list skipped files")
}
