package passcan

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// newLogger builds the CLI logger. --verbose raises the default level to
// info; an explicit --log-level wins.
func newLogger(w io.Writer, level string, verbose, noColor bool) (*logrus.Logger, error) {
	if level == "" {
		level = "warn"
	}
	if verbose && level == "warn" {
		level = "info"
	}
	lv, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lv)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:    noColor,
		DisableTimestamp: true,
	})
	return l, nil
}
