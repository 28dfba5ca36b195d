// Package passcan provides the command-line interface for the passcan tool.
// It configures subcommands (scan, rules, baseline, config, history, ignore),
// parses flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/passcan/passcan/cmd/passcan"
//	func main() { passcan.Execute() }
package passcan
