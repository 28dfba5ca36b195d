// Package config loads passcan configuration from local and global YAML files.
// It is internal; CLI code layers flags over the files with the pick helpers
// and maps the result into engine options and rule sources.
package config
