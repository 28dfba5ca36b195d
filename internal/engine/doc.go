// Package engine selects files under a scan root and feeds them through the
// matcher. Enumerate walks the tree lazily and applies the default excludes,
// ignore files and globs. A Coordinator runs full scans on a bounded worker
// pool and re-scans single paths for the watcher, writing outcomes into a
// report.Report under per-path stamps.
//
// This package is internal; external consumers should use pkg/core.
package engine
