// Package cmd implements the command-line interface for the hscache
// indexed-access cache driver. It provides a hierarchical command
// structure for interacting with a cache namespace from the shell.
//
// The package is organized into several subpackages:
//
//   - cache: Commands for cache operations (get, set, del, clear, keys)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See hscache -help for a list of all commands.
package cmd
