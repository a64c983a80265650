// Package cmd implements the command-line interface for keymux. It provides
// a hierarchical command structure with operations for running servers and
// interacting with them as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting a backend cache server
//   - proxy: Commands for starting the routing proxy daemon
//   - kv: Commands for key-value operations (get, set, delete, etc.)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See keymux -help for a list of all commands.
package cmd
