// Package cmd implements the command-line interface for weightgate, the
// Thompson Sampling weight-optimization companion service.
//
// The package is organized into a subpackage per subcommand:
//
//   - serve: starts the HTTP server, counter store, datafile repository and
//     recalculation scheduler
//   - util: shared utilities for command-line processing and configuration
//     (internal use)
//
// See weightgate --help for the full command list.
package cmd
