// Package cmd provides the subcommands of ajnin: gen writes the ninja
// manifest of a script, graph dumps its builds as JSON or YAML, browse
// explores them in the terminal, watch regenerates a stale manifest, and
// init writes the configuration file.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
