// Package cli contains the command line interface for ajnin.
//
// # Usage
//
// Without a command, ajnin generates the manifest of a script:
//
//	ajnin build.yaml -o build.ninja
//	ajnin gen --if-stale --split 4 -o build.ninja build.yaml
//	ajnin graph --format json --root app build.yaml
//	ajnin watch -o build.ninja build.yaml
//
// Evaluation flags precede the command: -C selects the directory relative
// paths are resolved against, -q suppresses warnings, -d traces scopes, and
// --exec-path prepends directories to PATH of execute statements.
//
// # Configuration
//
// Flag defaults are read from config.json and config.yaml in the user
// configuration directory (for example ~/.config/ajnin). The YAML loader
// ([resolve]) accepts flag names with hyphens or underscores, and nested
// mappings whose keys join with hyphens. The init command writes the
// current flag values to config.yaml. Command-line flags override both
// files.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (timeonly, rfc3339, none, etc.)
//   - --log-caller: Include caller information in log output
//   - --[no-]log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
// It adds --pprof-mode (allocs, block, clock, cpu, goroutine, heap, mem,
// mutex, thread, trace) and --pprof-dir, which defaults to the pprof
// subdirectory of the user cache directory.
package cli
