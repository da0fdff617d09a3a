// Package log provides a concurrency-safe logging interface based on
// [log/slog], with a colorized handler for interactive use.
//
//	logger := log.Make(os.Stderr, log.WithLevel(log.LevelDebug))
//	logger.Info("manifest written", slog.String("path", out))
//
// Levels extend slog with [LevelTrace], used for per-item diagnostics such
// as path enumeration. Output is either [FormatText] or [FormatJSON], and
// both can be pretty printed with [WithPretty].
//
// The package-level functions log through a default logger writing to
// stderr, reconfigured with [Config].
package log
