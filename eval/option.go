package eval

import (
	"os"

	"github.com/ardnew/ajnin/log"
)

// DefaultDebugLimit is the number of items logged by a debug statement.
const DefaultDebugLimit = 15

// Option configures an [Evaluator].
type Option func(*Evaluator)

// WithLogger sets the logger receiving warnings and traces.
func WithLogger(logger log.Logger) Option {
	return func(e *Evaluator) { e.logger = logger }
}

// WithLookupEnv sets the function resolving ${NAME} references.
// The default is [os.LookupEnv].
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(e *Evaluator) {
		if fn != nil {
			e.lookupEnv = fn
		}
	}
}

// WithRunner sets the function running execute statements.
func WithRunner(run Runner) Option {
	return func(e *Evaluator) {
		if run != nil {
			e.run = run
		}
	}
}

// WithDir sets the directory relative paths are resolved against. It is
// also the working directory of scripts read by [Evaluator.LoadReader].
// The default is the process working directory.
func WithDir(dir string) Option {
	return func(e *Evaluator) { e.dir = dir }
}

// WithQuiet suppresses warnings and debug statements.
func WithQuiet(quiet bool) Option {
	return func(e *Evaluator) { e.quiet = quiet }
}

// WithDebug enables tracing of scopes, file loads and commands.
func WithDebug(debug bool) Option {
	return func(e *Evaluator) { e.debug = debug }
}

// WithDebugLimit sets the number of items logged by a debug statement.
// A limit below one logs every item.
func WithDebugLimit(limit int) Option {
	return func(e *Evaluator) { e.debugLimit = limit }
}

func (e *Evaluator) applyDefaults() {
	e.logger = log.Default()
	e.lookupEnv = os.LookupEnv
	e.run = Shell()
	e.debugLimit = DefaultDebugLimit

	if wd, err := os.Getwd(); err == nil {
		e.dir = wd
	}
}
