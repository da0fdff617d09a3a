package profile

// Tag names the build tag, and the cache subdirectory, used for profiling.
const Tag = "pprof"

// Config functions return all supported pprof configuration parameters.
type Config func() (mode, path string, quiet bool)

// Start initializes the profiler and returns an interface for stopping it.
//
// If the pprof build tag or the mode is unset, Start returns a no-op
// implementation. Both Start and Stop are always safely callable.
func (c Config) Start() interface{ Stop() } {
	if c == nil {
		return ignore{}
	}

	mode, path, quiet := c()

	if mode == "" {
		return ignore{}
	}

	return start(mode, path, quiet)
}

// WithMode returns a functional option for setting a profiler's mode.
func WithMode(mode string) func(Config) Config {
	return edit(func(m, p *string, _ *bool) { *m = mode })
}

// WithPath returns a functional option for setting a profiler's output path.
func WithPath(path string) func(Config) Config {
	return edit(func(_, p *string, _ *bool) { *p = path })
}

// WithQuiet returns a functional option for setting a profiler's quiet flag.
func WithQuiet(quiet bool) func(Config) Config {
	return edit(func(_, _ *string, q *bool) { *q = quiet })
}

func edit(fn func(mode, path *string, quiet *bool)) func(Config) Config {
	return func(c Config) Config {
		var (
			mode, path string
			quiet      bool
		)

		if c != nil {
			mode, path, quiet = c()
		}

		fn(&mode, &path, &quiet)

		return func() (string, string, bool) { return mode, path, quiet }
	}
}

type ignore struct{}

func (ignore) Stop() {}
