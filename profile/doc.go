// Package profile provides optional runtime profiling of the generator.
//
// Profiling is compiled in only with the "pprof" build tag, using
// [github.com/pkg/profile]. Without the tag every [Config] starts a no-op
// profiler and [Modes] is empty.
//
//	var cfg profile.Config = func() (string, string, bool) { return "", "", false }
//	cfg = profile.WithMode("cpu")(cfg)
//	cfg = profile.WithPath(dir)(cfg)
//	defer cfg.Start().Stop()
//
// Large script trees spend most of their time in path enumeration and
// template expansion, so "cpu" and "allocs" are the useful modes.
package profile
