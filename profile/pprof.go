//go:build pprof

package profile

import (
	"slices"
	"strings"

	"github.com/pkg/profile"
)

// kind is a profiling mode and the file pkg/profile writes for it.
type kind struct {
	name string
	file string
	set  func(*profile.Profile)
}

// kinds is sorted by name.
var kinds = []kind{
	{"allocs", "mem.pprof", profile.MemProfileAllocs},
	{"block", "block.pprof", profile.BlockProfile},
	{"clock", "clock.pprof", profile.ClockProfile},
	{"cpu", "cpu.pprof", profile.CPUProfile},
	{"goroutine", "goroutine.pprof", profile.GoroutineProfile},
	{"heap", "mem.pprof", profile.MemProfileHeap},
	{"mem", "mem.pprof", profile.MemProfile},
	{"mutex", "mutex.pprof", profile.MutexProfile},
	{"thread", "threadcreation.pprof", profile.ThreadcreationProfile},
	{"trace", "trace.out", profile.TraceProfile},
}

// Modes returns the supported profiling modes in sorted order.
func Modes() []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.name
	}

	return names
}

// File returns the name of the file written by mode, or "" if mode is not
// supported.
func File(mode string) string {
	if k, ok := lookup(mode); ok {
		return k.file
	}

	return ""
}

func lookup(mode string) (kind, bool) {
	i, ok := slices.BinarySearchFunc(kinds, mode, func(k kind, m string) int {
		return strings.Compare(k.name, m)
	})
	if !ok {
		return kind{}, false
	}

	return kinds[i], true
}

// start profiles mode into path. The interrupt handler of pkg/profile is
// not installed: commands stop through their context, and the deferred Stop
// then flushes the profile.
func start(mode, path string, quiet bool) interface{ Stop() } {
	k, ok := lookup(mode)
	if !ok {
		return ignore{}
	}

	opts := []func(*profile.Profile){k.set, profile.NoShutdownHook}

	if path != "" {
		opts = append(opts, profile.ProfilePath(path))
	}

	if quiet {
		opts = append(opts, profile.Quiet)
	}

	return profile.Start(opts...)
}
