package graph

import (
	"log/slog"
	"maps"
	"slices"
)

// Build is the accumulated definition of one artifact.
type Build struct {
	Artifact  string            `json:"artifact"            yaml:"artifact"`
	Rule      string            `json:"rule"                yaml:"rule"`
	Deps      []string          `json:"deps,omitempty"      yaml:"deps,omitempty"`
	Implicit  Set               `json:"implicit,omitempty"  yaml:"implicit,omitempty"`
	OrderOnly Set               `json:"order,omitempty"     yaml:"order,omitempty"`
	Vars      map[string]string `json:"vars,omitempty"      yaml:"vars,omitempty"`
	Pool      string            `json:"pool,omitempty"      yaml:"pool,omitempty"`

	dirty bool
}

// Merge folds o into b.
//
// A build without artifact takes o as a whole. Otherwise the rule and the
// variables of both must be equal. Explicit dependencies of o are appended
// in order, and marked for [Build.Dedup]. The implicit and order-only sets
// are united, and a pool is adopted unless a different one is set.
func (b *Build) Merge(o *Build) error {
	if b.Artifact == "" {
		*b = *o.Clone()
		b.dirty = len(b.Deps) > 0

		return nil
	}

	if b.Rule != o.Rule {
		return ErrConflictRule.With(
			slog.String("artifact", b.Artifact),
			slog.String("rule", b.Rule),
			slog.String("other", o.Rule),
		)
	}

	if !maps.Equal(b.Vars, o.Vars) {
		return ErrConflictVar.With(slog.String("artifact", b.Artifact))
	}

	if b.Pool != "" && o.Pool != "" && b.Pool != o.Pool {
		return ErrConflictPool.With(
			slog.String("artifact", b.Artifact),
			slog.String("pool", b.Pool),
			slog.String("other", o.Pool),
		)
	}

	if o.Pool != "" {
		b.Pool = o.Pool
	}

	if len(o.Deps) > 0 {
		b.Deps = append(b.Deps, o.Deps...)
		b.dirty = true
	}

	b.Implicit = b.Implicit.Union(o.Implicit)
	b.OrderOnly = b.OrderOnly.Union(o.OrderOnly)

	return nil
}

// Dedup removes repeated explicit dependencies, keeping the first
// occurrence of each. It does nothing unless dependencies were appended
// since the last call, and reports whether any were removed.
func (b *Build) Dedup() bool {
	if !b.dirty {
		return false
	}

	b.dirty = false

	seen := make(Set, len(b.Deps))
	next := b.Deps[:0]

	for _, dep := range b.Deps {
		if seen.Has(dep) {
			continue
		}

		seen.Add(dep)
		next = append(next, dep)
	}

	found := len(next) != len(b.Deps)
	clear(b.Deps[len(next):])
	b.Deps = next

	return found
}

// Clone returns a deep copy of b.
func (b *Build) Clone() *Build {
	return &Build{
		Artifact:  b.Artifact,
		Rule:      b.Rule,
		Deps:      slices.Clone(b.Deps),
		Implicit:  b.Implicit.Clone(),
		OrderOnly: b.OrderOnly.Clone(),
		Vars:      maps.Clone(b.Vars),
		Pool:      b.Pool,
		dirty:     b.dirty,
	}
}

// Map returns a copy of b with fn applied to every string it holds.
func (b *Build) Map(fn func(string) (string, error)) (*Build, error) {
	var err error

	apply := func(s string) string {
		if err != nil {
			return s
		}

		var out string

		out, err = fn(s)

		return out
	}

	c := &Build{
		Artifact: apply(b.Artifact),
		Rule:     b.Rule,
		Pool:     apply(b.Pool),
		dirty:    b.dirty,
	}

	if len(b.Deps) > 0 {
		c.Deps = make([]string, len(b.Deps))
		for i, dep := range b.Deps {
			c.Deps[i] = apply(dep)
		}
	}

	for dep := range b.Implicit {
		c.Implicit = c.Implicit.Union(NewSet(apply(dep)))
	}

	for dep := range b.OrderOnly {
		c.OrderOnly = c.OrderOnly.Union(NewSet(apply(dep)))
	}

	if len(b.Vars) > 0 {
		c.Vars = make(map[string]string, len(b.Vars))
		for k, v := range b.Vars {
			c.Vars[k] = apply(v)
		}
	}

	return c, err
}
