package graph

import (
	"log/slog"
	"maps"
)

// Rule is the command and variables a build inherits from its scope.
type Rule struct {
	Name      string
	Vars      map[string]string
	Implicit  Set
	OrderOnly Set
}

// Merge overlays o onto r. Variables of o overwrite those of r, and the
// dependency sets are united. An empty name takes the name of o; two
// different non-empty names are an error.
func (r *Rule) Merge(o Rule) error {
	if r.Name != "" && o.Name != "" && r.Name != o.Name {
		return ErrRuleName.With(
			slog.String("rule", r.Name),
			slog.String("other", o.Name),
		)
	}

	if o.Name != "" {
		r.Name = o.Name
	}

	if len(o.Vars) > 0 {
		if r.Vars == nil {
			r.Vars = make(map[string]string, len(o.Vars))
		}

		maps.Copy(r.Vars, o.Vars)
	}

	r.Implicit = r.Implicit.Union(o.Implicit)
	r.OrderOnly = r.OrderOnly.Union(o.OrderOnly)

	return nil
}

// Clone returns a deep copy of r.
func (r Rule) Clone() Rule {
	return Rule{
		Name:      r.Name,
		Vars:      maps.Clone(r.Vars),
		Implicit:  r.Implicit.Clone(),
		OrderOnly: r.OrderOnly.Clone(),
	}
}

// Empty reports whether r carries nothing.
func (r Rule) Empty() bool {
	return r.Name == "" && len(r.Vars) == 0 &&
		len(r.Implicit) == 0 && len(r.OrderOnly) == 0
}
