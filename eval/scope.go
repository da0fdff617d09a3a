package eval

import (
	"maps"
	"slices"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/lang"
)

// noCollector marks a scope without a collecting build.
const noCollector = -1

// scope is one record of the evaluator's scope stack.
type scope struct {
	parent    int
	bindings  map[lang.ListID]Item
	zero      graph.Rule
	rules     map[string]*graph.Rule
	implicit  graph.Set
	orderOnly graph.Set
	collector int
	dir       string
}

// collector is a build that every pipe of its scope feeds.
type collector struct {
	build *graph.Build
	also  bool
}

// push enters a new scope nested in the current one.
func (e *Evaluator) push() *scope {
	s := &scope{
		parent:    len(e.scopes) - 1,
		bindings:  make(map[lang.ListID]Item),
		rules:     make(map[string]*graph.Rule),
		collector: noCollector,
	}

	e.scopes = append(e.scopes, s)

	return s
}

// pop leaves the current scope.
func (e *Evaluator) pop() {
	e.scopes[len(e.scopes)-1] = nil
	e.scopes = e.scopes[:len(e.scopes)-1]
}

func (e *Evaluator) current() *scope { return e.scopes[len(e.scopes)-1] }

// ancestry yields the scopes from the innermost outward.
func (e *Evaluator) ancestry(yield func(*scope) bool) {
	for i := len(e.scopes) - 1; i >= 0; i = e.scopes[i].parent {
		if !yield(e.scopes[i]) {
			return
		}
	}
}

// lineage returns the scopes from the root inward.
func (e *Evaluator) lineage() []*scope {
	var out []*scope

	for s := range e.ancestry {
		out = append(out, s)
	}

	slices.Reverse(out)

	return out
}

// bind makes item the binding of list id in the current scope.
func (e *Evaluator) bind(id lang.ListID, item Item) {
	e.current().bindings[id] = item
}

// lookupItem returns the innermost binding of list id.
func (e *Evaluator) lookupItem(id lang.ListID) (Item, bool) {
	for s := range e.ancestry {
		if item, ok := s.bindings[id]; ok {
			return item, true
		}
	}

	return Item{}, false
}

// lookupRule composes the rule called name from the root scope inward.
// At every level the zero rule is merged first, then the override of name,
// so inner definitions win while dependency sets accumulate.
func (e *Evaluator) lookupRule(name string) (graph.Rule, error) {
	r := graph.Rule{Name: name}

	for _, s := range e.lineage() {
		if err := r.Merge(s.zero); err != nil {
			return r, err
		}

		if o, ok := s.rules[name]; ok {
			if err := r.Merge(*o); err != nil {
				return r, err
			}
		}
	}

	return r, nil
}

// seedBuild returns an empty build carrying the dependency sets of every
// enclosing scope.
func (e *Evaluator) seedBuild() *graph.Build {
	b := &graph.Build{}

	for _, s := range e.lineage() {
		b.Implicit = b.Implicit.Union(s.implicit)
		b.OrderOnly = b.OrderOnly.Union(s.orderOnly)
	}

	return b
}

// workDir returns the directory of the nearest scope that has one.
func (e *Evaluator) workDir() (string, error) {
	for s := range e.ancestry {
		if s.dir != "" {
			return s.dir, nil
		}
	}

	return "", ErrNoWorkDir
}

// reset clears the rule state of the current scope, keeping its bindings
// and its collector.
func (e *Evaluator) reset() {
	s := e.current()
	s.zero = graph.Rule{}
	clear(s.rules)
	s.implicit = nil
	s.orderOnly = nil
}

// Snapshot is the flattened view of the scope stack.
type Snapshot struct {
	Bindings  map[string]string `json:"bindings"  yaml:"bindings"`
	Zero      map[string]string `json:"zero"      yaml:"zero"`
	Rules     []string          `json:"rules"     yaml:"rules"`
	Implicit  []string          `json:"implicit"  yaml:"implicit"`
	OrderOnly []string          `json:"order"     yaml:"order"`
	Depth     int               `json:"depth"     yaml:"depth"`
}

func (e *Evaluator) snapshot() Snapshot {
	var (
		zero      graph.Rule
		rules     = make(graph.Set)
		implicit  graph.Set
		orderOnly graph.Set
	)

	bindings := make(map[string]string)

	for _, s := range e.lineage() {
		for id, item := range s.bindings {
			bindings[id.String()] = item.Name
		}

		// Zero rules never carry a name, so merging cannot fail.
		_ = zero.Merge(s.zero)

		rules.Add(slices.Collect(maps.Keys(s.rules))...)
		implicit = implicit.Union(s.implicit)
		orderOnly = orderOnly.Union(s.orderOnly)
	}

	return Snapshot{
		Bindings:  bindings,
		Zero:      zero.Vars,
		Rules:     rules.Sorted(),
		Implicit:  implicit.Sorted(),
		OrderOnly: orderOnly.Sorted(),
		Depth:     len(e.scopes),
	}
}
