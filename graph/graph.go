package graph

import (
	"iter"
	"maps"
	"slices"

	"github.com/edwingeng/deque"
)

// Graph maps each artifact to its accumulated build.
type Graph struct {
	builds map[string]*Build
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{builds: make(map[string]*Build)}
}

// Merge folds b into the build of the same artifact, installing a copy of
// b if the artifact is new. Different expansions that produce the same
// artifact string are merged on purpose.
func (g *Graph) Merge(b *Build) error {
	if b.Artifact == "" {
		return ErrNoArtifact
	}

	cur, ok := g.builds[b.Artifact]
	if !ok {
		cur = &Build{}
		g.builds[b.Artifact] = cur
	}

	return cur.Merge(b)
}

// MergeGraph merges every build of o into g in artifact order.
func (g *Graph) MergeGraph(o *Graph) error {
	for b := range o.Builds() {
		if err := g.Merge(b); err != nil {
			return err
		}
	}

	return nil
}

// Get returns the build of artifact.
func (g *Graph) Get(artifact string) (*Build, bool) {
	b, ok := g.builds[artifact]

	return b, ok
}

// Len returns the number of artifacts.
func (g *Graph) Len() int { return len(g.builds) }

// Artifacts returns every artifact in lexical order.
func (g *Graph) Artifacts() []string {
	return slices.Sorted(maps.Keys(g.builds))
}

// Builds iterates the builds in artifact order.
func (g *Graph) Builds() iter.Seq[*Build] {
	return func(yield func(*Build) bool) {
		for _, a := range g.Artifacts() {
			if !yield(g.builds[a]) {
				return
			}
		}
	}
}

// Finalize deduplicates the explicit dependencies of every build and returns
// the number of builds that had duplicates.
func (g *Graph) Finalize() int {
	n := 0

	for _, b := range g.builds {
		if b.Dedup() {
			n++
		}
	}

	return n
}

// Closure returns the artifacts reachable from roots through explicit,
// implicit and order-only dependencies, roots included, in breadth-first
// order. Dependencies without a build of their own (sources) are included
// but not expanded. Unknown roots are ignored.
func (g *Graph) Closure(roots ...string) []string {
	var (
		seen  = make(Set)
		out   []string
		queue = deque.NewDeque()
	)

	for _, r := range roots {
		if _, ok := g.builds[r]; ok && !seen.Has(r) {
			seen.Add(r)
			queue.PushBack(r)
		}
	}

	for !queue.Empty() {
		a := queue.PopFront().(string)
		out = append(out, a)

		b, ok := g.builds[a]
		if !ok {
			continue
		}

		next := slices.Concat(b.Deps, b.Implicit.Sorted(), b.OrderOnly.Sorted())
		for _, dep := range next {
			if !seen.Has(dep) {
				seen.Add(dep)
				queue.PushBack(dep)
			}
		}
	}

	return out
}

// Subgraph returns a graph holding copies of the builds of artifacts.
func (g *Graph) Subgraph(artifacts []string) *Graph {
	s := New()

	for _, a := range artifacts {
		if b, ok := g.builds[a]; ok {
			s.builds[a] = b.Clone()
		}
	}

	return s
}
