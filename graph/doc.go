// Package graph accumulates builds keyed by artifact and writes them as a
// ninja manifest.
//
// Partial definitions of the same artifact are merged with [Build.Merge]:
// rules and variables must agree, explicit dependencies are appended and
// deduplicated lazily by [Graph.Finalize], and implicit and order-only
// dependencies are united. A [Manifest] frames the finalized graph with
// prolog and epilog text and a header recording the files it was generated
// from, which [Stale] checks later.
package graph
