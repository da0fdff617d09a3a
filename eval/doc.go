// Package eval evaluates scripts into a build graph.
//
// An [Evaluator] walks the statements of one or more scripts depth-first.
// Statements read and write a stack of scopes. Each scope holds list item
// bindings, rule defaults, inherited dependencies and an optional collecting
// build. Pipes create builds that are merged into a [graph.Graph] keyed by
// artifact, and templates record pipes for later replay with a bound
// parameter.
//
// Strings are expanded in two passes. The environment pass resolves ${NAME}
// and $/ (the directory of the script). The reference pass resolves $x to
// the name of the item bound to list x and $xN to its argument N, keeping
// the glob marker $$ for list searches.
package eval
