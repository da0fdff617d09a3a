// Package lang defines the statement tree evaluated by package eval and
// decodes it from YAML scripts.
//
// A script is a sequence of statements, each a mapping with a single kind
// key:
//
//	- list: {id: s, do: [{search: "src/$$.c"}]}
//	- group:
//	    lists: s
//	    do:
//	      - pipe: [{stage: "src/$s.c"}, {op: cc, out: "obj/$s.o"}]
//
// Statements and pipe steps are sum types: [Stmt] and [Step] are sealed
// interfaces implemented by the types of this package only, so an
// evaluator handles them with one type switch.
//
// A backslash before a dollar in any string of the script keeps the dollar
// literal. It is carried through evaluation as [pkg.EscapedDollar].
package lang
