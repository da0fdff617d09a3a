package lang

import (
	"log/slog"
	"strconv"
)

// ListID names a list. Identifiers are single ASCII letters.
type ListID byte

// NoList is the zero ListID.
const NoList ListID = 0

func (id ListID) String() string {
	if id == NoList {
		return ""
	}

	return string(rune(id))
}

// ParseListID parses a single-letter list identifier.
func ParseListID(s string) (ListID, error) {
	if len(s) != 1 || !isLetter(s[0]) {
		return NoList, ErrInvalidListID.With(slog.String("id", s))
	}

	return ListID(s[0]), nil
}

// IsListID reports whether c can name a list.
func IsListID(c byte) bool { return isLetter(c) }

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Ref refers to the item bound to a list, or to one of its arguments.
type Ref struct {
	List ListID
	Arg  int // -1 refers to the item name
}

// ParseRef parses "x" (the name of the item bound to x) or "xN" (its
// argument N, a single digit).
func ParseRef(s string) (Ref, error) {
	switch {
	case len(s) == 1 && isLetter(s[0]):
		return Ref{List: ListID(s[0]), Arg: -1}, nil

	case len(s) == 2 && isLetter(s[0]) && '0' <= s[1] && s[1] <= '9':
		return Ref{List: ListID(s[0]), Arg: int(s[1] - '0')}, nil

	default:
		return Ref{}, ErrInvalidRef.With(slog.String("ref", s))
	}
}

func (r Ref) String() string {
	if r.Arg < 0 {
		return r.List.String()
	}

	return r.List.String() + strconv.Itoa(r.Arg)
}

// Stmt is a statement of a script.
type Stmt interface{ stmt() }

// Block is a sequence of statements. The branches of an [If] run in the
// enclosing scope; other statements holding a Block open a new one.
type Block []Stmt

type (
	// Debug logs the items of List, or the current scope when List is
	// [NoList].
	Debug struct{ List ListID }

	// Clear deletes a list.
	Clear struct{ List ListID }

	// If evaluates Then when the referenced value is non-empty, Else
	// otherwise. Empty inverts the test.
	If struct {
		Ref   Ref
		Empty bool
		Then  Block
		Else  Block
	}

	// Rule assigns variables and dependencies to the unnamed rule of the
	// current scope, or to each named rule override.
	Rule struct {
		Names     []string
		Assigns   []Assign
		Implicit  []string
		OrderOnly []string
	}

	// Deps adds dependencies inherited by every build of the current scope.
	Deps struct {
		Implicit  []string
		OrderOnly []string
	}

	// Group evaluates Body once for every combination of the items of
	// Lists, or once without lists. Collect sets up a build collecting the
	// results of the pipes in Body.
	Group struct {
		Lists   []ListID
		Collect *Collect
		Body    Block
	}

	// List applies Ops to a list, creating it if needed.
	List struct {
		ID  ListID
		Ops []ListOp
	}

	// Each creates list ID from a search, evaluates Body once per item,
	// and deletes the list.
	Each struct {
		ID      ListID
		Pattern string
		Body    Block
	}

	// Include appends the items of a list file to a list.
	Include struct {
		ID   ListID
		Path string
	}

	// Pipe chains steps from sources to a final artifact.
	Pipe struct{ Steps []Step }

	// Template declares a reusable pipe parametrized by list Param. A
	// Detached template has no terminal artifact.
	Template struct {
		Name     string
		Param    ListID
		Detached bool
		Body     []Step
	}

	// Prolog is a line written before the builds of the manifest.
	Prolog struct{ Text string }

	// Epilog is a line written after the builds of the manifest.
	Epilog struct{ Text string }

	// File evaluates another script.
	File struct{ Path string }

	// Execute runs a shell command.
	Execute struct{ Command string }

	// Meta records a file the manifest depends on.
	Meta struct{ Path string }

	// Pool assigns a pool to artifacts.
	Pool struct {
		Name      string
		Artifacts []string
	}
)

func (Debug) stmt()    {}
func (Clear) stmt()    {}
func (If) stmt()       {}
func (Rule) stmt()     {}
func (Deps) stmt()     {}
func (Group) stmt()    {}
func (List) stmt()     {}
func (Each) stmt()     {}
func (Include) stmt()  {}
func (Pipe) stmt()     {}
func (Template) stmt() {}
func (Prolog) stmt()   {}
func (Epilog) stmt()   {}
func (File) stmt()     {}
func (Execute) stmt()  {}
func (Meta) stmt()     {}
func (Pool) stmt()     {}

// Collect describes the build of a group that collects pipe results.
type Collect struct {
	Rule    string // empty means phony
	Assigns []Assign
	Out     string
	Also    bool // keep the result of each pipe instead of the collector
}

// ListOp mutates a list.
type ListOp interface{ listOp() }

type (
	// Search appends one item per file matching Pattern.
	Search struct{ Pattern string }

	// Add appends one item.
	Add struct {
		Name string
		Args []string
	}

	// Remove deletes every item called Name.
	Remove struct{ Name string }

	// Enum appends one argument-less item per name.
	Enum struct{ Names []string }

	// Modify sorts the list by name and/or removes items with repeated
	// names.
	Modify struct {
		Sort   bool
		Desc   bool
		Unique bool
	}
)

func (Search) listOp() {}
func (Add) listOp()    {}
func (Remove) listOp() {}
func (Enum) listOp()   {}
func (Modify) listOp() {}

// Step is an element of a pipe.
type Step interface{ step() }

type (
	// Stage sets the current artifact.
	Stage struct{ Path string }

	// From adds dependencies to the pending build.
	From struct{ Artifacts []Artifact }

	// Operation completes the pending build with Rule and output Out.
	Operation struct {
		Rule    string // empty means phony
		Assigns []Assign
		Out     string
	}

	// Also evaluates Steps as a side branch, restoring the current
	// artifact afterwards.
	Also struct{ Steps []Step }

	// Apply instantiates a template.
	Apply struct {
		Template  string
		Args      []string
		Propagate bool
	}
)

func (Stage) step()     {}
func (From) step()      {}
func (Operation) step() {}
func (Also) step()      {}
func (Apply) step()     {}

// DepKind distinguishes the three dependency lists of a build.
type DepKind int

const (
	DepExplicit DepKind = iota
	DepImplicit
	DepOrderOnly
)

// Artifact is a dependency given by path or by the result of a nested pipe.
type Artifact struct {
	Kind DepKind
	Path string
	Pipe *Pipe
}

// Assign sets, appends to, or unsets a rule variable.
type Assign struct {
	Var    string
	Append bool
	Unset  bool
	Value  Value
}

// ValueKind selects how a [Value] is resolved.
type ValueKind int

const (
	ValueItem ValueKind = iota // name of the item bound to a list
	ValueArg                   // argument of the item bound to a list
	ValueRaw                   // string with environment expansion only
	ValueStr                   // string with full expansion
)

// Value is the right-hand side of an [Assign].
type Value struct {
	Kind ValueKind
	Text string
	Ref  Ref
}
