package glob

import (
	"log/slog"
	"strings"
)

// Marker is the wildcard placeholder in a pattern.
const Marker = "$$"

// Result is the outcome of matching a candidate against a [Pattern].
type Result int

const (
	Reject Result = iota // no match
	Accept               // exact match of a pattern without marker
	Match                // match with a non-empty capture
)

func (r Result) String() string {
	switch r {
	case Reject:
		return "reject"
	case Accept:
		return "accept"
	case Match:
		return "match"
	default:
		return "Result(?)"
	}
}

// Pattern is a compiled path segment.
type Pattern struct {
	prefix string
	suffix string
	wild   bool
}

// Compile parses a single path segment.
func Compile(segment string) (Pattern, error) {
	if strings.ContainsRune(segment, '/') {
		return Pattern{}, ErrSeparator.With(slog.String("segment", segment))
	}

	before, after, found := strings.Cut(segment, Marker)
	if !found {
		return Pattern{prefix: segment}, nil
	}

	if strings.Contains(after, Marker) {
		return Pattern{}, ErrMultipleMarkers.With(slog.String("segment", segment))
	}

	return Pattern{prefix: before, suffix: after, wild: true}, nil
}

// MustCompile is like [Compile] but panics on error.
func MustCompile(segment string) Pattern {
	p, err := Compile(segment)
	if err != nil {
		panic(err)
	}

	return p
}

// Wild reports whether the pattern carries a marker.
func (p Pattern) Wild() bool { return p.wild }

// String returns the segment the pattern was compiled from.
func (p Pattern) String() string {
	if p.wild {
		return p.prefix + Marker + p.suffix
	}

	return p.prefix
}

// Match matches candidate against the pattern. The capture is non-empty
// exactly when the result is [Match].
func (p Pattern) Match(candidate string) (Result, string) {
	if !p.wild {
		if candidate == p.prefix {
			return Accept, ""
		}

		return Reject, ""
	}

	// The capture may not be empty.
	if len(p.prefix)+len(p.suffix) >= len(candidate) {
		return Reject, ""
	}

	if !strings.HasPrefix(candidate, p.prefix) ||
		!strings.HasSuffix(candidate, p.suffix) {
		return Reject, ""
	}

	return Match, candidate[len(p.prefix) : len(candidate)-len(p.suffix)]
}

// HasMarker reports whether s contains a marker.
func HasMarker(s string) bool { return strings.Contains(s, Marker) }
