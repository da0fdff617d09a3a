package graph

import (
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Verdict is the opinion of a [Filter] about emitting a build.
type Verdict int

const (
	Abstain Verdict = iota
	Keep
	Drop
)

// Filter decides whether a build is emitted.
type Filter interface {
	Verdict(b *Build) (Verdict, error)
}

// FilterFunc adapts a function to [Filter].
type FilterFunc func(b *Build) (Verdict, error)

// Verdict calls f.
func (f FilterFunc) Verdict(b *Build) (Verdict, error) { return f(b) }

// Emit reports whether b passes every filter. A build is dropped as soon as
// one filter drops it.
func Emit(b *Build, filters ...Filter) (bool, error) {
	for _, f := range filters {
		v, err := f.Verdict(b)
		if err != nil {
			return false, err
		}

		if v == Drop {
			return false, nil
		}
	}

	return true, nil
}

// compile anchors each pattern so that it must match a whole artifact.
func compile(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))

	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return nil, ErrFilter.Wrap(err).With(slog.String("pattern", p))
		}

		res = append(res, re)
	}

	return res, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}

	return false
}

// Solo keeps only artifacts matching at least one pattern. Without patterns
// it abstains.
func Solo(patterns ...string) (Filter, error) {
	res, err := compile(patterns)
	if err != nil {
		return nil, err
	}

	return FilterFunc(func(b *Build) (Verdict, error) {
		switch {
		case len(res) == 0:
			return Abstain, nil
		case matchAny(res, b.Artifact):
			return Keep, nil
		default:
			return Drop, nil
		}
	}), nil
}

// Slice drops artifacts that match a pattern and already exist according to
// exists. A nil exists checks the filesystem.
func Slice(exists func(string) bool, patterns ...string) (Filter, error) {
	res, err := compile(patterns)
	if err != nil {
		return nil, err
	}

	if exists == nil {
		exists = fileExists
	}

	return FilterFunc(func(b *Build) (Verdict, error) {
		if matchAny(res, b.Artifact) && exists(b.Artifact) {
			return Drop, nil
		}

		return Abstain, nil
	}), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// Env is the environment of a [Where] expression.
type Env struct {
	Artifact string            `expr:"artifact"`
	Rule     string            `expr:"rule"`
	Deps     []string          `expr:"deps"`
	Implicit []string          `expr:"implicit"`
	Order    []string          `expr:"order"`
	Vars     map[string]string `expr:"vars"`
	Pool     string            `expr:"pool"`
}

// EnvOf returns the expression environment describing b.
func EnvOf(b *Build) Env {
	return Env{
		Artifact: b.Artifact,
		Rule:     b.Rule,
		Deps:     b.Deps,
		Implicit: b.Implicit.Sorted(),
		Order:    b.OrderOnly.Sorted(),
		Vars:     b.Vars,
		Pool:     b.Pool,
	}
}

// Where keeps builds for which the boolean expression holds and drops the
// others. An empty expression abstains.
//
//	rule == "cc" && artifact endsWith ".o"
func Where(expression string) (Filter, error) {
	if strings.TrimSpace(expression) == "" {
		return FilterFunc(func(*Build) (Verdict, error) { return Abstain, nil }), nil
	}

	program, err := expr.Compile(expression, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, ErrFilter.Wrap(err).With(slog.String("expression", expression))
	}

	return whereFilter{program: program, source: expression}, nil
}

type whereFilter struct {
	program *vm.Program
	source  string
}

func (w whereFilter) Verdict(b *Build) (Verdict, error) {
	out, err := vm.Run(w.program, EnvOf(b))
	if err != nil {
		return Abstain, ErrFilter.Wrap(err).With(
			slog.String("expression", w.source),
			slog.String("artifact", b.Artifact),
		)
	}

	if ok, _ := out.(bool); ok {
		return Keep, nil
	}

	return Drop, nil
}
