package eval

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ardnew/ajnin/lang"
)

// expandEnv replaces ${NAME} by the value of environment variable NAME and
// $/ by the working directory of the current scope. Other references are
// copied unchanged.
func (e *Evaluator) expandEnv(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '$' {
			b.WriteByte(s[i])

			continue
		}

		if i == len(s)-1 {
			return "", ErrInvalidString.With(slog.String("string", s))
		}

		switch s[i+1] {
		case '/':
			dir, err := e.workDir()
			if err != nil {
				return "", err
			}

			b.WriteString(dir)

			i++

		case '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return "", ErrInvalidString.With(slog.String("string", s))
			}

			b.WriteString(e.env(s[i+2 : i+2+end]))

			i += 2 + end

		default:
			b.WriteString(s[i : i+2])

			i++
		}
	}

	return b.String(), nil
}

// env returns the value of an environment variable. A missing variable is
// empty and is reported once per name.
func (e *Evaluator) env(name string) string {
	if v, ok := e.lookupEnv(name); ok {
		return v
	}

	if !e.envWarned.Has(name) {
		e.envWarned.Add(name)

		if !e.quiet {
			e.logger.Warn("environment variable not found", slog.String("name", name))
		}
	}

	return ""
}

// expand runs the environment pass and then replaces list references:
// $X by the name of the item bound to list X, and $XN by its argument N.
//
// A glob marker ($$) is kept and reported. So are $@ while a rule is being
// assigned and references to the parameter of a template being declared.
func (e *Evaluator) expand(s0 string) (string, bool, error) {
	s, err := e.expandEnv(s0)
	if err != nil {
		return "", false, err
	}

	if !strings.Contains(s, "$") {
		return s, false, nil
	}

	var (
		b    strings.Builder
		glob bool
	)

	for i := 0; i < len(s); i++ {
		if s[i] != '$' {
			b.WriteByte(s[i])

			continue
		}

		if i == len(s)-1 {
			return "", false, ErrInvalidString.With(slog.String("string", s0))
		}

		c := s[i+1]

		switch {
		case c == '$':
			if glob {
				return "", false, ErrMultipleGlobs.With(slog.String("string", s0))
			}

			glob = true

			b.WriteString("$$")

			i++

			continue

		case c == '@' && e.rule != nil:
			b.WriteString("$@")

			i++

			continue

		case e.tmpl != nil && lang.ListID(c) == e.tmpl.param:
			n := 2
			if isDigit(s, i+2) {
				n = 3
			}

			b.WriteString(s[i : i+n])

			i += n - 1

			continue
		}

		item, ok := e.lookupItem(lang.ListID(c))
		if !ok {
			return "", false, ErrListNotEnumerated.With(
				slog.String("list", string(c)),
				slog.String("string", s0),
			)
		}

		if isDigit(s, i+2) {
			b.WriteString(item.arg(int(s[i+2] - '0')))

			i += 2

			continue
		}

		b.WriteString(item.Name)

		i++
	}

	return b.String(), glob, nil
}

// expandLiteral is expand for strings that may not hold a glob marker.
func (e *Evaluator) expandLiteral(s string) (string, error) {
	out, glob, err := e.expand(s)
	if err != nil {
		return "", err
	}

	if glob {
		return "", ErrGlobNotAllowed.With(slog.String("string", s))
	}

	return out, nil
}

// arg returns argument n, or "" when the item has fewer arguments.
func (it Item) arg(n int) string {
	if n < len(it.Args) {
		return it.Args[n]
	}

	return ""
}

func isDigit(s string, i int) bool {
	return i < len(s) && '0' <= s[i] && s[i] <= '9'
}

// substituteOutput replaces $@ by the output artifact of an operation.
func substituteOutput(s, out string) string {
	if !strings.Contains(s, "$@") {
		return s
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		switch {
		case s[i] != '$' || i == len(s)-1:
			b.WriteByte(s[i])

		case s[i+1] == '@':
			b.WriteString(out)

			i++

		default:
			b.WriteString(s[i : i+2])

			i++
		}
	}

	return b.String()
}

// resolve makes a relative path relative to the evaluator's directory.
func (e *Evaluator) resolve(path string) string {
	if filepath.IsAbs(path) || e.dir == "" {
		return path
	}

	return filepath.Join(e.dir, path)
}
