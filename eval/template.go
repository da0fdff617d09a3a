package eval

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/lang"
)

// template is a pipe recorded once and replayed with its parameter bound.
type template struct {
	name      string
	param     lang.ListID
	graph     *graph.Graph
	terminals graph.Set
	nexts     []next
}

// next is a template applied at the end of another template.
type next struct {
	art       string
	name      string
	args      []string
	propagate bool
}

// merge folds a re-declaration into t.
func (t *template) merge(o *template) error {
	if t.param != o.param {
		return ErrConflictParam.With(
			slog.String("template", t.name),
			slog.String("param", t.param.String()),
			slog.String("other", o.param.String()),
		)
	}

	if err := t.graph.MergeGraph(o.graph); err != nil {
		return err
	}

	t.terminals = t.terminals.Union(o.terminals)
	t.nexts = append(t.nexts, o.nexts...)

	return nil
}

// declare records a template. Its steps run against a private graph, with
// references to the parameter left in place.
func (e *Evaluator) declare(ctx context.Context, s lang.Template) error {
	if e.tmpl != nil {
		return ErrNestedTemplate.With(
			slog.String("template", s.Name),
			slog.String("within", e.tmpl.name),
		)
	}

	t := &template{name: s.Name, param: s.Param, graph: graph.New()}

	live := e.graph
	e.graph = t.graph
	e.tmpl = t
	e.art = "$" + s.Param.String()
	e.build = e.seedBuild()

	defer func() {
		e.graph = live
		e.tmpl = nil
		e.art = ""
		e.build = nil
	}()

	if err := e.steps(ctx, s.Body); err != nil {
		return err
	}

	if !s.Detached && e.art != "" {
		t.terminals = graph.NewSet(e.art)
	}

	e.trace("declared template",
		slog.String("template", t.name),
		slog.Int("builds", t.graph.Len()),
		slog.Int("nexts", len(t.nexts)),
	)

	if cur, ok := e.templates[t.name]; ok {
		return cur.merge(t)
	}

	e.templates[t.name] = t

	return nil
}

// apply instantiates a template from a pipe. Inside a declaration the call
// is recorded as a chained call of the declared template instead.
func (e *Evaluator) apply(ctx context.Context, s lang.Apply) error {
	args, err := e.expandAll(s.Args)
	if err != nil {
		return err
	}

	if e.tmpl != nil {
		e.tmpl.nexts = append(e.tmpl.nexts, next{
			art:       e.art,
			name:      s.Template,
			args:      args,
			propagate: s.Propagate,
		})
		e.art = ""

		return nil
	}

	if s.Propagate {
		return ErrPropagateOutside.With(slog.String("template", s.Template))
	}

	arts, err := e.instantiate(ctx, s.Template, e.input(e.art, args))
	if err != nil {
		return err
	}

	switch len(arts) {
	case 0:
		e.art = ""
	case 1:
		e.art = arts[0]
	default:
		// Several results all feed the next operation.
		e.build.Deps = append(e.build.Deps, arts...)
		e.art = ""
	}

	return nil
}

// input returns the item bound to a template parameter: the current
// artifact with args, or the first arg with the others.
func (e *Evaluator) input(art string, args []string) Item {
	if art != "" || len(args) == 0 {
		return Item{Name: art, Args: args}
	}

	return Item{Name: args[0], Args: args[1:]}
}

// instantiate merges the builds of template name into the live graph with
// its parameter bound to item, and returns the resulting artifacts.
func (e *Evaluator) instantiate(ctx context.Context, name string, item Item) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, ok := e.templates[name]
	if !ok {
		err := ErrUndefinedTemplate.With(slog.String("template", name))

		if hint := e.suggest(name); len(hint) > 0 {
			err = err.With(slog.Any("did_you_mean", hint))
		}

		return nil, err
	}

	if slices.Contains(e.applying, name) {
		return nil, ErrTemplateCycle.With(
			slog.String("template", name),
			slog.Any("stack", slices.Clone(e.applying)),
		)
	}

	e.applying = append(e.applying, name)
	defer func() { e.applying = e.applying[:len(e.applying)-1] }()

	e.trace("applying template",
		slog.String("template", name),
		slog.String("input", item.String()),
	)

	sub := func(s string) (string, error) { return substitute(s, t.param, item) }

	for b := range t.graph.Builds() {
		patched, err := b.Map(sub)
		if err != nil {
			return nil, err
		}

		if err := e.graph.Merge(patched); err != nil {
			return nil, err
		}
	}

	if len(t.nexts) == 0 {
		out := make([]string, 0, len(t.terminals))

		for _, art := range t.terminals.Sorted() {
			s, err := sub(art)
			if err != nil {
				return nil, err
			}

			out = append(out, s)
		}

		return out, nil
	}

	var out []string

	for _, n := range t.nexts {
		art, err := sub(n.art)
		if err != nil {
			return nil, err
		}

		args := make([]string, len(n.args))
		for i, a := range n.args {
			if args[i], err = sub(a); err != nil {
				return nil, err
			}
		}

		arts, err := e.instantiate(ctx, n.name, e.input(art, args))
		if err != nil {
			return nil, err
		}

		if n.propagate {
			out = append(out, arts...)

			continue
		}

		for _, a := range arts {
			if err := e.link(a); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}

// suggest returns declared template names resembling name.
func (e *Evaluator) suggest(name string) []string {
	names := slices.Sorted(maps.Keys(e.templates))

	var out []string

	for _, m := range fuzzy.Find(name, names) {
		out = append(out, m.Str)

		if len(out) == 3 {
			break
		}
	}

	return out
}

// substitute replaces $p by the name of item and $pN by its argument N,
// where p is the template parameter.
func substitute(s string, param lang.ListID, item Item) (string, error) {
	ref := "$" + param.String()
	if !strings.Contains(s, ref) {
		return s, nil
	}

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i == len(s)-1 {
			b.WriteByte(s[i])

			continue
		}

		if lang.ListID(s[i+1]) != param {
			b.WriteString(s[i : i+2])

			i++

			continue
		}

		if !isDigit(s, i+2) {
			b.WriteString(item.Name)

			i++

			continue
		}

		n := int(s[i+2] - '0')
		if n >= len(item.Args) {
			return "", ErrParamIndex.With(
				slog.String("string", s),
				slog.Int("index", n),
				slog.Int("args", len(item.Args)),
			)
		}

		b.WriteString(item.Args[n])

		i += 2
	}

	return b.String(), nil
}
