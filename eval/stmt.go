package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/lang"
)

// block evaluates statements in order, stopping at the first error or
// when ctx is done.
func (e *Evaluator) block(ctx context.Context, b lang.Block) error {
	for _, s := range b {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.stmt(ctx, s); err != nil {
			return err
		}
	}

	return nil
}

func (e *Evaluator) stmt(ctx context.Context, s lang.Stmt) error {
	switch s := s.(type) {
	case lang.Debug:
		e.debugStmt(s)

		return nil

	case lang.Clear:
		e.lists.clear(s.List)

		return nil

	case lang.If:
		if e.decide(s.Ref) != s.Empty {
			return e.block(ctx, s.Then)
		}

		return e.block(ctx, s.Else)

	case lang.Rule:
		return e.ruleStmt(s)

	case lang.Deps:
		return e.depsStmt(s)

	case lang.Group:
		return e.group(ctx, s)

	case lang.List:
		return e.listStmt(s)

	case lang.Each:
		return e.each(ctx, s)

	case lang.Include:
		e.lists.declare(s.ID)

		return e.include(s.ID, s.Path)

	case lang.Pipe:
		return e.pipeStmt(ctx, s)

	case lang.Template:
		return e.declare(ctx, s)

	case lang.Prolog:
		text, err := e.expandEnv(s.Text)
		if err != nil {
			return err
		}

		e.prolog = append(e.prolog, text)

		return nil

	case lang.Epilog:
		text, err := e.expandEnv(s.Text)
		if err != nil {
			return err
		}

		e.epilog = append(e.epilog, text)

		return nil

	case lang.File:
		path, err := e.expandLiteral(s.Path)
		if err != nil {
			return err
		}

		return e.LoadFile(ctx, path)

	case lang.Execute:
		return e.execute(ctx, s)

	case lang.Meta:
		path, err := e.expandLiteral(s.Path)
		if err != nil {
			return err
		}

		e.meta.Add(e.resolve(path))

		return nil

	case lang.Pool:
		return e.poolStmt(s)

	default:
		return ErrUnknownStatement.With(slog.String("type", fmt.Sprintf("%T", s)))
	}
}

func (e *Evaluator) debugStmt(s lang.Debug) {
	if e.quiet {
		return
	}

	if s.List == lang.NoList {
		e.logger.Info("scope", slog.Any("snapshot", e.snapshot()))

		return
	}

	if !e.lists.exists(s.List) {
		e.logger.Info("list does not exist", slog.String("list", s.List.String()))

		return
	}

	items := e.lists.items(s.List)
	shown := items

	if e.debugLimit > 0 && len(shown) > e.debugLimit {
		shown = shown[:e.debugLimit]
	}

	names := make([]string, len(shown))
	for i, it := range shown {
		names[i] = it.String()
	}

	attrs := []slog.Attr{
		slog.String("list", s.List.String()),
		slog.Int("count", len(items)),
		slog.Any("items", names),
	}

	if len(shown) < len(items) {
		attrs = append(attrs, slog.Int("omitted", len(items)-len(shown)))
	}

	e.logger.Info("list", attrs...)
}

// decide reports whether the referenced value is non-empty. An unbound
// list or a missing argument is empty.
func (e *Evaluator) decide(ref lang.Ref) bool {
	item, ok := e.lookupItem(ref.List)
	if !ok {
		return false
	}

	if ref.Arg < 0 {
		return item.Name != ""
	}

	return item.arg(ref.Arg) != ""
}

func (e *Evaluator) ruleStmt(s lang.Rule) error {
	sc := e.current()

	targets := []*graph.Rule{&sc.zero}

	if len(s.Names) > 0 {
		targets = targets[:0]

		for _, name := range s.Names {
			r, ok := sc.rules[name]
			if !ok {
				r = &graph.Rule{}
				sc.rules[name] = r
			}

			r.Name = name
			targets = append(targets, r)
		}
	}

	for _, r := range targets {
		if err := e.assignAll(r, s.Assigns); err != nil {
			return err
		}

		implicit, err := e.expandAll(s.Implicit)
		if err != nil {
			return err
		}

		orderOnly, err := e.expandAll(s.OrderOnly)
		if err != nil {
			return err
		}

		r.Implicit = r.Implicit.Union(graph.NewSet(implicit...))
		r.OrderOnly = r.OrderOnly.Union(graph.NewSet(orderOnly...))
	}

	e.art = ""

	return nil
}

// assignAll evaluates assignments into r.
func (e *Evaluator) assignAll(r *graph.Rule, assigns []lang.Assign) error {
	e.rule = r
	defer func() { e.rule = nil }()

	for _, a := range assigns {
		if err := e.assign(r, a); err != nil {
			return err
		}
	}

	return nil
}

func (e *Evaluator) assign(r *graph.Rule, a lang.Assign) error {
	if a.Unset {
		delete(r.Vars, a.Var)

		return nil
	}

	value, ok, err := e.value(a.Value)
	if err != nil || !ok {
		return err
	}

	if a.Append {
		cur, err := e.lookupRule(r.Name)
		if err != nil {
			return err
		}

		value = cur.Vars[a.Var] + value
	}

	if r.Vars == nil {
		r.Vars = make(map[string]string)
	}

	r.Vars[a.Var] = value

	return nil
}

// value resolves the right-hand side of an assignment. It reports false
// when an item or argument reference has nothing to refer to.
func (e *Evaluator) value(v lang.Value) (string, bool, error) {
	switch v.Kind {
	case lang.ValueItem, lang.ValueArg:
		item, ok := e.lookupItem(v.Ref.List)
		if !ok {
			return "", false, nil
		}

		if v.Kind == lang.ValueItem {
			return item.Name, true, nil
		}

		if v.Ref.Arg >= len(item.Args) {
			return "", false, nil
		}

		return item.Args[v.Ref.Arg], true, nil

	case lang.ValueRaw:
		s, err := e.expandEnv(v.Text)

		return s, err == nil, err

	default:
		s, err := e.expandLiteral(v.Text)

		return s, err == nil, err
	}
}

func (e *Evaluator) expandAll(ss []string) ([]string, error) {
	if len(ss) == 0 {
		return nil, nil
	}

	out := make([]string, len(ss))

	for i, s := range ss {
		x, err := e.expandLiteral(s)
		if err != nil {
			return nil, err
		}

		out[i] = x
	}

	return out, nil
}

func (e *Evaluator) depsStmt(s lang.Deps) error {
	implicit, err := e.expandAll(s.Implicit)
	if err != nil {
		return err
	}

	orderOnly, err := e.expandAll(s.OrderOnly)
	if err != nil {
		return err
	}

	sc := e.current()
	sc.implicit = sc.implicit.Union(graph.NewSet(implicit...))
	sc.orderOnly = sc.orderOnly.Union(graph.NewSet(orderOnly...))

	return nil
}

func (e *Evaluator) group(ctx context.Context, g lang.Group) error {
	sc := e.push()
	defer e.pop()

	if g.Collect != nil {
		if err := e.collector(sc, g.Collect); err != nil {
			return err
		}
	}

	if len(g.Lists) == 0 {
		return e.block(ctx, g.Body)
	}

	names := make([]string, len(g.Lists))
	for i, id := range g.Lists {
		names[i] = id.String()

		if len(e.lists.items(id)) == 0 {
			e.trace("skipping group over empty list", slog.String("list", id.String()))

			return nil
		}
	}

	e.trace("entering group", slog.Any("lists", names))

	if err := e.cross(ctx, g.Lists, 0, g.Body); err != nil {
		return err
	}

	e.trace("exiting group", slog.Any("lists", names))

	return nil
}

// cross evaluates body for every combination of the items of ids[k:],
// varying the last list fastest. The rule state of the scope is reset
// after every combination.
func (e *Evaluator) cross(ctx context.Context, ids []lang.ListID, k int, body lang.Block) error {
	if k == len(ids) {
		if e.debug {
			bound := make([]string, len(ids))

			for i, id := range ids {
				item, _ := e.lookupItem(id)
				bound[i] = "$" + id.String() + "=" + item.Name
			}

			e.trace("binding", slog.Any("items", bound))
		}

		err := e.block(ctx, body)
		e.reset()

		return err
	}

	for i := 0; i < len(e.lists.items(ids[k])); i++ {
		e.bind(ids[k], e.lists.items(ids[k])[i])

		if err := e.cross(ctx, ids, k+1, body); err != nil {
			return err
		}
	}

	return nil
}

// collector installs the collecting build of a group into scope sc.
func (e *Evaluator) collector(sc *scope, c *lang.Collect) error {
	b := e.seedBuild()

	if err := e.complete(b, c.Rule, c.Assigns, c.Out); err != nil {
		return err
	}

	sc.collector = len(e.collectors)
	e.collectors = append(e.collectors, collector{build: b, also: c.Also})

	return nil
}

// complete sets the rule, variables and artifact of b as an operation
// does. An empty rule name is phony.
func (e *Evaluator) complete(b *graph.Build, name string, assigns []lang.Assign, out string) error {
	var r graph.Rule

	if name == "" {
		b.Rule = "phony"
	} else {
		var err error

		r, err = e.lookupRule(name)
		if err != nil {
			return err
		}

		if err := e.assignAll(&r, assigns); err != nil {
			return err
		}

		b.Rule = name
	}

	art, err := e.expandLiteral(out)
	if err != nil {
		return err
	}

	if art == "" {
		return graph.ErrNoArtifact.With(slog.String("out", out))
	}

	for k, v := range r.Vars {
		if b.Vars == nil {
			b.Vars = make(map[string]string, len(r.Vars))
		}

		b.Vars[k] = substituteOutput(v, art)
	}

	b.Implicit = b.Implicit.Union(r.Implicit)
	b.OrderOnly = b.OrderOnly.Union(r.OrderOnly)
	b.Artifact = art

	return nil
}

func (e *Evaluator) listStmt(s lang.List) error {
	e.lists.declare(s.ID)

	for _, op := range s.Ops {
		if err := e.listOp(s.ID, op); err != nil {
			return err
		}
	}

	return nil
}

func (e *Evaluator) listOp(id lang.ListID, op lang.ListOp) error {
	switch op := op.(type) {
	case lang.Search:
		return e.search(id, op.Pattern)

	case lang.Add:
		name, err := e.expandLiteral(op.Name)
		if err != nil {
			return err
		}

		args, err := e.expandAll(op.Args)
		if err != nil {
			return err
		}

		e.lists.append(id, Item{Name: name, Args: args})

	case lang.Remove:
		name, err := e.expandLiteral(op.Name)
		if err != nil {
			return err
		}

		e.lists.removeByName(id, name)

	case lang.Enum:
		names, err := e.expandAll(op.Names)
		if err != nil {
			return err
		}

		for _, name := range names {
			e.lists.append(id, Item{Name: name})
		}

	case lang.Modify:
		switch {
		case op.Sort:
			e.lists.sort(id, op.Desc, op.Unique)
		case op.Unique:
			e.lists.dedup(id)
		}

	default:
		return ErrUnknownStatement.With(slog.String("type", fmt.Sprintf("%T", op)))
	}

	return nil
}

// each evaluates body once per item of a list created from a search. The
// list exists only while body runs.
func (e *Evaluator) each(ctx context.Context, s lang.Each) error {
	if e.lists.exists(s.ID) {
		return ErrListExists.With(slog.String("list", s.ID.String()))
	}

	e.lists.declare(s.ID)
	defer e.lists.clear(s.ID)

	if err := e.search(s.ID, s.Pattern); err != nil {
		return err
	}

	e.push()
	defer e.pop()

	for _, item := range e.lists.items(s.ID) {
		e.bind(s.ID, item)

		err := e.block(ctx, s.Body)
		e.reset()

		if err != nil {
			return err
		}
	}

	return nil
}

func (e *Evaluator) execute(ctx context.Context, s lang.Execute) error {
	command, err := e.expandLiteral(s.Command)
	if err != nil {
		return err
	}

	dir, err := e.workDir()
	if err != nil {
		return err
	}

	e.trace("executing external command", slog.String("command", command))

	return e.run(ctx, dir, graph.Unescape(command))
}

func (e *Evaluator) poolStmt(s lang.Pool) error {
	name, err := e.expandLiteral(s.Name)
	if err != nil {
		return err
	}

	arts, err := e.expandAll(s.Artifacts)
	if err != nil {
		return err
	}

	for _, art := range arts {
		if cur, ok := e.pools[art]; ok && cur != name {
			return graph.ErrConflictPool.With(
				slog.String("artifact", art),
				slog.String("pool", cur),
				slog.String("other", name),
			)
		}

		e.pools[art] = name
	}

	return nil
}
