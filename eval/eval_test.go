package eval

import (
	"bytes"
	"context"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/log"
)

// recorder collects the commands of execute statements.
type recorder struct{ commands []string }

func (r *recorder) run(_ context.Context, _, command string) error {
	r.commands = append(r.commands, command)

	return nil
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(name string) (string, bool) {
		v, ok := vars[name]

		return v, ok
	}
}

func newEvaluator(t *testing.T, logs *bytes.Buffer, opts ...Option) *Evaluator {
	t.Helper()

	logger := log.Make(logs,
		log.WithPretty(false),
		log.WithTimeLayout("none"),
		log.WithLevel(log.LevelDebug),
	)

	base := []Option{
		WithLogger(logger),
		WithDir(t.TempDir()),
		WithLookupEnv(env(nil)),
		WithRunner(func(context.Context, string, string) error { return nil }),
	}

	return New(append(base, opts...)...)
}

func eval(t *testing.T, src string, opts ...Option) (*Evaluator, error) {
	t.Helper()

	e := newEvaluator(t, &bytes.Buffer{}, opts...)

	return e, e.LoadReader(t.Context(), strings.NewReader(src))
}

func mustEval(t *testing.T, src string, opts ...Option) *graph.Graph {
	t.Helper()

	e, err := eval(t, src, opts...)
	if err != nil {
		t.Fatal(err)
	}

	m, err := e.Manifest()
	if err != nil {
		t.Fatal(err)
	}

	return m.Graph
}

func mustGet(t *testing.T, g *graph.Graph, art string) *graph.Build {
	t.Helper()

	b, ok := g.Get(art)
	if !ok {
		t.Fatalf("no build for %q in %v", art, g.Artifacts())
	}

	return b
}

func TestEvaluator_Group_CrossProductOrder(t *testing.T) {
	var rec recorder

	src := `
- list: {id: a, do: [{enum: [a1, a2]}]}
- list: {id: b, do: [{enum: [b1, b2]}]}
- group:
    lists: ab
    do:
      - execute: echo $a$b
      - pipe: [{stage: $a.c}, {op: cc, out: $a$b.o}]
`

	e, err := eval(t, src, WithRunner(rec.run))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"echo a1b1", "echo a1b2", "echo a2b1", "echo a2b2"}
	if !slices.Equal(rec.commands, want) {
		t.Errorf("commands = %v, want %v", rec.commands, want)
	}

	m, err := e.Manifest()
	if err != nil {
		t.Fatal(err)
	}

	arts := []string{"a1b1.o", "a1b2.o", "a2b1.o", "a2b2.o"}
	if got := m.Graph.Artifacts(); !slices.Equal(got, arts) {
		t.Errorf("artifacts = %v, want %v", got, arts)
	}

	if b := mustGet(t, m.Graph, "a2b1.o"); !slices.Equal(b.Deps, []string{"a2.c"}) {
		t.Errorf("a2b1.o deps = %v", b.Deps)
	}
}

func TestEvaluator_Scope_BindingPrecedence(t *testing.T) {
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "inner.c"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "visible in nested group",
			body: `
      - group:
          do:
            - execute: nested $x
      - execute: after $x`,
			want: []string{"nested outer", "after outer"},
		},
		{
			name: "nested group rebinds",
			body: `
      - clear: x
      - list: {id: x, do: [{enum: [inner]}]}
      - group:
          lists: x
          do:
            - execute: nested $x
      - execute: after $x`,
			want: []string{"nested inner", "after outer"},
		},
		{
			name: "each rebinds",
			body: `
      - clear: x
      - each:
          id: x
          search: $$.c
          do:
            - execute: nested $x
      - execute: after $x`,
			want: []string{"nested inner", "after outer"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec recorder

			src := `
- list: {id: x, do: [{enum: [outer]}]}
- group:
    lists: x
    do:` + tt.body + "\n"

			if _, err := eval(t, src, WithDir(dir), WithRunner(rec.run)); err != nil {
				t.Fatal(err)
			}

			if !slices.Equal(rec.commands, tt.want) {
				t.Errorf("commands = %v, want %v", rec.commands, tt.want)
			}
		})
	}
}

func TestEvaluator_Group_EmptyListSkipsBody(t *testing.T) {
	var rec recorder

	src := `
- list: {id: a, do: [{enum: [a1]}]}
- list: {id: b}
- group:
    lists: ab
    do:
      - execute: echo $a$b
`

	if _, err := eval(t, src, WithRunner(rec.run)); err != nil {
		t.Fatal(err)
	}

	if len(rec.commands) != 0 {
		t.Errorf("commands = %v, want none", rec.commands)
	}
}

func TestEvaluator_Template_Substitution(t *testing.T) {
	src := `
- template:
    name: obj
    param: f
    do:
      - stage: $f.c
      - op: cc
        out: foo_$f.o
- pipe:
    - apply: obj
      args: [bar]
`

	g := mustEval(t, src)

	if got := g.Artifacts(); !slices.Equal(got, []string{"foo_bar.o"}) {
		t.Fatalf("artifacts = %v, want [foo_bar.o]", got)
	}

	b := mustGet(t, g, "foo_bar.o")
	if b.Rule != "cc" || !slices.Equal(b.Deps, []string{"bar.c"}) {
		t.Errorf("build = %+v, want cc <- bar.c", b)
	}
}

func TestEvaluator_Template_ParamArgs(t *testing.T) {
	src := `
- template:
    name: obj
    param: f
    do:
      - op: cc
        set: [{var: flags, str: $f0}]
        out: $f1/$f.o
- pipe:
    - stage: main.c
    - apply: obj
      args: [-O2, build]
`

	g := mustEval(t, src)

	b := mustGet(t, g, "build/main.c.o")
	if b.Vars["flags"] != "-O2" || !slices.Equal(b.Deps, []string{"main.c"}) {
		t.Errorf("build = %+v", b)
	}
}

func TestEvaluator_Template_PropagateChain(t *testing.T) {
	src := `
- template:
    name: compile
    param: f
    do: [{op: cc, out: $f.o}]
- template:
    name: both
    param: g
    do: [{apply: compile, propagate: true}]
- pipe:
    - stage: x.c
    - apply: both
    - op: link
      out: x
`

	g := mustEval(t, src)

	if b := mustGet(t, g, "x.c.o"); !slices.Equal(b.Deps, []string{"x.c"}) {
		t.Errorf("x.c.o deps = %v", b.Deps)
	}

	if b := mustGet(t, g, "x"); b.Rule != "link" || !slices.Equal(b.Deps, []string{"x.c.o"}) {
		t.Errorf("x = %+v", b)
	}
}

func TestEvaluator_Template_ChainLinksCollector(t *testing.T) {
	src := `
- template:
    name: compile
    param: f
    do: [{op: cc, out: $f.o}]
- template:
    name: both
    param: g
    do: [{apply: compile}]
- group:
    collect: {op: link, out: all}
    do:
      - pipe: [{stage: x.c}, {apply: both}]
`

	g := mustEval(t, src)

	if b := mustGet(t, g, "all"); !slices.Equal(b.Deps, []string{"x.c.o"}) {
		t.Errorf("all deps = %v, want [x.c.o]", b.Deps)
	}
}

func TestEvaluator_Template_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			name: "undefined",
			src: `
- template: {name: compile, param: f, do: [{op: cc, out: $f.o}]}
- pipe: [{stage: a.c}, {apply: compil}]
`,
			want: ErrUndefinedTemplate,
		},
		{
			name: "param index",
			src: `
- template: {name: t, param: f, do: [{op: cc, out: $f1.o}]}
- pipe: [{stage: a.c}, {apply: t}]
`,
			want: ErrParamIndex,
		},
		{
			name: "propagate outside",
			src: `
- template: {name: t, param: f, do: [{op: cc, out: $f.o}]}
- pipe: [{stage: a.c}, {apply: t, propagate: true}]
`,
			want: ErrPropagateOutside,
		},
		{
			name: "conflicting param",
			src: `
- template: {name: t, param: f, do: [{op: cc, out: $f.o}]}
- template: {name: t, param: g, do: [{op: cc, out: $g.o}]}
`,
			want: ErrConflictParam,
		},
		{
			name: "cycle",
			src: `
- template: {name: t, param: f, do: [{apply: t}]}
- pipe: [{stage: a.c}, {apply: t}]
`,
			want: ErrTemplateCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eval(t, tt.src)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluator_Template_Suggestion(t *testing.T) {
	e := newEvaluator(t, &bytes.Buffer{})

	src := `
- template: {name: compile, param: f, do: [{op: cc, out: $f.o}]}
- template: {name: link, param: f, do: [{op: ld, out: $f.elf}]}
`
	if err := e.LoadReader(t.Context(), strings.NewReader(src)); err != nil {
		t.Fatal(err)
	}

	if got := e.suggest("cmpl"); !slices.Equal(got, []string{"compile"}) {
		t.Errorf("suggest = %v, want [compile]", got)
	}

	if got := e.Templates(); !slices.Equal(got, []string{"compile", "link"}) {
		t.Errorf("Templates = %v", got)
	}
}

func TestEvaluator_Rule_ContextPrecedence(t *testing.T) {
	src := `
- rule: {names: [cc], set: [{var: flags, str: -O0}], implicit: [outer.h]}
- group:
    do:
      - rule: {set: [{var: opt, str: zero}]}
      - rule: {names: [cc], set: [{var: flags, str: -O2}], implicit: [inner.h]}
      - deps: {order: [gen]}
      - pipe: [{stage: a.c}, {op: cc, out: a.o}]
- pipe: [{stage: b.c}, {op: cc, out: b.o}]
`

	g := mustEval(t, src)

	a := mustGet(t, g, "a.o")

	wantVars := map[string]string{"flags": "-O2", "opt": "zero"}
	if !maps.Equal(a.Vars, wantVars) {
		t.Errorf("a.o vars = %v, want %v", a.Vars, wantVars)
	}

	if got := a.Implicit.Sorted(); !slices.Equal(got, []string{"inner.h", "outer.h"}) {
		t.Errorf("a.o implicit = %v", got)
	}

	if got := a.OrderOnly.Sorted(); !slices.Equal(got, []string{"gen"}) {
		t.Errorf("a.o order-only = %v", got)
	}

	b := mustGet(t, g, "b.o")
	if b.Vars["flags"] != "-O0" || len(b.OrderOnly) != 0 || b.Implicit.Has("inner.h") {
		t.Errorf("b.o = %+v, want only outer definitions", b)
	}
}

func TestEvaluator_Rule_AppendAndUnset(t *testing.T) {
	src := `
- rule: {names: [cc], set: [{var: flags, str: -O0}, {var: extra, str: x}]}
- group:
    do:
      - rule:
          names: [cc]
          set:
            - {var: flags, append: true, raw: " -g"}
            - {var: out, str: "-o $@"}
      - pipe:
          - stage: a.c
          - op: cc
            set: [{var: extra, unset: true}]
            out: a.o
`

	g := mustEval(t, src)

	want := map[string]string{"flags": "-O0 -g", "out": "-o a.o"}
	if got := mustGet(t, g, "a.o").Vars; !maps.Equal(got, want) {
		t.Errorf("vars = %v, want %v", got, want)
	}
}

func TestEvaluator_Value_UnboundSkipped(t *testing.T) {
	src := `
- list: {id: x, do: [{add: [one]}]}
- group:
    lists: x
    do:
      - pipe:
          - stage: $x.c
          - op: cc
            set:
              - {var: name, item: x}
              - {var: arg, arg: x0}
              - {var: other, item: q}
            out: $x.o
`

	g := mustEval(t, src)

	want := map[string]string{"name": "one"}
	if got := mustGet(t, g, "one.o").Vars; !maps.Equal(got, want) {
		t.Errorf("vars = %v, want %v", got, want)
	}
}

func TestEvaluator_Collect(t *testing.T) {
	src := `
- list: {id: s, do: [{enum: [a, b]}]}
- group:
    collect: {out: all}
    do:
      - group:
          lists: s
          collect: {op: link, out: app}
          do:
            - pipe: [{stage: $s.c}, {op: cc, out: $s.o}]
`

	g := mustEval(t, src)

	app := mustGet(t, g, "app")
	if app.Rule != "link" || !slices.Equal(app.Deps, []string{"a.o", "b.o"}) {
		t.Errorf("app = %+v", app)
	}

	all := mustGet(t, g, "all")
	if all.Rule != "phony" || !slices.Equal(all.Deps, []string{"app"}) {
		t.Errorf("all = %+v", all)
	}
}

func TestEvaluator_Collect_Also(t *testing.T) {
	src := `
- group:
    collect: {out: all}
    do:
      - group:
          collect: {op: link, out: app, also: true}
          do:
            - pipe: [{stage: a.c}, {op: cc, out: a.o}]
`

	g := mustEval(t, src)

	if all := mustGet(t, g, "all"); !slices.Equal(all.Deps, []string{"a.o"}) {
		t.Errorf("all deps = %v, want [a.o]", all.Deps)
	}
}

func TestEvaluator_Pipe_FromAndAlso(t *testing.T) {
	src := `
- pipe:
    - from:
        - a.o
        - "~ld.script"
        - "~~gen"
        - pipe: [{stage: b.c}, {op: cc, out: b.o}]
    - op: link
      out: app
- pipe:
    - stage: c.c
    - also: [{op: lint, out: c.lint}]
    - op: cc
      out: c.o
`

	g := mustEval(t, src)

	app := mustGet(t, g, "app")
	if !slices.Equal(app.Deps, []string{"a.o", "b.o"}) {
		t.Errorf("app deps = %v", app.Deps)
	}

	if !app.Implicit.Has("ld.script") || !app.OrderOnly.Has("gen") {
		t.Errorf("app = %+v", app)
	}

	if c := mustGet(t, g, "c.o"); !slices.Equal(c.Deps, []string{"c.c"}) {
		t.Errorf("c.o deps = %v, want [c.c]", c.Deps)
	}

	if l := mustGet(t, g, "c.lint"); !slices.Equal(l.Deps, []string{"c.c"}) {
		t.Errorf("c.lint deps = %v, want [c.c]", l.Deps)
	}
}

func TestEvaluator_Merge_Conflict(t *testing.T) {
	src := `
- pipe: [{stage: a.c}, {op: cc, out: a.o}]
- pipe: [{stage: a.s}, {op: as, out: a.o}]
`

	if _, err := eval(t, src); !errors.Is(err, graph.ErrConflictRule) {
		t.Errorf("error = %v, want ErrConflictRule", err)
	}
}

func TestEvaluator_Merge_DedupDeps(t *testing.T) {
	src := `
- pipe: [{from: [a.o, b.o]}, {op: link, out: app}]
- pipe: [{from: [b.o, c.o, a.o]}, {op: link, out: app}]
`

	g := mustEval(t, src)

	if got := mustGet(t, g, "app").Deps; !slices.Equal(got, []string{"a.o", "b.o", "c.o"}) {
		t.Errorf("deps = %v", got)
	}
}

func TestEvaluator_Expand_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{name: "unbound list", src: "- pipe: [{stage: $q.c}]", want: ErrListNotEnumerated},
		{name: "glob in stage", src: "- pipe: [{stage: $$.c}]", want: ErrGlobNotAllowed},
		{name: "two globs", src: "- list: {id: s, do: [{search: $$/$$.c}]}", want: ErrMultipleGlobs},
		{name: "no glob", src: "- list: {id: s, do: [{search: src/a.c}]}", want: ErrNoGlob},
		{name: "trailing dollar", src: "- prolog: cost $", want: ErrInvalidString},
		{name: "open brace", src: "- prolog: ${HOME", want: ErrInvalidString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := eval(t, tt.src); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvaluator_Env_WarnsOnce(t *testing.T) {
	var logs bytes.Buffer

	e := newEvaluator(t, &logs, WithLookupEnv(env(map[string]string{"CC": "clang"})))

	src := `
- prolog: cc = ${CC}
- prolog: a = ${MISSING}
- epilog: b = ${MISSING}
`
	if err := e.LoadReader(t.Context(), strings.NewReader(src)); err != nil {
		t.Fatal(err)
	}

	m, err := e.Manifest()
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(m.Prolog, []string{"cc = clang", "a = "}) || !slices.Equal(m.Epilog, []string{"b = "}) {
		t.Errorf("prolog = %q, epilog = %q", m.Prolog, m.Epilog)
	}

	if n := strings.Count(logs.String(), "environment variable not found"); n != 1 {
		t.Errorf("warnings = %d, want 1\n%s", n, logs.String())
	}
}

func TestEvaluator_Env_QuietSuppressesWarning(t *testing.T) {
	var logs bytes.Buffer

	e := newEvaluator(t, &logs, WithQuiet(true))

	if err := e.LoadReader(t.Context(), strings.NewReader("- prolog: ${MISSING}")); err != nil {
		t.Fatal(err)
	}

	if logs.Len() != 0 {
		t.Errorf("logs = %q, want none", logs.String())
	}
}

func TestEvaluator_If(t *testing.T) {
	var rec recorder

	src := `
- list: {id: x, do: [{add: [full, yes]}, {add: [bare]}]}
- group:
    lists: x
    do:
      - if:
          ref: x0
          then: [{execute: "then $x"}]
          elif: [{ref: x, then: [{execute: "elif $x"}]}]
          else: [{execute: "else $x"}]
      - if: {ref: x0, empty: true, then: [{execute: "empty $x"}]}
`

	if _, err := eval(t, src, WithRunner(rec.run)); err != nil {
		t.Fatal(err)
	}

	want := []string{"then full", "elif bare", "empty bare"}
	if !slices.Equal(rec.commands, want) {
		t.Errorf("commands = %v, want %v", rec.commands, want)
	}
}

func TestEvaluator_Execute_Error(t *testing.T) {
	failing := func(context.Context, string, string) error { return ErrExecute }

	if _, err := eval(t, "- execute: run-tool", WithRunner(failing)); !errors.Is(err, ErrExecute) {
		t.Errorf("error = %v, want ErrExecute", err)
	}
}

func TestEvaluator_PoolAndMeta(t *testing.T) {
	src := `
- pipe: [{stage: a.c}, {op: cc, out: a.o}]
- pool: {name: heavy, artifacts: [a.o]}
- meta: build.yaml
`

	dir := t.TempDir()

	e, err := eval(t, src, WithDir(dir))
	if err != nil {
		t.Fatal(err)
	}

	m, err := e.Manifest()
	if err != nil {
		t.Fatal(err)
	}

	if b := mustGet(t, m.Graph, "a.o"); b.Pool != "heavy" {
		t.Errorf("pool = %q, want heavy", b.Pool)
	}

	if !m.Meta.Has(filepath.Join(dir, "build.yaml")) {
		t.Errorf("meta = %v", m.Meta.Sorted())
	}
}

func TestEvaluator_Meta_FreshAfterWrite(t *testing.T) {
	dir := t.TempDir()

	dep := filepath.Join(dir, "dep.txt")
	if err := os.WriteFile(dep, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}

	e, err := eval(t, "- meta: dep.txt\n", WithDir(dir))
	if err != nil {
		t.Fatal(err)
	}

	m, err := e.Manifest()
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(t.TempDir(), "build.ninja")
	if _, err := m.WriteFile(out); err != nil {
		t.Fatal(err)
	}

	if stale, err := graph.Stale(out); err != nil || stale {
		t.Fatalf("Stale() = %v, %v; want false after write", stale, err)
	}

	if err := os.WriteFile(dep, []byte("v2"), 0o600); err != nil {
		t.Fatal(err)
	}

	if stale, err := graph.Stale(out); err != nil || !stale {
		t.Errorf("Stale() = %v, %v; want true after edit", stale, err)
	}
}

func TestEvaluator_Pool_Conflict(t *testing.T) {
	src := `
- pool: {name: heavy, artifacts: [a.o]}
- pool: {name: light, artifacts: [a.o]}
`

	if _, err := eval(t, src); !errors.Is(err, graph.ErrConflictPool) {
		t.Errorf("error = %v, want ErrConflictPool", err)
	}
}

func TestEvaluator_LoadFile_WorkDirAndCycle(t *testing.T) {
	dir := t.TempDir()

	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	write := func(path, src string) {
		t.Helper()

		if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	write(filepath.Join(dir, "main.yaml"), "- file: $/sub/child.yaml\n")
	write(filepath.Join(sub, "child.yaml"), "- prolog: dir = $/\n")

	e := newEvaluator(t, &bytes.Buffer{}, WithDir(dir))
	if err := e.LoadFile(t.Context(), "main.yaml"); err != nil {
		t.Fatal(err)
	}

	m, err := e.Manifest()
	if err != nil {
		t.Fatal(err)
	}

	if want := "dir = " + sub; len(m.Prolog) != 1 || m.Prolog[0] != want {
		t.Errorf("prolog = %q, want %q", m.Prolog, want)
	}

	write(filepath.Join(dir, "loop.yaml"), "- file: $/loop.yaml\n")

	e = newEvaluator(t, &bytes.Buffer{}, WithDir(dir))
	if err := e.LoadFile(t.Context(), "loop.yaml"); !errors.Is(err, ErrIncludeCycle) {
		t.Errorf("error = %v, want ErrIncludeCycle", err)
	}
}

func TestEvaluator_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	e := newEvaluator(t, &bytes.Buffer{})

	err := e.LoadReader(ctx, strings.NewReader("- prolog: x"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestEvaluator_Debug(t *testing.T) {
	var logs bytes.Buffer

	e := newEvaluator(t, &logs, WithDebugLimit(2))

	src := `
- list: {id: x, do: [{enum: [a, b, c]}]}
- debug: x
- debug: y
`
	if err := e.LoadReader(t.Context(), strings.NewReader(src)); err != nil {
		t.Fatal(err)
	}

	out := logs.String()

	for _, want := range []string{"count=3", "omitted=1", "list does not exist"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
}
