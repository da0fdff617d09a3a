package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/log"
)

const testScript = `
- list:
    id: s
    do:
      - search: src/$$.c
- group:
    lists: s
    collect: {op: link, out: app}
    do:
      - pipe:
          - stage: src/$s.c
          - op: cc
            out: obj/$s.o
`

// fixture writes a source tree and the test script, returning the tree
// root and the script path.
func fixture(t *testing.T) (dir, script string) {
	t.Helper()

	dir = t.TempDir()

	files := map[string]string{
		"src/a.c":    "int a;\n",
		"src/b.c":    "int b;\n",
		"build.yaml": testScript,
	}

	for name, content := range files {
		path := filepath.Join(dir, name)

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	return dir, filepath.Join(dir, "build.yaml")
}

func testOptions(dir string) *Options {
	return &Options{Dir: dir, Quiet: true, DebugLimit: 15}
}

func TestGen_Run_WritesManifest(t *testing.T) {
	dir, script := fixture(t)
	out := filepath.Join(dir, "build.ninja")

	g := &Gen{Output: out, Script: script}
	if err := g.Run(t.Context(), testOptions(dir)); err != nil {
		t.Fatalf("Gen.Run() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	got := string(data)

	for _, want := range []string{
		"# ajnin deps: " + script + "\n",
		"build app: link obj/a.o obj/b.o\n",
		"build obj/a.o: cc src/a.c\n",
		"build obj/b.o: cc src/b.c\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("manifest missing %q:\n%s", want, got)
		}
	}

	stale, err := graph.Stale(out)
	if err != nil || stale {
		t.Errorf("Stale() = %v, %v after generation", stale, err)
	}
}

func TestGen_Run_Filters(t *testing.T) {
	dir, script := fixture(t)
	out := filepath.Join(dir, "build.ninja")

	g := &Gen{
		Filters: Filters{Solo: []string{`obj/.*`}, Where: `artifact != "obj/b.o"`},
		Output:  out,
		Bare:    true,
		Script:  script,
	}

	if err := g.Run(t.Context(), testOptions(dir)); err != nil {
		t.Fatalf("Gen.Run() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := string(data), "build obj/a.o: cc src/a.c\n\n"; got != want {
		t.Errorf("manifest = %q, want %q", got, want)
	}
}

func TestGen_Run_IfStale(t *testing.T) {
	dir, script := fixture(t)
	out := filepath.Join(dir, "build.ninja")
	opts := testOptions(dir)

	if err := (&Gen{Output: out, Script: script}).Run(t.Context(), opts); err != nil {
		t.Fatal(err)
	}

	// A fresh manifest is left alone, edits included.
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	edited := append(data, "# edited\n"...)

	if err := os.WriteFile(out, edited, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := (&Gen{Output: out, Script: script, IfStale: true}).Run(t.Context(), opts); err != nil {
		t.Fatal(err)
	}

	if data, _ := os.ReadFile(out); string(data) != string(edited) {
		t.Error("fresh manifest was regenerated")
	}

	// Changing the script makes it stale.
	if err := os.WriteFile(script, []byte(testScript+"- prolog: changed\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := (&Gen{Output: out, Script: script, IfStale: true}).Run(t.Context(), opts); err != nil {
		t.Fatal(err)
	}

	if data, _ := os.ReadFile(out); !strings.Contains(string(data), "changed\n") {
		t.Error("stale manifest was not regenerated")
	}
}

func TestGen_Run_ScriptError(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(script, []byte("- clear: [x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := (&Gen{Output: filepath.Join(dir, "out"), Script: script}).Run(t.Context(), testOptions(dir))
	if err == nil {
		t.Fatal("Gen.Run() succeeded on a malformed script")
	}

	if _, statErr := os.Stat(filepath.Join(dir, "out")); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("output written despite evaluation error")
	}
}

func TestGraph_Run_RootClosure(t *testing.T) {
	dir, script := fixture(t)
	out := filepath.Join(dir, "graph.json")

	g := &Graph{
		Format: "json",
		Root:   []string{"obj/a.o"},
		Output: out,
		Script: script,
	}

	if err := g.Run(t.Context(), testOptions(dir)); err != nil {
		t.Fatalf("Graph.Run() error = %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}

	var builds []map[string]any
	if err := json.Unmarshal(data, &builds); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, data)
	}

	if len(builds) != 1 || builds[0]["artifact"] != "obj/a.o" || builds[0]["rule"] != "cc" {
		t.Errorf("builds = %+v", builds)
	}
}

func TestGraph_Run_Errors(t *testing.T) {
	dir, script := fixture(t)

	tests := []struct {
		name  string
		graph Graph
		want  error
	}{
		{
			name:  "unknown_root",
			graph: Graph{Format: "yaml", Root: []string{"nope"}},
			want:  ErrUnknownRoot,
		},
		{
			name:  "bad_expression",
			graph: Graph{Format: "yaml", Where: "artifact +"},
			want:  graph.ErrFilter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.graph
			g.Script = script
			g.Output = filepath.Join(t.TempDir(), "out")

			if err := g.Run(t.Context(), testOptions(dir)); !errors.Is(err, tt.want) {
				t.Errorf("Graph.Run() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWatch_Regenerate(t *testing.T) {
	dir, script := fixture(t)
	out := filepath.Join(dir, "build.ninja")
	opts := testOptions(dir)
	logger := log.Default()

	w := &Watch{Output: out, Script: script}

	regenerated, err := w.regenerate(t.Context(), opts, logger)
	if err != nil || !regenerated {
		t.Fatalf("first regenerate = %v, %v; want true", regenerated, err)
	}

	regenerated, err = w.regenerate(t.Context(), opts, logger)
	if err != nil || regenerated {
		t.Errorf("second regenerate = %v, %v; want false", regenerated, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "build.yaml"), []byte(testScript+"- epilog: x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	regenerated, err = w.regenerate(t.Context(), opts, logger)
	if err != nil || !regenerated {
		t.Errorf("regenerate after edit = %v, %v; want true", regenerated, err)
	}
}

func TestWatch_Run_RequiresScriptFile(t *testing.T) {
	w := &Watch{Output: "out", Script: stdio}

	if err := w.Run(t.Context(), &Options{}); !errors.Is(err, ErrNoScript) {
		t.Errorf("Watch.Run() error = %v, want ErrNoScript", err)
	}
}

func TestGen_Run_BareIfStale(t *testing.T) {
	dir, script := fixture(t)
	out := filepath.Join(dir, "build.ninja")

	g := &Gen{Output: out, Script: script, Bare: true, IfStale: true}
	if err := g.Run(t.Context(), testOptions(dir)); !errors.Is(err, ErrBareStale) {
		t.Errorf("Gen.Run() error = %v, want ErrBareStale", err)
	}

	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Error("output written despite rejected flags")
	}
}

func TestWatch_Regenerate_RelativeMeta(t *testing.T) {
	dir, script := fixture(t)
	out := filepath.Join(dir, "build.ninja")
	opts := testOptions(dir)
	logger := log.Default()

	if err := os.WriteFile(script, []byte(testScript+"- meta: src/a.c\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := &Watch{Output: out, Script: script}

	for i, want := range []bool{true, false, false} {
		regenerated, err := w.regenerate(t.Context(), opts, logger)
		if err != nil || regenerated != want {
			t.Fatalf("regenerate %d = %v, %v; want %v", i, regenerated, err, want)
		}
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	h, err := graph.ReadHeader(f)
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Contains(h.Deps, filepath.Join(dir, "src", "a.c")) {
		t.Errorf("header deps = %v, want the resolved meta path", h.Deps)
	}

	if err := os.WriteFile(filepath.Join(dir, "src", "a.c"), []byte("int a2;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if regenerated, err := w.regenerate(t.Context(), opts, logger); err != nil || !regenerated {
		t.Errorf("regenerate after meta edit = %v, %v; want true", regenerated, err)
	}
}
