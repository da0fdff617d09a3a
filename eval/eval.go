package eval

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/lang"
	"github.com/ardnew/ajnin/log"
)

// Evaluator runs scripts and accumulates the build graph they describe.
// It is not safe for concurrent use.
type Evaluator struct {
	logger     log.Logger
	lookupEnv  func(string) (string, bool)
	run        Runner
	dir        string
	quiet      bool
	debug      bool
	debugLimit int

	scopes     []*scope
	collectors []collector
	lists      listStore
	graph      *graph.Graph
	templates  map[string]*template
	pools      map[string]string
	meta       graph.Set
	prolog     []string
	epilog     []string
	envWarned  graph.Set
	includes   []string
	applying   []string

	// Pipe state.
	art   string
	build *graph.Build
	rule  *graph.Rule
	tmpl  *template
}

// New returns an evaluator with an empty graph.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		lists:     makeListStore(),
		graph:     graph.New(),
		templates: make(map[string]*template),
		pools:     make(map[string]string),
		meta:      make(graph.Set),
		envWarned: make(graph.Set),
	}

	e.applyDefaults()

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// LoadFile evaluates the script at path. The script's directory becomes
// the working directory ($/) of its statements, and the script becomes a
// meta dependency of the manifest.
func (e *Evaluator) LoadFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(e.resolve(path))
	if err != nil {
		return lang.ErrReadInput.Wrap(err).With(slog.String("path", path))
	}

	if slices.Contains(e.includes, abs) {
		return ErrIncludeCycle.With(
			slog.String("path", abs),
			slog.Any("stack", slices.Clone(e.includes)),
		)
	}

	e.trace("loading file", slog.String("path", abs))

	block, err := lang.Load(ctx, abs, lang.WithLogger(e.logger))
	if err != nil {
		return err
	}

	e.meta.Add(abs)

	e.includes = append(e.includes, abs)
	defer func() { e.includes = e.includes[:len(e.includes)-1] }()

	return e.evalIn(ctx, filepath.Dir(abs), block)
}

// LoadReader evaluates the script read from r with the evaluator's
// directory as working directory.
func (e *Evaluator) LoadReader(ctx context.Context, r io.Reader) error {
	block, err := lang.Decode(ctx, r, lang.WithLogger(e.logger))
	if err != nil {
		return err
	}

	return e.Eval(ctx, block)
}

// Eval evaluates block with the evaluator's directory as working directory.
func (e *Evaluator) Eval(ctx context.Context, block lang.Block) error {
	return e.evalIn(ctx, e.dir, block)
}

func (e *Evaluator) evalIn(ctx context.Context, dir string, block lang.Block) error {
	s := e.push()
	s.dir = filepath.Clean(dir)

	defer e.pop()

	return e.block(ctx, block)
}

// Manifest finalizes the graph and returns it with the framing lines and
// meta dependencies collected so far.
func (e *Evaluator) Manifest() (*graph.Manifest, error) {
	for _, art := range slices.Sorted(maps.Keys(e.pools)) {
		b, ok := e.graph.Get(art)
		if !ok {
			if !e.quiet {
				e.logger.Warn("pool assigned to unknown artifact",
					slog.String("artifact", art),
					slog.String("pool", e.pools[art]),
				)
			}

			continue
		}

		if b.Pool != "" && b.Pool != e.pools[art] {
			return nil, graph.ErrConflictPool.With(
				slog.String("artifact", art),
				slog.String("pool", b.Pool),
				slog.String("other", e.pools[art]),
			)
		}

		b.Pool = e.pools[art]
	}

	n := e.graph.Finalize()

	e.trace("finalized graph",
		slog.Int("builds", e.graph.Len()),
		slog.Int("deduplicated", n),
	)

	return &graph.Manifest{
		Graph:  e.graph,
		Prolog: slices.Clone(e.prolog),
		Epilog: slices.Clone(e.epilog),
		Meta:   e.meta.Clone(),
	}, nil
}

// Lists returns a copy of every list by identifier.
func (e *Evaluator) Lists() map[string][]Item {
	out := make(map[string][]Item, len(e.lists.lists))

	for id, items := range e.lists.lists {
		out[id.String()] = slices.Clone(items)
	}

	return out
}

// Templates returns the names of the declared templates in lexical order.
func (e *Evaluator) Templates() []string {
	return slices.Sorted(maps.Keys(e.templates))
}

func (e *Evaluator) trace(msg string, attrs ...slog.Attr) {
	if !e.debug {
		return
	}

	e.logger.Debug(msg, append(attrs, slog.Int("depth", len(e.scopes)))...)
}
