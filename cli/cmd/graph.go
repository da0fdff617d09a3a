package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/log"
)

// Graph evaluates a script and dumps its builds as structured data.
type Graph struct {
	Format string   `default:"yaml" enum:"json,yaml" help:"Output format (${enum})"`
	Indent int      `default:"2"                     help:"Indent width, 0 for compact output" short:"i"`
	Root   []string `                                help:"Dump only the closure of these artifacts" placeholder:"ARTIFACT"`
	Where  string   `                                help:"Dump only builds for which the expression holds" placeholder:"EXPR"`
	Output string   `default:"-"                     help:"Output file or '-' for stdout" placeholder:"FILE" short:"o"`

	Script string `arg:"" default:"-" help:"Script file or '-' for stdin" name:"script"`
}

// Run executes the graph command.
func (g *Graph) Run(ctx context.Context, opts *Options) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger := log.Default()

	m, err := opts.generate(ctx, logger, g.Script)
	if err != nil {
		return err
	}

	artifacts, err := g.pick(m.Graph)
	if err != nil {
		return err
	}

	w, err := create(g.Output)
	if err != nil {
		return err
	}
	defer w.Close()

	logger.DebugContext(ctx, "dump graph",
		slog.String("format", g.Format),
		slog.Int("artifacts", len(artifacts)),
	)

	if g.Format == "json" {
		return g.wrap(m.Graph.FormatJSON(ctx, w, g.Indent, artifacts))
	}

	return g.wrap(m.Graph.FormatYAML(ctx, w, g.Indent, artifacts))
}

// pick returns the artifacts to dump. Sources reached from a root have no
// build and are left out.
func (g *Graph) pick(gr *graph.Graph) ([]string, error) {
	artifacts := gr.Artifacts()

	if len(g.Root) > 0 {
		for _, r := range g.Root {
			if _, ok := gr.Get(r); !ok {
				return nil, ErrUnknownRoot.With(slog.String("artifact", r))
			}
		}

		artifacts = gr.Closure(g.Root...)
	}

	where, err := graph.Where(g.Where)
	if err != nil {
		return nil, err
	}

	kept := artifacts[:0:0]

	for _, a := range artifacts {
		b, ok := gr.Get(a)
		if !ok {
			continue
		}

		ok, err := graph.Emit(b, where)
		if err != nil {
			return nil, err
		}

		if ok {
			kept = append(kept, a)
		}
	}

	return kept, nil
}

func (g *Graph) wrap(err error) error {
	if err == nil {
		return nil
	}

	return ErrWriteOutput.Wrap(err).With(slog.String("format", g.Format))
}
