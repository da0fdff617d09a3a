package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/log"
)

// Gen evaluates a script and writes the ninja manifest.
type Gen struct {
	Filters `embed:""`

	Output  string `default:"-" help:"Manifest file or '-' for stdout"                 placeholder:"FILE" short:"o"`
	Bare    bool   `            help:"Omit the header, prolog, and epilog"`
	Split   int    `            help:"Distribute builds over N subninja part files"    placeholder:"N"`
	IfStale bool   `            help:"Do nothing when the output is up to date (not with --bare)"`

	Script string `arg:"" default:"-" help:"Script file or '-' for stdin" name:"script"`
}

// Run executes the gen command.
func (g *Gen) Run(ctx context.Context, opts *Options) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if g.IfStale && g.Bare {
		return ErrBareStale
	}

	logger := log.Default()

	if g.IfStale && g.Output != stdio {
		stale, err := graph.Stale(g.Output)
		if err != nil {
			return err
		}

		if !stale {
			logger.InfoContext(ctx, "manifest up to date",
				slog.String("output", g.Output))

			return nil
		}
	}

	m, err := opts.generate(ctx, logger, g.Script)
	if err != nil {
		return err
	}

	return g.write(ctx, logger, m)
}

func (g *Gen) write(ctx context.Context, logger log.Logger, m *graph.Manifest) error {
	filters, err := g.compile()
	if err != nil {
		return err
	}

	wo := []graph.WriteOption{
		graph.WithBare(g.Bare),
		graph.WithFilters(filters...),
	}

	if g.Output == stdio || g.Output == "" {
		w, _ := create(stdio)
		defer w.Close()

		return m.Render(w, wo...)
	}

	n, err := m.WriteFile(g.Output, append(wo, graph.WithSplit(g.Split))...)
	if err != nil {
		return ErrWriteOutput.Wrap(err).With(slog.String("path", g.Output))
	}

	logger.InfoContext(ctx, "manifest written",
		slog.String("output", g.Output),
		slog.Int("files", n),
		slog.Int("builds", m.Graph.Len()),
	)

	return nil
}
