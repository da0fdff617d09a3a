package eval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/lang"
)

// pipeStmt evaluates a pipe and feeds its result to the collectors of the
// enclosing scopes.
func (e *Evaluator) pipeStmt(ctx context.Context, p lang.Pipe) error {
	e.build = nil
	e.art = ""

	defer func() {
		e.build = nil
		e.art = ""
	}()

	art, err := e.pipe(ctx, p)
	if err != nil {
		return err
	}

	return e.link(art)
}

// link adds art as a dependency of every collector from the innermost
// scope outward. A collector without also passes its own artifact on to
// the next one.
func (e *Evaluator) link(art string) error {
	for s := range e.ancestry {
		if art == "" {
			return nil
		}

		if s.collector == noCollector {
			continue
		}

		c := e.collectors[s.collector]

		b := c.build.Clone()
		b.Deps = append(b.Deps, art)

		if err := e.graph.Merge(b); err != nil {
			return err
		}

		if !c.also {
			art = b.Artifact
		}
	}

	return nil
}

// pipe evaluates steps on a fresh pending build and returns the current
// artifact at the end.
func (e *Evaluator) pipe(ctx context.Context, p lang.Pipe) (string, error) {
	prev := e.build
	e.build = e.seedBuild()

	defer func() { e.build = prev }()

	if err := e.steps(ctx, p.Steps); err != nil {
		return "", err
	}

	return e.art, nil
}

func (e *Evaluator) steps(ctx context.Context, steps []lang.Step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := e.step(ctx, s); err != nil {
			return err
		}
	}

	return nil
}

func (e *Evaluator) step(ctx context.Context, s lang.Step) error {
	switch s := s.(type) {
	case lang.Stage:
		art, err := e.expandLiteral(s.Path)
		if err != nil {
			return err
		}

		e.art = art

		return nil

	case lang.From:
		return e.from(ctx, s)

	case lang.Operation:
		return e.operation(s)

	case lang.Also:
		saved := e.art

		if err := e.steps(ctx, s.Steps); err != nil {
			return err
		}

		e.art = saved

		return nil

	case lang.Apply:
		return e.apply(ctx, s)

	default:
		return ErrUnknownStatement.With(slog.String("type", fmt.Sprintf("%T", s)))
	}
}

// from adds artifacts to the dependencies of the pending build. The current
// artifact is cleared before and after.
func (e *Evaluator) from(ctx context.Context, s lang.From) error {
	e.art = ""

	for _, a := range s.Artifacts {
		var (
			art string
			err error
		)

		if a.Pipe != nil {
			art, err = e.pipe(ctx, *a.Pipe)
		} else {
			art, err = e.expandLiteral(a.Path)
		}

		if err != nil {
			return err
		}

		if art == "" {
			continue
		}

		switch a.Kind {
		case lang.DepImplicit:
			e.build.Implicit = e.build.Implicit.Union(graph.NewSet(art))
		case lang.DepOrderOnly:
			e.build.OrderOnly = e.build.OrderOnly.Union(graph.NewSet(art))
		default:
			e.build.Deps = append(e.build.Deps, art)
		}
	}

	e.art = ""

	return nil
}

// operation completes the pending build. Without explicit dependencies the
// current artifact becomes its input. The output becomes the current
// artifact, and a fresh pending build is started.
func (e *Evaluator) operation(s lang.Operation) error {
	b := e.build

	if len(b.Deps) == 0 && e.art != "" {
		b.Deps = append(b.Deps, e.art)
	}

	if err := e.complete(b, s.Rule, s.Assigns, s.Out); err != nil {
		return err
	}

	if err := e.graph.Merge(b); err != nil {
		return err
	}

	e.art = b.Artifact
	e.build = e.seedBuild()

	return nil
}
