package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/ardnew/ajnin/eval"
	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/log"
)

// ContextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdio is the special path selecting stdin or stdout.
const stdio = "-"

// Options are the evaluation flags shared by every command that runs a
// script.
type Options struct {
	Dir        string   `help:"Resolve relative paths against this directory"           placeholder:"DIR" short:"C" type:"existingdir"`
	Quiet      bool     `help:"Suppress warnings and debug statements"                                    short:"q"`
	Debug      bool     `help:"Trace scopes, file loads, and commands"                                    short:"d"`
	DebugLimit int      `help:"Maximum number of list items logged by debug statements" default:"${debugLimit}"`
	ExecPath   []string `help:"Directories prepended to PATH of executed commands"      placeholder:"DIR"`
}

// KongVars returns the kong variables referenced by the tags of [Options].
func (*Options) KongVars() kong.Vars {
	return kong.Vars{"debugLimit": strconv.Itoa(eval.DefaultDebugLimit)}
}

// evaluator returns a new evaluator configured from the flags.
func (o *Options) evaluator(logger log.Logger) *eval.Evaluator {
	if o.Debug && logger.Level() > log.LevelDebug {
		logger = logger.Wrap(log.WithLevel(log.LevelDebug))
	}

	opts := []eval.Option{
		eval.WithLogger(logger),
		eval.WithRunner(eval.Shell(o.ExecPath...)),
		eval.WithQuiet(o.Quiet),
		eval.WithDebug(o.Debug),
		eval.WithDebugLimit(o.DebugLimit),
	}

	if o.Dir != "" {
		opts = append(opts, eval.WithDir(o.Dir))
	}

	return eval.New(opts...)
}

// generate evaluates the script at path ("-" reads stdin) and returns its
// manifest.
func (o *Options) generate(
	ctx context.Context,
	logger log.Logger,
	path string,
) (*graph.Manifest, error) {
	e := o.evaluator(logger)

	var err error

	if path == stdio || path == "" {
		err = e.LoadReader(ctx, os.Stdin)
	} else {
		err = e.LoadFile(ctx, path)
	}

	if err != nil {
		return nil, err
	}

	m, err := e.Manifest()
	if err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "script evaluated",
		slog.String("script", path),
		slog.Int("builds", m.Graph.Len()),
		slog.Int("meta", len(m.Meta)),
	)

	return m, nil
}

// Filters are the emission filter flags shared by gen and graph.
type Filters struct {
	Solo  []string `help:"Emit only artifacts fully matching one of these patterns"   placeholder:"REGEX"`
	Slice []string `help:"Skip existing artifacts fully matching one of these patterns" placeholder:"REGEX"`
	Where string   `help:"Emit only builds for which the expression holds"              placeholder:"EXPR"`
}

// compile returns the filters selected by the flags.
func (f *Filters) compile() ([]graph.Filter, error) {
	solo, err := graph.Solo(f.Solo...)
	if err != nil {
		return nil, err
	}

	slice, err := graph.Slice(nil, f.Slice...)
	if err != nil {
		return nil, err
	}

	where, err := graph.Where(f.Where)
	if err != nil {
		return nil, err
	}

	return []graph.Filter{solo, slice, where}, nil
}

// create opens path for writing, or returns stdout for "-".
func create(path string) (io.WriteCloser, error) {
	if path == stdio || path == "" {
		return nopCloser{os.Stdout}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, ErrWriteOutput.Wrap(err).With(slog.String("path", path))
	}

	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
