package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/tevino/abool/v2"

	"github.com/ardnew/ajnin/graph"
	"github.com/ardnew/ajnin/log"
)

// Watch regenerates the manifest whenever it becomes stale.
//
// Each tick checks the manifest header: the manifest is regenerated when a
// loaded script, list file, or meta dependency changed content. A tick that
// fires while the previous regeneration still runs is skipped. The manifest
// always carries its header, since staleness is read from it.
type Watch struct {
	Filters `embed:""`

	Output   string        `help:"Manifest file"                              placeholder:"FILE" required:"" short:"o"`
	Split    int           `help:"Distribute builds over N subninja part files" placeholder:"N"`
	Interval time.Duration `help:"Time between staleness checks"              default:"2s"      short:"n"`

	Script string `arg:"" help:"Script file" name:"script" type:"existingfile"`

	running *abool.AtomicBool
}

// Run executes the watch command. It returns when ctx is canceled.
func (w *Watch) Run(ctx context.Context, opts *Options) (err error) {
	if w.Script == stdio {
		return ErrNoScript
	}

	logger := log.Default()
	w.running = abool.New()

	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = s.NewJob(
		gocron.DurationJob(w.Interval),
		gocron.NewTask(w.tick, ctx, opts, logger),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "watching",
		slog.String("script", w.Script),
		slog.String("output", w.Output),
		slog.Duration("interval", w.Interval),
	)

	s.Start()

	<-ctx.Done()

	return s.Shutdown()
}

// tick regenerates the manifest if it is stale. Errors are logged and the
// watch continues, so a broken script can be fixed in place.
func (w *Watch) tick(ctx context.Context, opts *Options, logger log.Logger) {
	if !w.running.SetToIf(false, true) {
		logger.DebugContext(ctx, "regeneration in progress")

		return
	}
	defer w.running.UnSet()

	regenerated, err := w.regenerate(ctx, opts, logger)
	if err != nil {
		logger.ErrorContext(ctx, "regenerate", slog.Any("error", err))

		return
	}

	if regenerated {
		logger.InfoContext(ctx, "manifest regenerated", slog.String("output", w.Output))
	}
}

func (w *Watch) regenerate(
	ctx context.Context,
	opts *Options,
	logger log.Logger,
) (bool, error) {
	stale, err := graph.Stale(w.Output)
	if err != nil || !stale {
		return false, err
	}

	m, err := opts.generate(ctx, logger, w.Script)
	if err != nil {
		return false, err
	}

	gen := Gen{
		Filters: w.Filters,
		Output:  w.Output,
		Split:   w.Split,
	}

	return true, gen.write(ctx, logger, m)
}
