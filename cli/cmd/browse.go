package cmd

import (
	"context"

	"github.com/ardnew/ajnin/cli/cmd/browse"
	"github.com/ardnew/ajnin/log"
)

// Browse evaluates a script and explores its builds interactively.
type Browse struct {
	Script string `arg:"" default:"-" help:"Script file or '-' for stdin" name:"script"`
}

// Run executes the browse command.
func (b *Browse) Run(ctx context.Context, opts *Options) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	logger := log.Default()

	if b.Script == stdio {
		// The terminal program reads keys from stdin.
		return ErrNoScript
	}

	m, err := opts.generate(ctx, logger, b.Script)
	if err != nil {
		return err
	}

	var cache string
	if ktx := kongContextFrom(ctx); ktx != nil {
		cache = ktx.Model.Vars()[CacheIdentifier]
	}

	return browse.Run(ctx, m.Graph, cache, logger)
}
