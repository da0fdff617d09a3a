package eval

import (
	"context"
	"log/slog"
	"os"
	"os/exec"

	"github.com/ardnew/mung"
)

// Runner runs a shell command line in dir.
type Runner func(ctx context.Context, dir, command string) error

// Shell returns a [Runner] executing commands with "sh -c". Standard
// output and standard error of the command go to the standard error of
// the process, so a manifest written to standard output stays intact.
//
// The directories in path are prepended to the PATH of the command.
func Shell(path ...string) Runner {
	return func(ctx context.Context, dir, command string) error {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Dir = dir
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr

		if len(path) > 0 {
			cmd.Env = append(os.Environ(), "PATH="+prefixPath(os.Getenv("PATH"), path...))
		}

		if err := cmd.Run(); err != nil {
			return ErrExecute.Wrap(err).With(slog.String("command", command))
		}

		return nil
	}
}

func prefixPath(value string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(value),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}
