package cli

import (
	"context"
	"log/slog"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/ajnin/cli/cmd"
	"github.com/ardnew/ajnin/log"
	"github.com/ardnew/ajnin/pkg"
)

// CLI is the top-level command-line interface for ajnin.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	cmd.Options `embed:""`

	Gen    cmd.Gen    `cmd:"" default:"withargs" help:"Generate the ninja manifest of a script"`
	Graph  cmd.Graph  `cmd:""                    help:"Dump the builds of a script as JSON or YAML"`
	Browse cmd.Browse `cmd:""                    help:"Explore the builds of a script interactively"`
	Watch  cmd.Watch  `cmd:""                    help:"Regenerate the manifest whenever it is stale"`
	Init   cmd.Init   `cmd:""                    help:"Initialize configuration file"`

	Version kong.VersionFlag `help:"Print version and exit" short:"V"`
}

// Run executes the ajnin CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	err := mkdirAllRequired()
	if err != nil {
		return err
	}

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath + ".yaml",
		cmd.CacheIdentifier:  cacheDir(),
		"version":            pkg.Name + " " + pkg.Version,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars()).
		CloneWith(cli.Options.KongVars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position. TextUnmarshaler on logFormat/logLevel handles those flags
	// during normal parsing, but this early scan also catches boolean flags
	// like --log-pretty.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, configFilePath+".json"),
		kong.Configuration(resolve(ctx), configFilePath+".yaml"),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	cli.Log.start(ctx)

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	command := pkg.Name
	if f := strings.Fields(ktx.Command()); len(f) > 0 {
		command = f[0]
	}

	defer cli.Pprof.start(ctx, command)()

	log.DebugContext(ctx, "run command", slog.String("command", ktx.Command()))

	// Execute the selected command
	return ktx.Run(ctx, &cli.Options)
}
