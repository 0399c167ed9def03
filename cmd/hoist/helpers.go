package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ccworks/hoist/internal/cache"
	"github.com/ccworks/hoist/internal/output"
	"github.com/ccworks/hoist/pkg/analyzer/magicstrings"
	"github.com/ccworks/hoist/pkg/config"
)

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// loadConfig loads the file named by --config, or searches the usual
// locations when the flag is empty.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return nil, err
	}
	if result.Source != "" {
		loggerFrom(c).Debug("config loaded", zap.String("source", result.Source))
	}
	return result.Config, nil
}

// newLogger builds the diagnostic logger. Output goes to stderr so it never
// mixes with rewritten source or reports on stdout.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func loggerFrom(c *cli.Context) *zap.Logger {
	if logger, ok := c.App.Metadata["logger"].(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// newSolver applies command-line overrides on top of the config file.
func newSolver(c *cli.Context, cfg *config.Config, logger *zap.Logger) (*magicstrings.Solver, error) {
	modeName := cfg.MagicStrings.ScopeMode
	if c.IsSet("scope") {
		modeName = c.String("scope")
	}
	mode, ok := magicstrings.ParseScopeMode(modeName)
	if !ok {
		return nil, fmt.Errorf("invalid scope %q: want recursive or isolated", modeName)
	}

	opts := []magicstrings.SolverOption{
		magicstrings.WithScopeMode(mode),
		magicstrings.WithEmptyStringSentinel(cfg.MagicStrings.EmptyStringSentinel && !c.Bool("no-empty-sentinel")),
		magicstrings.WithMaxNameLength(cfg.MagicStrings.MaxNameLength),
		magicstrings.WithLogger(logger),
	}
	if cfg.MagicStrings.Lenient || c.Bool("lenient") {
		opts = append(opts, magicstrings.WithLenientParsing())
	}
	return magicstrings.NewSolver(opts...), nil
}

// openCache returns the result cache, disabled when --no-cache is given.
func openCache(c *cli.Context, cfg *config.Config) (*cache.Cache, error) {
	enabled := cfg.Cache.Enabled && !c.Bool("no-cache")
	rc, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTLDuration(), enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", cfg.Cache.Dir, err)
	}
	return rc, nil
}

// newFormatter picks the format from --format, falling back to the config.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := cfg.Output.Format
	if c.IsSet("format") {
		format = c.String("format")
	}
	return output.NewFormatter(output.ParseFormat(format), c.String("output"), cfg.Output.Color && !color.NoColor)
}

// solverFlags are shared by every command that runs the solver.
func solverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "scope",
			Usage: "Scope mode: recursive (nested types visible to the outer pass) or isolated",
		},
		&cli.BoolFlag{
			Name:  "no-empty-sentinel",
			Usage: `Leave "" literals alone instead of rewriting them to string.Empty`,
		},
		&cli.BoolFlag{
			Name:  "lenient",
			Usage: "Rewrite files with syntax errors best-effort instead of skipping them",
		},
	}
}
