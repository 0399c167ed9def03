package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ccworks/hoist/internal/output"
	"github.com/ccworks/hoist/internal/progress"
	"github.com/ccworks/hoist/internal/scanner"
	"github.com/ccworks/hoist/internal/vcs"
	"github.com/ccworks/hoist/pkg/analyzer"
	"github.com/ccworks/hoist/pkg/analyzer/magicstrings"
	"github.com/ccworks/hoist/pkg/config"
	"github.com/ccworks/hoist/pkg/parser"
	"github.com/ccworks/hoist/pkg/source"
)

// errWouldChange is returned by --check when at least one file needs a rewrite.
var errWouldChange = errors.New("files need hoisting")

func magicStringsCmd() *cli.Command {
	return &cli.Command{
		Name:      "magic-strings",
		Aliases:   []string{"ms", "solve"},
		Usage:     "Hoist repeated string literals into constants",
		ArgsUsage: "[path...]",
		Description: `Scans the given paths for .cs files and rewrites each one in place.
Files are only written when something changed.

Examples:
  hoist magic-strings                     # Rewrite every .cs file below .
  hoist ms --dry-run src/                 # Report without writing
  hoist ms --check                        # Exit non-zero if any file would change
  hoist ms --ref HEAD~1 src/              # Analyze files as of a revision
  hoist ms --stdin < Foo.cs > Foo.new.cs  # Filter a single file`,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Report what would change without writing files",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Like --dry-run, but exit non-zero when any file would change",
			},
			&cli.StringFlag{
				Name:  "ref",
				Usage: "Read files from a git revision instead of the working tree (implies --dry-run)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Rewrite files that have uncommitted changes",
			},
			&cli.BoolFlag{
				Name:  "stdin",
				Usage: "Read one file from stdin and write the result to stdout",
			},
			&cli.BoolFlag{
				Name:  "show-constants",
				Usage: "List every constant that was created",
			},
			&cli.BoolFlag{
				Name:  "show-unchanged",
				Usage: "Include files that need no rewrite in the report",
			},
		}, solverFlags()...),
		Action: runMagicStringsCmd,
	}
}

// runMode resolves the mode from flags and config. --check wins over
// --dry-run, and reading from a revision never writes.
func runMode(c *cli.Context, cfg *config.Config) output.RunMode {
	switch {
	case c.Bool("check"):
		return output.ModeCheck
	case c.Bool("dry-run"), c.String("ref") != "", cfg.Rewrite.DryRun:
		return output.ModeDryRun
	default:
		return output.ModeWrite
	}
}

func runMagicStringsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := loggerFrom(c)

	solver, err := newSolver(c, cfg, logger)
	if err != nil {
		return err
	}

	if c.Bool("stdin") {
		return runStdin(c, solver)
	}

	paths := getPaths(c)
	mode := runMode(c, cfg)

	var (
		files []string
		root  string
		src   source.ContentSource = source.NewFilesystem()
	)
	if ref := c.String("ref"); ref != "" {
		files, src, root, err = filesAtRef(paths, ref, cfg)
		if err != nil {
			return err
		}
	} else {
		files, err = scanner.NewScanner(cfg).ScanPaths(paths)
		var scanErr *scanner.ScanError
		if errors.As(err, &scanErr) && len(files) > 0 {
			for _, pe := range scanErr.Errors {
				color.Yellow("Skipping %s: %v", pe.Path, pe.Err)
			}
		} else if err != nil {
			return err
		}
		if abs, err := filepath.Abs(paths[0]); err == nil {
			root = abs
			if info, err := os.Stat(abs); err == nil && !info.IsDir() {
				root = filepath.Dir(abs)
			}
		}
	}

	if len(files) == 0 {
		color.Yellow("No C# files found")
		return nil
	}

	rc, err := openCache(c, cfg)
	if err != nil {
		return err
	}

	bar := progress.New("Hoisting magic strings...", len(files))
	ctx := analyzer.WithTracker(c.Context, bar.Tracker())

	an := magicstrings.New(
		magicstrings.WithSolver(solver),
		magicstrings.WithSource(src),
		magicstrings.WithCache(rc),
		magicstrings.WithMaxFileSize(cfg.MagicStrings.MaxFileSize),
		magicstrings.WithMaxWorkers(cfg.MagicStrings.MaxWorkers),
		magicstrings.WithAnalyzerLogger(logger),
	)
	defer an.Close()

	analysis, err := an.Analyze(ctx, files)
	if err != nil {
		bar.FinishError(err)
		return fmt.Errorf("analysis failed: %w", err)
	}
	bar.FinishSuccess()

	data := &output.MagicStringsData{Mode: mode, Analysis: analysis}
	if mode == output.ModeWrite {
		data.Written, data.Skipped, err = writeChanged(analysis, cfg, c.Bool("force"), logger)
		if err != nil {
			return err
		}
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	report := output.NewMagicStringsReport(data, output.MagicStringsOptions{
		Mode:          mode,
		Root:          root,
		ShowConstants: c.Bool("show-constants"),
		ShowUnchanged: c.Bool("show-unchanged"),
	})
	if err := formatter.Output(report); err != nil {
		return err
	}

	if analysis.Summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d files could not be processed", analysis.Summary.FailedFiles, analysis.Summary.TotalFiles)
	}
	if mode == output.ModeCheck && analysis.Summary.ChangedFiles > 0 {
		return fmt.Errorf("%d files: %w", analysis.Summary.ChangedFiles, errWouldChange)
	}
	return nil
}

// runStdin solves a single document read from stdin. Malformed input is
// echoed unchanged so a pipeline never loses the file.
func runStdin(c *cli.Context, solver *magicstrings.Solver) error {
	in, err := io.ReadAll(c.App.Reader)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	res, err := solver.Solve(c.Context, string(in))
	if res != nil {
		if _, werr := io.WriteString(c.App.Writer, res.Text); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "constants created: %d, magic strings replaced: %d, empty strings replaced: %d\n",
		res.Stats.ConstantsCreated, res.Stats.MagicStringsReplaced, res.Stats.EmptyStringsReplaced)
	if c.Bool("check") && res.Stats.Changed() {
		return errWouldChange
	}
	return nil
}

// filesAtRef lists the .cs files under paths as they exist at rev and
// returns a source that reads them from that tree.
func filesAtRef(paths []string, rev string, cfg *config.Config) ([]string, source.ContentSource, string, error) {
	start, err := filepath.Abs(paths[0])
	if err != nil {
		return nil, nil, "", fmt.Errorf("invalid path %s: %w", paths[0], err)
	}
	repo, err := vcs.DefaultOpener().PlainOpenWithDetect(start)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to open repository: %w", err)
	}
	tree, err := repo.TreeAt(rev)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	entries, err := tree.Entries()
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to list %s: %w", rev, err)
	}

	root := repo.RepoPath()
	var prefixes []string
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, "", fmt.Errorf("invalid path %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, nil, "", fmt.Errorf("%s is outside repository %s", p, root)
		}
		prefixes = append(prefixes, filepath.ToSlash(rel))
	}

	var files []string
	for _, e := range entries {
		if parser.DetectLanguage(e.Path) == parser.LangUnknown || cfg.ShouldExclude(e.Path) {
			continue
		}
		if !underAny(e.Path, prefixes) {
			continue
		}
		files = append(files, filepath.Join(root, filepath.FromSlash(e.Path)))
	}
	return files, source.NewTree(tree, root), root, nil
}

func underAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "." || path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// writeChanged writes every changed file back. Files with uncommitted
// changes are skipped unless force is set or the config allows it.
func writeChanged(analysis *magicstrings.Analysis, cfg *config.Config, force bool, logger *zap.Logger) ([]string, []magicstrings.FileResult, error) {
	changed := analysis.ChangedFiles()
	if len(changed) == 0 {
		return nil, nil, nil
	}

	dirty := func(string) bool { return false }
	if cfg.Rewrite.RequireClean && !force {
		if repo, err := vcs.DefaultOpener().PlainOpenWithDetect(filepath.Dir(changed[0].Path)); err == nil {
			paths, err := repo.DirtyFiles()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read repository status: %w", err)
			}
			root := repo.RepoPath()
			dirty = func(path string) bool {
				rel, err := filepath.Rel(root, path)
				return err == nil && paths[filepath.ToSlash(rel)]
			}
		} else {
			logger.Debug("not a git repository, skipping clean check", zap.Error(err))
		}
	}

	fs := source.NewFilesystem()
	var written []string
	var skipped []magicstrings.FileResult
	for _, f := range changed {
		if dirty(f.Path) {
			skipped = append(skipped, f)
			continue
		}
		if err := fs.Write(f.Path, []byte(f.Text)); err != nil {
			return written, skipped, fmt.Errorf("failed to write %s: %w", f.Path, err)
		}
		logger.Debug("rewrote file", zap.String("path", f.Path), zap.Int("constants", f.Stats.ConstantsCreated))
		written = append(written, f.Path)
	}
	return written, skipped, nil
}
