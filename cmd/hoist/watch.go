package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ccworks/hoist/pkg/analyzer/magicstrings"
	"github.com/ccworks/hoist/pkg/source"
	"github.com/ccworks/hoist/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch for C# file changes and report magic strings",
		ArgsUsage: "[path]",
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long a file must stay unchanged before it is analyzed",
			},
			&cli.BoolFlag{
				Name:  "write",
				Usage: "Rewrite files as they settle instead of only reporting",
			},
		}, solverFlags()...),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	paths := getPaths(c)
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := loggerFrom(c)

	solver, err := newSolver(c, cfg, logger)
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(paths[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	watcher, err := watch.NewWatcher(absPath, cfg,
		watch.WithDebounce(c.Duration("debounce")),
		watch.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Stop()

	h := &watchHandler{
		solver: solver,
		fs:     source.NewFilesystem(),
		root:   absPath,
		write:  c.Bool("write"),
		logger: logger,
		ctx:    c.Context,
	}
	watcher.SetCallback(h.handle)

	color.Cyan("Watching %s (Ctrl+C to stop)", absPath)
	err = watcher.Start(c.Context)
	if errors.Is(err, context.Canceled) {
		fmt.Println("\nStopping watch...")
		return nil
	}
	return err
}

// watchHandler solves one settled file per call. Writes by the handler
// trigger another event, which then solves to no change.
type watchHandler struct {
	solver *magicstrings.Solver
	fs     *source.FilesystemSource
	root   string
	write  bool
	logger *zap.Logger
	ctx    context.Context
	mu     sync.Mutex
}

func (h *watchHandler) handle(path string) {
	rel, err := filepath.Rel(h.root, path)
	if err != nil {
		rel = path
	}

	content, err := h.fs.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.report(func() { color.Red("%s: %v", rel, err) })
		}
		return
	}

	start := time.Now()
	res, err := h.solver.Solve(h.ctx, string(content))
	if err != nil {
		h.report(func() { color.Red("%s: %v", rel, err) })
		return
	}
	if !res.Stats.Changed() {
		h.report(func() { color.Green("%s: nothing to hoist", rel) })
		return
	}

	verb := "would hoist"
	if h.write {
		if err := h.fs.Write(path, []byte(res.Text)); err != nil {
			h.report(func() { color.Red("%s: %v", rel, err) })
			return
		}
		verb = "hoisted"
	}
	h.logger.Debug("watch solve", zap.String("path", path), zap.Duration("elapsed", time.Since(start)))

	h.report(func() {
		color.Yellow("%s: %s %d constants, %d magic strings, %d empty strings",
			rel, verb, res.Stats.ConstantsCreated, res.Stats.MagicStringsReplaced, res.Stats.EmptyStringsReplaced)
		for _, k := range res.Constants {
			fmt.Printf("  %s.%s = %s\n", k.Scope, k.Name, truncate(k.Value, 60))
		}
	})
}

// report serializes output from concurrent callbacks.
func (h *watchHandler) report(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn()
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
