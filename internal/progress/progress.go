// Package progress renders analysis progress on stderr.
package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/ccworks/hoist/pkg/analyzer"
)

// Bar wraps a progress bar for file processing.
// A nil *Bar is valid and renders nothing.
type Bar struct {
	bar   *progressbar.ProgressBar
	out   io.Writer
	label string
}

// Option configures a Bar.
type Option func(*config)

type config struct {
	out     io.Writer
	spinner bool
}

// WithWriter sends output to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// AsSpinner renders a spinner for work with an unknown total.
func AsSpinner() Option {
	return func(c *config) {
		c.spinner = true
	}
}

// New creates a progress bar with the given label and total count.
func New(label string, total int, opts ...Option) *Bar {
	cfg := config{out: os.Stderr}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.spinner {
		return &Bar{
			bar: progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(cfg.out),
				progressbar.OptionSetWidth(20),
				progressbar.OptionSetDescription(label),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionClearOnFinish(),
			),
			out:   cfg.out,
			label: label,
		}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(cfg.out),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Bar{bar: bar, out: cfg.out, label: label}
}

// Tracker returns an analyzer tracker that advances the bar as files
// complete and shows the file being processed.
func (b *Bar) Tracker() *analyzer.Tracker {
	if b == nil {
		return analyzer.NewTracker(nil)
	}
	return analyzer.NewTracker(func(current, total int, path string) {
		if total > 0 && b.bar.GetMax() != total {
			b.bar.ChangeMax(total)
		}
		b.bar.Describe(fmt.Sprintf("%s %s", b.label, filepath.Base(path)))
		_ = b.bar.Set(current)
	})
}

// Tick increments the progress by 1. Safe for concurrent use.
func (b *Bar) Tick() {
	if b == nil {
		return
	}
	_ = b.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (b *Bar) FinishSuccess() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
	_ = b.bar.Clear()
}

// FinishError clears the bar and prints an error message.
func (b *Bar) FinishError(err error) {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
	_ = b.bar.Clear()
	fmt.Fprintf(b.out, "  %s error: %v\n", b.label, err)
}
