package output

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/ccworks/hoist/pkg/analyzer/magicstrings"
)

// RunMode describes what a magic-strings run did with its results.
type RunMode string

const (
	ModeWrite  RunMode = "write"
	ModeDryRun RunMode = "dry-run"
	ModeCheck  RunMode = "check"
)

// String implements fmt.Stringer, which the TOON encoder uses for named
// string types.
func (m RunMode) String() string {
	return string(m)
}

// MagicStringsOptions tune NewMagicStringsReport.
type MagicStringsOptions struct {
	Mode RunMode
	// Root makes file paths relative when set.
	Root string
	// ShowConstants adds a table listing every synthesized constant.
	ShowConstants bool
	// ShowUnchanged lists files that needed no rewrite.
	ShowUnchanged bool
}

// MagicStringsData is the serialized form of a run.
type MagicStringsData struct {
	Mode     RunMode                   `json:"mode" toon:"mode"`
	Analysis *magicstrings.Analysis    `json:"analysis" toon:"analysis"`
	Written  []string                  `json:"written,omitempty" toon:"written,omitempty"`
	Skipped  []magicstrings.FileResult `json:"skipped,omitempty" toon:"skipped,omitempty"`
}

// NewMagicStringsReport renders a batch result as a summary section, a
// per-file table and optionally the constants that were created.
func NewMagicStringsReport(data *MagicStringsData, opts MagicStringsOptions) *Report {
	a := data.Analysis
	rel := func(path string) string {
		if opts.Root == "" {
			return path
		}
		if r, err := filepath.Rel(opts.Root, path); err == nil {
			return r
		}
		return path
	}

	summary := &Section{
		Title: "Summary",
		Content: fmt.Sprintf(
			"Files: %d  Changed: %d  Failed: %d\nConstants created: %d\nMagic strings replaced: %d\nEmpty strings replaced: %d\nScope mode: %s  Mode: %s",
			a.Summary.TotalFiles, a.Summary.ChangedFiles, a.Summary.FailedFiles,
			a.Summary.Stats.ConstantsCreated,
			a.Summary.Stats.MagicStringsReplaced,
			a.Summary.Stats.EmptyStringsReplaced,
			a.ScopeMode, opts.Mode,
		),
	}

	var rows [][]string
	for _, f := range a.Files {
		if !f.Changed && f.Error == "" && !opts.ShowUnchanged {
			continue
		}
		status := "unchanged"
		switch {
		case f.Error != "":
			status = color.RedString("error: %s", f.Error)
		case f.Changed && opts.Mode == ModeWrite:
			status = color.GreenString("rewritten")
		case f.Changed:
			status = color.YellowString("would change")
		}
		rows = append(rows, []string{
			rel(f.Path),
			fmt.Sprintf("%d", f.Stats.ConstantsCreated),
			fmt.Sprintf("%d", f.Stats.MagicStringsReplaced),
			fmt.Sprintf("%d", f.Stats.EmptyStringsReplaced),
			status,
		})
	}
	for _, f := range data.Skipped {
		rows = append(rows, []string{rel(f.Path), "-", "-", "-", color.YellowString("skipped: uncommitted changes")})
	}

	files := NewTable(
		"Files",
		[]string{"File", "Constants", "Magic", "Empty", "Status"},
		rows,
		[]string{
			fmt.Sprintf("Total: %d", a.Summary.TotalFiles),
			CountColor(a.Summary.Stats.ConstantsCreated),
			CountColor(a.Summary.Stats.MagicStringsReplaced),
			CountColor(a.Summary.Stats.EmptyStringsReplaced),
			"",
		},
	)

	report := &Report{
		Title:    "Magic Strings",
		Sections: []Renderable{summary, files},
		Data:     data,
	}

	if opts.ShowConstants {
		var crows [][]string
		for _, f := range a.Files {
			for _, c := range f.Constants {
				crows = append(crows, []string{
					fmt.Sprintf("%s:%d", rel(f.Path), c.Line),
					c.Scope,
					c.Name,
					truncate(c.Value, 60),
				})
			}
		}
		report.Sections = append(report.Sections, NewTable(
			"Constants",
			[]string{"Location", "Type", "Name", "Value"},
			crows,
			nil,
		))
	}
	return report
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
