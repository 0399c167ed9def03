package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	toon "github.com/toon-format/toon-go"
	"go.uber.org/zap"

	"github.com/ccworks/hoist/internal/cache"
	"github.com/ccworks/hoist/internal/output"
	"github.com/ccworks/hoist/internal/scanner"
	"github.com/ccworks/hoist/pkg/analyzer/magicstrings"
)

// SolverInput holds the options shared by both tools.
type SolverInput struct {
	ScopeMode       string `json:"scope_mode,omitempty" jsonschema:"How classes treat nested types: recursive (default) or isolated."`
	NoEmptySentinel bool   `json:"no_empty_sentinel,omitempty" jsonschema:"Keep empty string literals instead of rewriting them to string.Empty."`
	Format          string `json:"format,omitempty" jsonschema:"Output format: toon (default), json, or markdown."`
}

// HoistInput is the input of hoist_magic_strings.
type HoistInput struct {
	SolverInput
	Source string `json:"source" jsonschema:"Complete C# source text of one file."`
}

// AnalyzeInput is the input of analyze_magic_strings.
type AnalyzeInput struct {
	SolverInput
	Paths []string `json:"paths,omitempty" jsonschema:"Files or directories to analyze. Defaults to current directory if empty."`
}

func getPaths(input AnalyzeInput) []string {
	if len(input.Paths) == 0 {
		return []string{"."}
	}
	return input.Paths
}

func getFormat(input SolverInput) output.Format {
	switch input.Format {
	case "json":
		return output.FormatJSON
	case "markdown", "md":
		return output.FormatMarkdown
	default:
		return output.FormatTOON
	}
}

// solver builds a solver from the server config overridden by the input.
func (s *Server) solver(input SolverInput) (*magicstrings.Solver, error) {
	cfg := s.config.MagicStrings

	modeName := cfg.ScopeMode
	if input.ScopeMode != "" {
		modeName = input.ScopeMode
	}
	mode, ok := magicstrings.ParseScopeMode(modeName)
	if !ok {
		return nil, fmt.Errorf("unknown scope_mode %q", modeName)
	}

	opts := []magicstrings.SolverOption{
		magicstrings.WithScopeMode(mode),
		magicstrings.WithEmptyStringSentinel(cfg.EmptyStringSentinel && !input.NoEmptySentinel),
		magicstrings.WithMaxNameLength(cfg.MaxNameLength),
		magicstrings.WithLogger(s.logger),
	}
	if cfg.Lenient {
		opts = append(opts, magicstrings.WithLenientParsing())
	}
	return magicstrings.NewSolver(opts...), nil
}

func formatOutput(data any, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		if r, ok := data.(output.Renderable); ok {
			data = r.RenderData()
		}
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out), nil
	case output.FormatMarkdown:
		if r, ok := data.(output.Renderable); ok {
			var buf bytes.Buffer
			if err := r.RenderMarkdown(&buf); err != nil {
				return "", err
			}
			return buf.String(), nil
		}
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return "```\n" + string(out) + "\n```", nil
	default:
		if r, ok := data.(output.Renderable); ok {
			data = r.RenderData()
		}
		out, err := toon.Marshal(data, toon.WithIndent(2))
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}

func toolResult(data any, format output.Format) (*mcp.CallToolResult, any, error) {
	text, err := formatOutput(data, format)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}, nil, nil
}

func toolError(msg string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Error: " + msg},
		},
		IsError: true,
	}, nil, nil
}

// hoistResult is the serialized form of a single-document rewrite.
type hoistResult struct {
	Text      string                  `json:"text" toon:"text"`
	Changed   bool                    `json:"changed" toon:"changed"`
	Stats     magicstrings.Stats      `json:"stats" toon:"stats"`
	Constants []magicstrings.Constant `json:"constants,omitempty" toon:"constants,omitempty"`
}

func (s *Server) handleHoist(ctx context.Context, req *mcp.CallToolRequest, input HoistInput) (*mcp.CallToolResult, any, error) {
	if input.Source == "" {
		return toolError("source is required")
	}

	solver, err := s.solver(input.SolverInput)
	if err != nil {
		return toolError(err.Error())
	}

	key := cache.Key(cache.HashBytes([]byte(input.Source)), solver.Fingerprint())
	res, ok := s.results.Get(key)
	if !ok {
		res, err = solver.Solve(ctx, input.Source)
		if err != nil {
			var serr *magicstrings.SyntaxError
			if errors.As(err, &serr) {
				return toolError(fmt.Sprintf("source not rewritten: %v", serr))
			}
			return toolError(err.Error())
		}
		s.results.Add(key, res)
	}

	s.logger.Debug("hoist tool call",
		zap.Bool("cached", ok),
		zap.Int("constants", res.Stats.ConstantsCreated),
		zap.Int("magic", res.Stats.MagicStringsReplaced),
		zap.Int("empty", res.Stats.EmptyStringsReplaced))

	return toolResult(hoistResult{
		Text:      res.Text,
		Changed:   res.Text != input.Source,
		Stats:     res.Stats,
		Constants: res.Constants,
	}, getFormat(input.SolverInput))
}

func (s *Server) handleAnalyze(ctx context.Context, req *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, any, error) {
	solver, err := s.solver(input.SolverInput)
	if err != nil {
		return toolError(err.Error())
	}

	files, err := scanner.NewScanner(s.config).ScanPaths(getPaths(input))
	if err != nil {
		return toolError(err.Error())
	}
	if len(files) == 0 {
		return toolError("no C# source files found")
	}

	a := magicstrings.New(
		magicstrings.WithSolver(solver),
		magicstrings.WithMaxFileSize(s.config.MagicStrings.MaxFileSize),
		magicstrings.WithMaxWorkers(s.config.MagicStrings.MaxWorkers),
		magicstrings.WithAnalyzerLogger(s.logger),
	)
	defer a.Close()

	analysis, err := a.Analyze(ctx, files)
	if err != nil {
		return toolError(err.Error())
	}

	report := output.NewMagicStringsReport(
		&output.MagicStringsData{Mode: output.ModeDryRun, Analysis: analysis},
		output.MagicStringsOptions{Mode: output.ModeDryRun, ShowConstants: true},
	)
	return toolResult(report, getFormat(input.SolverInput))
}
