package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ccworks/hoist/internal/output"
	"github.com/ccworks/hoist/pkg/config"
)

const sample = `public class Sample
{
    public void SampleMethod()
    {
        var s = "double";
        var d = "double";
        var e = "";
    }
}
`

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("nil result")
	}
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return text.Text
}

func TestServerCreation(t *testing.T) {
	server := NewServer("1.0.0-test", WithConfig(config.DefaultConfig()))
	if server == nil || server.server == nil {
		t.Fatal("NewServer() returned an incomplete server")
	}
	if NewServer("") == nil {
		t.Fatal(`NewServer("") returned nil`)
	}
}

func TestToolDescriptions(t *testing.T) {
	for name, fn := range map[string]func() string{"hoist": describeHoist, "analyze": describeAnalyze} {
		desc := fn()
		for _, section := range []string{"USE WHEN:", "INTERPRETING RESULTS:", "METRICS RETURNED:"} {
			if !strings.Contains(desc, section) {
				t.Errorf("%s description missing %s", name, section)
			}
		}
	}
}

func TestGetFormat(t *testing.T) {
	tests := map[string]output.Format{
		"":         output.FormatTOON,
		"toon":     output.FormatTOON,
		"json":     output.FormatJSON,
		"md":       output.FormatMarkdown,
		"markdown": output.FormatMarkdown,
	}
	for in, want := range tests {
		if got := getFormat(SolverInput{Format: in}); got != want {
			t.Errorf("getFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetPaths(t *testing.T) {
	if got := getPaths(AnalyzeInput{}); len(got) != 1 || got[0] != "." {
		t.Errorf("getPaths() = %v", got)
	}
	if got := getPaths(AnalyzeInput{Paths: []string{"a", "b"}}); len(got) != 2 {
		t.Errorf("getPaths() = %v", got)
	}
}

func TestHandleHoist(t *testing.T) {
	s := NewServer("test")

	result, _, err := s.handleHoist(context.Background(), nil, HoistInput{
		SolverInput: SolverInput{Format: "json"},
		Source:      sample,
	})
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, result)
	if result.IsError {
		t.Fatalf("tool error: %s", text)
	}

	var decoded hoistResult
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, text)
	}
	if !decoded.Changed {
		t.Error("changed should be true")
	}
	if decoded.Stats.ConstantsCreated != 1 || decoded.Stats.MagicStringsReplaced != 2 || decoded.Stats.EmptyStringsReplaced != 1 {
		t.Errorf("stats = %+v", decoded.Stats)
	}
	if !strings.Contains(decoded.Text, `private const string Double = "double";`) {
		t.Errorf("text = %s", decoded.Text)
	}
}

func TestHandleHoistCachesResults(t *testing.T) {
	s := NewServer("test")
	input := HoistInput{SolverInput: SolverInput{Format: "json"}, Source: sample}

	first, _, err := s.handleHoist(context.Background(), nil, input)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := s.handleHoist(context.Background(), nil, input)
	if err != nil {
		t.Fatal(err)
	}
	if resultText(t, first) != resultText(t, second) {
		t.Error("cached result differs from the first call")
	}
	if got := s.results.Len(); got != 1 {
		t.Errorf("cache entries = %d, want 1", got)
	}

	// Different options must not share an entry.
	input.NoEmptySentinel = true
	if _, _, err := s.handleHoist(context.Background(), nil, input); err != nil {
		t.Fatal(err)
	}
	if got := s.results.Len(); got != 2 {
		t.Errorf("cache entries = %d, want 2", got)
	}

	// Malformed input is never cached.
	_, _, _ = s.handleHoist(context.Background(), nil, HoistInput{Source: "public class Broken {"})
	if got := s.results.Len(); got != 2 {
		t.Errorf("cache entries after error = %d, want 2", got)
	}
}

func TestHandleHoistOptions(t *testing.T) {
	s := NewServer("test")

	result, _, err := s.handleHoist(context.Background(), nil, HoistInput{
		SolverInput: SolverInput{NoEmptySentinel: true},
		Source:      sample,
	})
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, result)
	if strings.Contains(text, "string.Empty") {
		t.Errorf("empty sentinel should be disabled:\n%s", text)
	}

	result, _, _ = s.handleHoist(context.Background(), nil, HoistInput{
		SolverInput: SolverInput{ScopeMode: "sideways"},
		Source:      sample,
	})
	if !result.IsError {
		t.Error("unknown scope mode should be a tool error")
	}
}

func TestHandleHoistErrors(t *testing.T) {
	s := NewServer("test")

	result, _, err := s.handleHoist(context.Background(), nil, HoistInput{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("missing source should be a tool error")
	}

	result, _, err = s.handleHoist(context.Background(), nil, HoistInput{Source: "public class Broken {"})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError || !strings.Contains(resultText(t, result), "malformed source") {
		t.Errorf("malformed input should report a syntax error: %s", resultText(t, result))
	}
}

func TestHandleAnalyze(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Sample.cs")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewServer("test")
	for _, format := range []string{"", "json", "markdown"} {
		t.Run("format_"+format, func(t *testing.T) {
			result, _, err := s.handleAnalyze(context.Background(), nil, AnalyzeInput{
				SolverInput: SolverInput{Format: format},
				Paths:       []string{dir},
			})
			if err != nil {
				t.Fatal(err)
			}
			text := resultText(t, result)
			if result.IsError {
				t.Fatalf("tool error: %s", text)
			}
			if !strings.Contains(text, "Sample.cs") {
				t.Errorf("output missing file:\n%s", text)
			}
		})
	}

	// Analysis is read-only.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != sample {
		t.Error("analyze_magic_strings modified the file")
	}
}

func TestHandleAnalyzeNoFiles(t *testing.T) {
	s := NewServer("test")
	result, _, err := s.handleAnalyze(context.Background(), nil, AnalyzeInput{Paths: []string{t.TempDir()}})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("empty directory should be a tool error")
	}
}

func TestParseFrontmatter(t *testing.T) {
	fm, body := parseFrontmatter([]byte("---\ndescription: hi\narguments:\n  - name: path\n    required: true\n---\nBody {{path}}\n"))
	if fm.Description != "hi" || len(fm.Arguments) != 1 || !fm.Arguments[0].Required {
		t.Errorf("frontmatter = %+v", fm)
	}
	if body != "Body {{path}}\n" {
		t.Errorf("body = %q", body)
	}

	fm, body = parseFrontmatter([]byte("no frontmatter"))
	if fm.Description != "" || body != "no frontmatter" {
		t.Errorf("got %+v %q", fm, body)
	}
}

func TestPrompts(t *testing.T) {
	defs := loadPrompts()
	if len(defs) == 0 {
		t.Fatal("no embedded prompts")
	}

	for _, def := range defs {
		t.Run(def.Name, func(t *testing.T) {
			if def.Description == "" {
				t.Error("prompt description is empty")
			}

			args := map[string]string{}
			for _, a := range def.Arguments {
				args[a.Name] = "src/Orders"
			}
			result, err := makePromptHandler(def)(context.Background(), &mcp.GetPromptRequest{
				Params: &mcp.GetPromptParams{Name: def.Name, Arguments: args},
			})
			if err != nil {
				t.Fatal(err)
			}
			if len(result.Messages) != 1 || result.Messages[0].Role != "user" {
				t.Fatalf("messages = %+v", result.Messages)
			}
			text := result.Messages[0].Content.(*mcp.TextContent).Text
			if strings.Contains(text, "{{") {
				t.Errorf("unsubstituted placeholder:\n%s", text)
			}
			if len(def.Arguments) > 0 && !strings.Contains(text, "src/Orders") {
				t.Errorf("argument not substituted:\n%s", text)
			}
		})
	}
}

func TestSubstituteArg(t *testing.T) {
	if got := substituteArg("run on {{paths}}", "paths", ""); got != "run on the current directory" {
		t.Errorf("got %q", got)
	}
	if got := substituteArg("read {{path}}", "path", "A.cs"); got != "read A.cs" {
		t.Errorf("got %q", got)
	}
}

func TestGenerateManifest(t *testing.T) {
	data, err := GenerateManifest("1.2.3")
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Version != "1.2.3" || len(m.Packages) != 1 || m.Packages[0].PackageArguments[0].Value != "mcp" {
		t.Errorf("manifest = %+v", m)
	}

	data, _ = GenerateManifest("")
	if !strings.Contains(string(data), `"version": "0.0.0"`) {
		t.Errorf("empty version should default:\n%s", data)
	}
}
