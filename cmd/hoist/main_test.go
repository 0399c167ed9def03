package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ccworks/hoist/internal/output"
	"github.com/ccworks/hoist/internal/testutil"
	"github.com/ccworks/hoist/pkg/analyzer/magicstrings"
	"github.com/ccworks/hoist/pkg/config"
)

const greeter = `class Greeter
{
    void A() { Log("hello"); Log("hello"); }
}
`

// runApp runs the CLI with the given arguments and returns stdout.
func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Reader = strings.NewReader(stdin)
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"hoist"}, args...))
	return out.String(), err
}

func TestGetPaths(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"no args defaults to current dir", []string{}, []string{"."}},
		{"single path", []string{"/foo/bar"}, []string{"/foo/bar"}},
		{"multiple paths", []string{"/foo", "/bar"}, []string{"/foo", "/bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Action: func(c *cli.Context) error {
					result := getPaths(c)
					if strings.Join(result, ",") != strings.Join(tt.expected, ",") {
						t.Errorf("getPaths() = %v, want %v", result, tt.expected)
					}
					return nil
				},
			}
			_ = app.Run(append([]string{"test"}, tt.args...))
		})
	}
}

func TestRunMode(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		dryRun bool
		want   output.RunMode
	}{
		{"default writes", nil, false, output.ModeWrite},
		{"dry run flag", []string{"--dry-run"}, false, output.ModeDryRun},
		{"dry run config", nil, true, output.ModeDryRun},
		{"check wins", []string{"--dry-run", "--check"}, false, output.ModeCheck},
		{"ref implies dry run", []string{"--ref", "HEAD"}, false, output.ModeDryRun},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Rewrite.DryRun = tt.dryRun
			app := &cli.App{
				Flags: magicStringsCmd().Flags,
				Action: func(c *cli.Context) error {
					if got := runMode(c, cfg); got != tt.want {
						t.Errorf("runMode() = %q, want %q", got, tt.want)
					}
					return nil
				},
			}
			if err := app.Run(append([]string{"test"}, tt.args...)); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestUnderAny(t *testing.T) {
	tests := []struct {
		path     string
		prefixes []string
		want     bool
	}{
		{"src/A.cs", []string{"."}, true},
		{"src/A.cs", []string{"src"}, true},
		{"src/A.cs", []string{"src/A.cs"}, true},
		{"srcx/A.cs", []string{"src"}, false},
		{"lib/A.cs", []string{"src", "test"}, false},
	}
	for _, tt := range tests {
		if got := underAny(tt.path, tt.prefixes); got != tt.want {
			t.Errorf("underAny(%q, %v) = %v, want %v", tt.path, tt.prefixes, got, tt.want)
		}
	}
}

func TestMagicStringsRewritesFiles(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, filepath.Join(dir, "Greeter.cs"), greeter)
	plain := testutil.WriteFile(t, filepath.Join(dir, "Plain.cs"), "class Plain { }\n")
	report := filepath.Join(t.TempDir(), "report.json")

	if _, err := runApp(t, "", "--no-cache", "-f", "json", "-o", report, "magic-strings", dir); err != nil {
		t.Fatalf("magic-strings: %v", err)
	}

	got, _ := os.ReadFile(path)
	if !strings.Contains(string(got), `private const string Hello = "hello";`) {
		t.Errorf("constant not inserted:\n%s", got)
	}
	if strings.Count(string(got), "Log(Hello)") != 2 {
		t.Errorf("usages not rewritten:\n%s", got)
	}
	if unchanged, _ := os.ReadFile(plain); string(unchanged) != "class Plain { }\n" {
		t.Errorf("unchanged file was touched: %q", unchanged)
	}

	data, _ := os.ReadFile(report)
	for _, want := range []string{`"mode": "write"`, `"constants_created": 1`, "Greeter.cs"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report missing %s:\n%s", want, data)
		}
	}
}

func TestMagicStringsDryRunAndCheck(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, filepath.Join(dir, "Greeter.cs"), greeter)
	out := filepath.Join(t.TempDir(), "out.txt")

	if _, err := runApp(t, "", "--no-cache", "-o", out, "ms", "--dry-run", dir); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	_, err := runApp(t, "", "--no-cache", "-o", out, "ms", "--check", dir)
	if !errors.Is(err, errWouldChange) {
		t.Errorf("check error = %v, want errWouldChange", err)
	}

	if got, _ := os.ReadFile(path); string(got) != greeter {
		t.Errorf("file modified without write mode:\n%s", got)
	}
}

func TestMagicStringsReportsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	bad := testutil.WriteFile(t, filepath.Join(dir, "Bad.cs"), "class Bad { void M( { \"x\"; \"x\"; }\n")
	out := filepath.Join(t.TempDir(), "out.txt")

	_, err := runApp(t, "", "--no-cache", "-o", out, "ms", dir)
	if err == nil || !strings.Contains(err.Error(), "could not be processed") {
		t.Errorf("error = %v, want failed files", err)
	}
	if got, _ := os.ReadFile(bad); string(got) != "class Bad { void M( { \"x\"; \"x\"; }\n" {
		t.Errorf("malformed file was rewritten:\n%s", got)
	}
}

func TestMagicStringsInvalidScope(t *testing.T) {
	_, err := runApp(t, "", "--no-cache", "ms", "--scope", "global", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "invalid scope") {
		t.Errorf("error = %v, want invalid scope", err)
	}
}

func TestMagicStringsStdin(t *testing.T) {
	out, err := runApp(t, greeter, "ms", "--stdin")
	if err != nil {
		t.Fatalf("stdin: %v", err)
	}
	if !strings.Contains(out, `private const string Hello = "hello";`) {
		t.Errorf("stdout = %q", out)
	}

	src := "class A { void M() { var s = \"\"; } }\n"
	out, err = runApp(t, src, "ms", "--stdin", "--no-empty-sentinel")
	if err != nil {
		t.Fatal(err)
	}
	if out != src {
		t.Errorf("sentinel disabled but output changed: %q", out)
	}

	_, err = runApp(t, greeter, "ms", "--stdin", "--check")
	if !errors.Is(err, errWouldChange) {
		t.Errorf("check error = %v, want errWouldChange", err)
	}
}

func TestMagicStringsStdinMalformedEchoesInput(t *testing.T) {
	src := "class Bad { void M( { \"x\"; \"x\"; }\n"
	out, err := runApp(t, src, "ms", "--stdin")

	var syntaxErr *magicstrings.SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("error = %v, want *SyntaxError", err)
	}
	if out != src {
		t.Errorf("stdout = %q, want input unchanged", out)
	}
}

func TestWriteChangedSkipsDirtyFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir, map[string]string{"Clean.cs": greeter, "Dirty.cs": greeter})
	dirty := testutil.WriteFile(t, filepath.Join(dir, "Dirty.cs"), greeter+"// edited\n")
	clean := filepath.Join(dir, "Clean.cs")

	analysis := &magicstrings.Analysis{Files: []magicstrings.FileResult{
		{Path: clean, Changed: true, Text: "class Greeter { }\n"},
		{Path: dirty, Changed: true, Text: "class Greeter { }\n"},
	}}

	cfg := config.DefaultConfig()
	written, skipped, err := writeChanged(analysis, cfg, false, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 1 || written[0] != clean {
		t.Errorf("written = %v, want [%s]", written, clean)
	}
	if len(skipped) != 1 || skipped[0].Path != dirty {
		t.Errorf("skipped = %v, want %s", skipped, dirty)
	}

	written, skipped, err = writeChanged(analysis, cfg, true, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != 2 || len(skipped) != 0 {
		t.Errorf("force: written = %v, skipped = %v", written, skipped)
	}
	if got, _ := os.ReadFile(dirty); string(got) != "class Greeter { }\n" {
		t.Errorf("forced write not applied: %q", got)
	}
}

func TestFilesAtRef(t *testing.T) {
	dir := t.TempDir()
	testutil.InitRepo(t, dir, map[string]string{
		"src/Greeter.cs":       greeter,
		"src/Form.Designer.cs": greeter,
		"test/GreeterTest.cs":  greeter,
		"README.md":            "readme",
	})
	// Working tree edits are invisible at HEAD.
	testutil.WriteFile(t, filepath.Join(dir, "src/Greeter.cs"), "class Greeter { }\n")

	files, src, root, err := filesAtRef([]string{filepath.Join(dir, "src")}, "HEAD", config.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "src", "Greeter.cs")
	if len(files) != 1 || files[0] != want {
		t.Fatalf("files = %v, want [%s]", files, want)
	}
	if root != dir {
		t.Errorf("root = %s, want %s", root, dir)
	}
	content, err := src.Read(files[0])
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != greeter {
		t.Errorf("content at HEAD = %q", content)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hoist.toml")

	if _, err := runApp(t, "", "config", "init", path); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := runApp(t, "", "config", "init", path); err == nil {
		t.Error("init over existing file should fail without --force")
	}
	if _, err := runApp(t, "", "config", "init", "--force", path); err != nil {
		t.Errorf("init --force: %v", err)
	}
	if _, err := runApp(t, "", "-c", path, "config", "validate"); err != nil {
		t.Errorf("validate generated config: %v", err)
	}

	out, err := runApp(t, "", "-c", path, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Configuration from: " + path, "[magic_strings]", `scope_mode = "recursive"`} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hoist.toml")
	if err := os.WriteFile(path, []byte("[magic_strings]\nscope_mode = \"global\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := runApp(t, "", "-c", path, "config", "validate")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestConfigSchema(t *testing.T) {
	out, err := runApp(t, "", "config", "schema")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"scope_mode"`) {
		t.Errorf("schema output = %s", out)
	}
}

func TestMCPManifest(t *testing.T) {
	out, err := runApp(t, "", "mcp", "manifest")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "io.github.ccworks/hoist") {
		t.Errorf("manifest = %s", out)
	}
}
