package magicstrings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccworks/hoist/internal/cache"
	"github.com/ccworks/hoist/pkg/analyzer"
)

const duplicated = `public class Sample
{
    public string A() => "dup";
    public string B() => "dup";
}
`

const clean = `public class Clean
{
    public string A() => "once";
}
`

func writeFiles(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		paths = append(paths, path)
	}
	return dir, paths
}

func TestAnalyzer_Analyze(t *testing.T) {
	dir, files := writeFiles(t, map[string]string{
		"b.cs":   duplicated,
		"a.cs":   clean,
		"bad.cs": "public class Broken {",
	})

	a := New(WithMaxWorkers(2))
	defer a.Close()

	analysis, err := a.Analyze(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, analysis.Files, 3)

	assert.Equal(t, filepath.Join(dir, "a.cs"), analysis.Files[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.cs"), analysis.Files[1].Path)
	assert.Equal(t, filepath.Join(dir, "bad.cs"), analysis.Files[2].Path)

	assert.False(t, analysis.Files[0].Changed)
	assert.True(t, analysis.Files[1].Changed)
	assert.Contains(t, analysis.Files[1].Text, `private const string Dup = "dup";`)
	require.Len(t, analysis.Files[1].Constants, 1)
	assert.Equal(t, "Dup", analysis.Files[1].Constants[0].Name)
	assert.NotEmpty(t, analysis.Files[2].Error)
	assert.False(t, analysis.Files[2].Changed)

	assert.Equal(t, Summary{
		TotalFiles:   3,
		ChangedFiles: 1,
		FailedFiles:  1,
		Stats:        Stats{ConstantsCreated: 1, MagicStringsReplaced: 2},
	}, analysis.Summary)
	assert.Equal(t, ScopeRecursive, analysis.ScopeMode)
	assert.Len(t, analysis.ChangedFiles(), 1)

	// Analysis never writes.
	data, err := os.ReadFile(filepath.Join(dir, "b.cs"))
	require.NoError(t, err)
	assert.Equal(t, duplicated, string(data))
}

func TestAnalyzer_MissingFile(t *testing.T) {
	a := New()
	analysis, err := a.Analyze(context.Background(), []string{filepath.Join(t.TempDir(), "missing.cs")})
	require.NoError(t, err)
	require.Len(t, analysis.Files, 1)
	assert.NotEmpty(t, analysis.Files[0].Error)
	assert.Equal(t, 1, analysis.Summary.FailedFiles)
}

func TestAnalyzer_MaxFileSize(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"big.cs": duplicated})

	analysis, err := New(WithMaxFileSize(10)).Analyze(context.Background(), files)
	require.NoError(t, err)
	require.Len(t, analysis.Files, 1)
	assert.NotEmpty(t, analysis.Files[0].Error)
}

type memorySource map[string]string

func (m memorySource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(content), nil
}

func TestAnalyzer_WithSource(t *testing.T) {
	src := memorySource{"mem/Sample.cs": duplicated}
	a := New(WithSource(src), WithSolver(NewSolver(WithScopeMode(ScopeIsolated))))

	analysis, err := a.Analyze(context.Background(), []string{"mem/Sample.cs"})
	require.NoError(t, err)
	require.Len(t, analysis.Files, 1)
	assert.True(t, analysis.Files[0].Changed)
	assert.Equal(t, ScopeIsolated, analysis.ScopeMode)
}

func TestAnalyzer_Progress(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"a.cs": clean, "b.cs": duplicated})

	var ticks atomic.Int32
	tracker := analyzer.NewTracker(func(current, total int, path string) {
		ticks.Add(1)
	})
	ctx := analyzer.WithTracker(context.Background(), tracker)

	_, err := New().Analyze(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, int32(2), ticks.Load())
}

func TestAnalyzer_Cache(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"b.cs": duplicated})

	c, err := cache.New(t.TempDir(), time.Hour, true)
	require.NoError(t, err)

	first, err := New(WithCache(c)).Analyze(context.Background(), files)
	require.NoError(t, err)

	second, err := New(WithCache(c)).Analyze(context.Background(), files)
	require.NoError(t, err)

	require.Len(t, second.Files, 1)
	assert.Equal(t, first.Files[0].Text, second.Files[0].Text)
	assert.Equal(t, first.Files[0].Stats, second.Files[0].Stats)
	assert.True(t, second.Files[0].Changed)
}

type pruningCache struct {
	entries map[string][]byte
	pruned  int
}

func (c *pruningCache) GetWithHash(key, hash string) ([]byte, bool) {
	data, ok := c.entries[key+hash]
	return data, ok
}

func (c *pruningCache) SetWithHash(key, hash string, data []byte) error {
	c.entries[key+hash] = data
	return nil
}

func (c *pruningCache) Prune() (int, error) {
	c.pruned++
	return 0, nil
}

func TestAnalyzer_ClosePrunesCache(t *testing.T) {
	_, files := writeFiles(t, map[string]string{"c.cs": duplicated})
	c := &pruningCache{entries: map[string][]byte{}}

	a := New(WithCache(c))
	_, err := a.Analyze(context.Background(), files)
	require.NoError(t, err)
	assert.Len(t, c.entries, 1)

	a.Close()
	assert.Equal(t, 1, c.pruned)

	// A closed analyzer no longer touches the cache.
	_, err = a.Analyze(context.Background(), files)
	require.NoError(t, err)
	a.Close()
	assert.Equal(t, 1, c.pruned)
	assert.Len(t, c.entries, 1)
}
