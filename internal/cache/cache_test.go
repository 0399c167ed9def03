package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	c, err := New(dir, time.Hour, true)
	require.NoError(t, err)
	assert.True(t, c.Enabled())

	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestDisabledCache(t *testing.T) {
	c, err := New("", 0, false)
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	require.NoError(t, c.SetWithHash("k", "h", []byte("data")))
	_, ok := c.GetWithHash("k", "h")
	assert.False(t, ok)
	assert.NoError(t, c.Clear())

	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
}

func TestSetAndGetWithHash(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), time.Hour, true)
	require.NoError(t, err)

	key := Key("src/Sample.cs", Fingerprint("scope=recursive"))
	hash := HashBytes([]byte("class Sample {}"))
	require.NoError(t, c.SetWithHash(key, hash, []byte(`{"changed":false}`)))

	data, ok := c.GetWithHash(key, hash)
	require.True(t, ok)
	assert.Equal(t, `{"changed":false}`, string(data))

	_, ok = c.GetWithHash(key, HashBytes([]byte("class Sample { }")))
	assert.False(t, ok, "content change must miss")

	_, ok = c.GetWithHash(Key("src/Sample.cs", Fingerprint("scope=isolated")), hash)
	assert.False(t, ok, "option change must miss")
}

func TestExpiredEntryIsRemoved(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), time.Nanosecond, true)
	require.NoError(t, err)

	require.NoError(t, c.SetWithHash("k", "h", []byte("x")))
	time.Sleep(2 * time.Millisecond)

	_, ok := c.GetWithHash("k", "h")
	assert.False(t, ok)
	_, err = os.Stat(c.keyPath("k"))
	assert.True(t, os.IsNotExist(err))
}

func TestHashingIsStable(t *testing.T) {
	assert.Equal(t, HashBytes([]byte("a")), HashBytes([]byte("a")))
	assert.NotEqual(t, HashBytes([]byte("a")), HashBytes([]byte("b")))
	assert.Len(t, HashBytes(nil), 64)

	assert.Equal(t, Fingerprint("a", "b"), Fingerprint("a", "b"))
	assert.NotEqual(t, Fingerprint("ab"), Fingerprint("a", "b"))
}

func TestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	c, err := New(dir, 0, true)
	require.NoError(t, err)
	require.NoError(t, c.SetWithHash("k", "h", []byte("x")))

	require.NoError(t, c.Clear())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestPruneRemovesExpiredEntries(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), time.Hour, true)
	require.NoError(t, err)
	require.NoError(t, c.SetWithHash("fresh", "h", []byte("x")))
	require.NoError(t, c.SetWithHash("stale", "h", []byte("y")))
	require.NoError(t, os.WriteFile(c.keyPath("broken"), []byte("{"), 0o600))

	stale, err := json.Marshal(Entry{Hash: "h", Timestamp: time.Now().Add(-2 * time.Hour), Data: []byte("y")})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.keyPath("stale"), stale, 0o600))

	n, err := c.Prune()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok := c.GetWithHash("fresh", "h")
	assert.True(t, ok)
	_, err = os.Stat(c.keyPath("stale"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(c.keyPath("broken"))
	assert.True(t, os.IsNotExist(err))
}

func TestPruneWithoutTTL(t *testing.T) {
	c, err := New(filepath.Join(t.TempDir(), "cache"), 0, true)
	require.NoError(t, err)
	require.NoError(t, c.SetWithHash("k", "h", []byte("x")))

	n, err := c.Prune()
	require.NoError(t, err)
	assert.Zero(t, n)

	disabled, err := New("", time.Hour, false)
	require.NoError(t, err)
	n, err = disabled.Prune()
	require.NoError(t, err)
	assert.Zero(t, n)
}
