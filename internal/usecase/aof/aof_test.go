package aof

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"kvserver/internal/usecase/storage"
)

func TestAofReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.aof")

	a, err := Open(path, storage.NewMemoryStorage(), nil)
	require.NoError(t, err)

	_, _, err = a.Set("t", "a", storage.NewValue("1"))
	require.NoError(t, err)
	_, _, err = a.Set("t", "b", storage.NewValue("2"))
	require.NoError(t, err)
	_, _, err = a.Set("t", "a", storage.NewValue("3"))
	require.NoError(t, err)
	_, existed, err := a.Delete("t", "b")
	require.NoError(t, err)
	assert.True(t, existed)
	_, _, err = a.Set("u", "empty", storage.NewValue(""))
	require.NoError(t, err)
	require.NoError(t, a.Close())

	replayed := storage.NewMemoryStorage()
	b, err := Open(path, replayed, nil)
	require.NoError(t, err)
	defer b.Close()

	pairs, err := b.GetAll("t")
	require.NoError(t, err)
	assert.Equal(t, []storage.KvPair{{Key: "a", Value: storage.NewValue("3")}}, pairs)

	val, ok, err := b.Get("u", "empty")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, val.IsNull())
}

func TestAofSkipsMissingDeletes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.aof")

	a, err := Open(path, storage.NewMemoryStorage(), nil)
	require.NoError(t, err)

	_, existed, err := a.Delete("t", "nope")
	require.NoError(t, err)
	assert.False(t, existed)
	require.NoError(t, a.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestAofCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.aof")
	require.NoError(t, os.WriteFile(path, []byte("*2\r\n$4\r\nNOPE\r\n$1\r\nt\r\n"), 0o644))

	_, err := Open(path, storage.NewMemoryStorage(), nil)
	assert.Error(t, err)
}

func TestAofCloseTwice(t *testing.T) {
	a, err := Open(filepath.Join(t.TempDir(), "database.aof"), storage.NewMemoryStorage(), nil)
	require.NoError(t, err)

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestAofTruncatedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "database.aof")
	require.NoError(t, os.WriteFile(path, []byte("*4\r\n$4\r\nHSET\r\n$1\r\nt\r\n$1\r\na\r\n"), 0o644))

	_, err := Open(path, storage.NewMemoryStorage(), nil)
	assert.Error(t, err)
}

func TestAofWriteFailureKeepsMutation(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	inner := storage.NewMemoryStorage()

	a, err := Open(filepath.Join(t.TempDir(), "database.aof"), inner, zap.New(core))
	require.NoError(t, err)
	defer a.Close()

	// Larger than the write buffer, so the frame goes straight to the closed file.
	require.NoError(t, a.file.Close())
	big := storage.NewValue(strings.Repeat("x", 8192))

	prev, existed, err := a.Set("t", "a", big)
	require.NoError(t, err)
	assert.False(t, existed)
	assert.True(t, prev.IsNull())

	val, ok, err := inner.Get("t", "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, big, val)

	_, existed, err = a.Delete("t", "a")
	require.NoError(t, err)
	assert.True(t, existed)

	assert.Equal(t, 2, logs.FilterMessage("AOF write failed, frame lost").Len())
	assert.Error(t, a.Sync())
}
