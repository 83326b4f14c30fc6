package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Data   string `json:"data"`
	Symbol string `json:"symbol"`
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	file, err := NewFile(filepath.Join(t.TempDir(), "nested", "prefs.json"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rds, err := NewRedis(context.Background(), RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rds.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"redis":  rds,
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var n int
			ok, err := s.Get(ctx, KeyMax, &n)
			require.NoError(t, err)
			assert.False(t, ok)

			history := []entry{{Data: "a", Symbol: "QR Code"}, {Data: "b", Symbol: "EAN-13"}}
			require.NoError(t, s.Set(ctx, map[string]any{
				KeyMax:     50,
				KeySave:    false,
				KeyHistory: history,
			}))

			ok, err = s.Get(ctx, KeyMax, &n)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, 50, n)

			var got []entry
			ok, err = s.Get(ctx, KeyHistory, &got)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, history, got)

			save, err := GetOr(ctx, s, KeySave, true)
			require.NoError(t, err)
			assert.False(t, save)

			require.NoError(t, s.Remove(ctx, KeyHistory, "missing"))
			ok, err = s.Get(ctx, KeyHistory, &got)
			require.NoError(t, err)
			assert.False(t, ok)

			camera, err := GetOr(ctx, s, KeyCamera, 0)
			require.NoError(t, err)
			assert.Zero(t, camera)
		})
	}
}

func TestGetOr_DecodeError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, map[string]any{KeyMax: "lots"}))
	v, err := GetOr(ctx, m, KeyMax, 100)
	assert.Error(t, err)
	assert.Equal(t, 100, v)
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	list := []string{"x"}
	require.NoError(t, m.Set(ctx, map[string]any{"k": list}))
	list[0] = "changed"

	var got []string
	_, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, got)
}

func TestFile_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.json")

	f1, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, f1.Set(ctx, map[string]any{KeyAutoStart: true}))

	f2, err := NewFile(path)
	require.NoError(t, err)
	auto, err := GetOr(ctx, f2, KeyAutoStart, false)
	require.NoError(t, err)
	assert.True(t, auto)
	assert.Equal(t, path, f2.Path())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFile_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := NewFile(path)
	assert.Error(t, err)
}

func TestRedis_UnreachableServer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRedis(ctx, RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, Options{Backend: "file", Path: filepath.Join(t.TempDir(), "p.json")})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Options{Backend: "redis", RedisAddr: mr.Addr(), RedisKey: "test:prefs"})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, map[string]any{KeyMax: 3}))
	assert.True(t, mr.Exists("test:prefs"))

	_, err = Open(ctx, Options{Backend: "indexeddb"})
	assert.Error(t, err)
}
