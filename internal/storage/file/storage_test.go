package file

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDirCreatesParentsAndKeepsContents(t *testing.T) {
	base := filepath.Join(t.TempDir(), "a", "b", "c")
	s := NewStorage(base)

	require.NoError(t, s.EnsureDir())
	require.NoError(t, os.WriteFile(filepath.Join(base, "keep.txt"), []byte("x"), 0o644))
	require.NoError(t, s.EnsureDir())

	_, err := os.Stat(filepath.Join(base, "keep.txt"))
	assert.NoError(t, err)
}

func TestEnsureDirFailsWhenBaseIsFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(base, []byte("x"), 0o644))

	assert.Error(t, NewStorage(base).EnsureDir())
}

func TestSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := NewStorage(base)

	_, err := s.Save(ctx, "", "icon.png", strings.NewReader("first version"))
	require.NoError(t, err)

	path, err := s.Save(ctx, "", "icon.png", strings.NewReader("second"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "icon.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	s := NewStorage(t.TempDir())

	_, err := s.Save(ctx, "sub", "a.png", strings.NewReader("payload"))
	require.NoError(t, err)

	rc, err := s.Load(ctx, "sub", "a.png")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = s.Load(ctx, "sub", "missing.png")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
