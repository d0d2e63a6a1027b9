package checksum

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestFile(t *testing.T) {
	for _, text := range []string{"check1", "hash2", "test3", strings.Repeat("x", 3*BlockSize+17)} {
		path := writeFile(t, t.TempDir(), "check.txt", text)
		sum, err := File(path)
		require.NoError(t, err)
		assert.Equal(t, Bytes([]byte(text)), sum)
		assert.Len(t, sum, 64)
	}
}

func TestSumIgnoresName(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "valid-1D-2020.nc", "same bytes")
	b := writeFile(t, dir, "renamed.nc", "same bytes")
	c := writeFile(t, dir, "other.nc", "other bytes")

	h := New()
	sa, err := h.Sum(a)
	require.NoError(t, err)
	sb, err := h.Sum(b)
	require.NoError(t, err)
	sc, err := h.Sum(c)
	require.NoError(t, err)

	assert.Equal(t, sa, sb)
	assert.NotEqual(t, sa, sc)
}

func TestSumMemoizes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.nc", "before")

	h := New()
	first, err := h.Sum(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("after"), 0o644))
	again, err := h.Sum(path)
	require.NoError(t, err)
	assert.Equal(t, first, again, "memoized digest is reused within a run")
	assert.Equal(t, 1, h.Hits())

	h.Forget(path)
	fresh, err := h.Sum(path)
	require.NoError(t, err)
	assert.Equal(t, Bytes([]byte("after")), fresh)

	h.Reset()
	assert.Zero(t, h.Hits())
	assert.Equal(t, fresh, New().mustSum(t, path))
}

func TestSumMissing(t *testing.T) {
	_, err := New().Sum(filepath.Join(t.TempDir(), "missing.nc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func (h *Hasher) mustSum(t *testing.T, path string) string {
	t.Helper()
	sum, err := h.Sum(path)
	require.NoError(t, err)
	return sum
}
