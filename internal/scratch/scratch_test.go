package scratch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	m, err := NewManager(filepath.Join(root, "scratch"))
	require.NoError(t, err)

	path, err := m.Acquire("asm-1")
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestAcquireIsIdempotentUntilReleased(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	p1, err := m.Acquire("svc")
	require.NoError(t, err)
	p2, err := m.Acquire("svc")
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestReleaseRemovesDirectoryAndIsIdempotent(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := m.Acquire("svc")
	require.NoError(t, err)

	require.NoError(t, m.Release("svc"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Second release is a no-op, not an error.
	assert.NoError(t, m.Release("svc"))

	_, ok := m.Path("svc")
	assert.False(t, ok)
}

func TestReleaseUnknownIdentIsNoOp(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, m.Release("never-acquired"))
}

func TestSanitizeAvoidsPathTraversal(t *testing.T) {
	m, err := NewManager(t.TempDir())
	require.NoError(t, err)

	path, err := m.Acquire("../../etc/passwd")
	require.NoError(t, err)
	assert.NotContains(t, path, "..")
}
