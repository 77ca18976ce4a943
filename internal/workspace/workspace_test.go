package workspace

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Path(t *testing.T) {
	m := NewManager("/srv/tex", "repo-")
	assert.Equal(t, filepath.Join("/srv/tex", "repo-thesis-1b4e28ba"),
		m.Path("thesis", "1b4e28ba-2fa1-11d2-883f-0016d3cca427"))
	assert.Equal(t, filepath.Join("/srv/tex", "repo-thesis"), m.Path("thesis", ""))
}

func TestManager_RelativeBaseDirIsAbsolute(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	m := NewManager("work", "repo-")
	assert.Equal(t, filepath.Join(dir, "work"), m.BaseDir())
	assert.True(t, filepath.IsAbs(m.Path("thesis", "abc")))
}

func TestManager_AcquireRemovesExistingDirectory(t *testing.T) {
	m := NewManager(t.TempDir(), "repo-")
	path := m.Path("thesis", "abc")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "stale"), 0o750))

	require.NoError(t, m.Acquire(path))
	assert.NoDirExists(t, path)
	assert.True(t, m.IsActive(path))
}

func TestManager_ReleaseIsIdempotent(t *testing.T) {
	m := NewManager(t.TempDir(), "repo-")
	path := m.Path("thesis", "abc")
	require.NoError(t, m.Acquire(path))
	require.NoError(t, os.MkdirAll(filepath.Join(path, "sub"), 0o750))

	require.NoError(t, m.Release(path))
	assert.NoDirExists(t, path)
	require.NoError(t, m.Release(path))
	require.NoError(t, m.Release(filepath.Join(t.TempDir(), "never-existed")))
	assert.False(t, m.IsActive(path))
}

func TestJanitor_SweepRemovesOnlyStaleInactiveDirectories(t *testing.T) {
	base := t.TempDir()
	m := NewManager(base, "repo-")

	stale := filepath.Join(base, "repo-old-1")
	active := filepath.Join(base, "repo-busy-2")
	fresh := filepath.Join(base, "repo-new-3")
	other := filepath.Join(base, "unrelated")
	for _, d := range []string{stale, active, fresh, other} {
		require.NoError(t, os.MkdirAll(d, 0o750))
	}
	old := time.Now().Add(-2 * time.Hour)
	for _, d := range []string{stale, active, other} {
		require.NoError(t, os.Chtimes(d, old, old))
	}
	require.NoError(t, m.Acquire(active))
	require.NoError(t, os.MkdirAll(active, 0o750))
	require.NoError(t, os.Chtimes(active, old, old))

	j, err := NewJanitor(m, time.Hour)
	require.NoError(t, err)
	removed, err := j.Sweep(time.Now())
	require.NoError(t, err)

	assert.Equal(t, []string{stale}, removed)
	assert.NoDirExists(t, stale)
	assert.DirExists(t, active)
	assert.DirExists(t, fresh)
	assert.DirExists(t, other)
}

func TestJanitor_StartStop(t *testing.T) {
	j, err := NewJanitor(NewManager(t.TempDir(), "repo-"), time.Hour)
	require.NoError(t, err)
	require.NoError(t, j.Start(time.Minute))
	require.NoError(t, j.Stop())
}
