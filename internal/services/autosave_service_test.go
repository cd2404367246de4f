// internal/services/autosave_service_test.go
package services

import (
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnmartinello/gscript/internal/storage"
)

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return condition()
}

func newAutosaveFixture(t *testing.T, delay time.Duration) (*ProjectService, *AutosaveService, string) {
	t.Helper()
	store := NewProjectService()
	store.NewProjectDoc()
	persistence := NewPersistenceService(store, storage.NewGScriptStore(), nil)

	path := filepath.Join(t.TempDir(), "auto.gscript")
	_, err := persistence.Save(path)
	require.NoError(t, err)

	autosave := NewAutosaveService(store, persistence, delay)
	t.Cleanup(autosave.Stop)
	return store, autosave, path
}

func TestAutosaveFiresAfterQuietPeriod(t *testing.T) {
	store, _, _ := newAutosaveFixture(t, 20*time.Millisecond)

	_, err := store.AddScene("Edited")
	require.NoError(t, err)
	require.True(t, store.Dirty())

	assert.True(t, waitFor(t, time.Second, func() bool { return !store.Dirty() }),
		"autosave should have saved and cleared the dirty flag")
}

func TestAutosaveDebouncesBursts(t *testing.T) {
	store, _, _ := newAutosaveFixture(t, 50*time.Millisecond)

	// A burst of edits inside the delay window
	for i := 0; i < 5; i++ {
		_, err := store.AddScene("Scene")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
		require.True(t, store.Dirty(), "save must not fire while edits keep arriving")
	}

	assert.True(t, waitFor(t, time.Second, func() bool { return !store.Dirty() }))
	assert.Len(t, store.Snapshot().Project.Scenes, 5)
}

func TestAutosaveSavesExactlyOncePerEdit(t *testing.T) {
	store, _, _ := newAutosaveFixture(t, 30*time.Millisecond)

	// A successful save commits exactly one clean snapshot, so counting
	// clean commits counts saves
	var cleanCommits int32
	unsubscribe := store.Subscribe(func(snap Snapshot) {
		if !snap.Dirty {
			atomic.AddInt32(&cleanCommits, 1)
		}
	})
	t.Cleanup(unsubscribe)

	require.NoError(t, store.RenameProject("Edited Once"))
	require.True(t, waitFor(t, time.Second, func() bool { return !store.Dirty() }))

	// Give a wrongly re-armed timer every chance to fire again
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&cleanCommits),
		"one edit must produce one save, not a save cascade")
}

func TestAutosaveSkipsUnsavedProjects(t *testing.T) {
	store := NewProjectService()
	store.NewProjectDoc()
	persistence := NewPersistenceService(store, storage.NewGScriptStore(), nil)
	autosave := NewAutosaveService(store, persistence, 10*time.Millisecond)
	t.Cleanup(autosave.Stop)

	_, err := store.AddScene("Never saved")
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)
	assert.True(t, store.Dirty(), "no file path means nothing to autosave to")
}

func TestAutosaveStop(t *testing.T) {
	store, autosave, _ := newAutosaveFixture(t, 20*time.Millisecond)

	_, err := store.AddScene("Edited")
	require.NoError(t, err)
	autosave.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.True(t, store.Dirty(), "a stopped scheduler must not save")
}
