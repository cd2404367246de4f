// internal/services/persistence_service_test.go
package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/johnmartinello/gscript/internal/errors"
	"github.com/johnmartinello/gscript/internal/models"
	"github.com/johnmartinello/gscript/internal/storage"
)

// fakeDialog is a scripted DialogHost
type fakeDialog struct {
	openPath string
	openOK   bool
	savePath string
	saveOK   bool

	lastSuggested string
}

func (d *fakeDialog) PromptOpen() (string, bool) {
	return d.openPath, d.openOK
}

func (d *fakeDialog) PromptSave(suggested string) (string, bool) {
	d.lastSuggested = suggested
	return d.savePath, d.saveOK
}

func newPersistenceFixture(t *testing.T, dialog DialogHost) (*ProjectService, *PersistenceService) {
	t.Helper()
	store := NewProjectService()
	store.NewProjectDoc()
	return store, NewPersistenceService(store, storage.NewGScriptStore(), dialog)
}

func TestSaveThenOpenRoundTrip(t *testing.T) {
	store, persistence := newPersistenceFixture(t, nil)
	path := filepath.Join(t.TempDir(), "draft.gscript")

	scene, err := store.AddScene("Intro")
	require.NoError(t, err)
	require.NoError(t, store.SetBeats(scene.ID, []models.Beat{
		models.NewTextBeat(models.BeatAction, "It begins."),
	}))
	saved := store.Snapshot().Project

	written, err := persistence.Save(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)
	assert.Equal(t, path, store.FilePath())
	assert.False(t, store.Dirty(), "a successful save clears the dirty flag")

	// Fresh store, open the file back
	other, otherPersistence := newPersistenceFixture(t, nil)
	opened, err := otherPersistence.Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, opened)
	assert.False(t, other.Dirty())

	if diff := cmp.Diff(saved, other.Snapshot().Project); diff != "" {
		t.Errorf("project changed across save/open (-saved +opened):\n%s", diff)
	}
}

func TestSaveReusesCurrentFilePath(t *testing.T) {
	store, persistence := newPersistenceFixture(t, nil)
	path := filepath.Join(t.TempDir(), "draft.gscript")

	_, err := persistence.Save(path)
	require.NoError(t, err)

	store.AddScene("More")
	require.True(t, store.Dirty())

	written, err := persistence.Save("")
	require.NoError(t, err)
	assert.Equal(t, path, written)
	assert.False(t, store.Dirty())
}

func TestSavePromptsWhenNoPathKnown(t *testing.T) {
	dialog := &fakeDialog{savePath: filepath.Join(t.TempDir(), "picked.gscript"), saveOK: true}
	store, persistence := newPersistenceFixture(t, dialog)
	require.NoError(t, store.RenameProject("My Story"))

	written, err := persistence.Save("")
	require.NoError(t, err)
	assert.Equal(t, dialog.savePath, written)
	assert.Equal(t, "My Story.gscript", dialog.lastSuggested)
}

func TestDismissedDialogsAreNotErrors(t *testing.T) {
	dialog := &fakeDialog{}
	store, persistence := newPersistenceFixture(t, dialog)
	store.AddScene("Unsaved")

	written, err := persistence.Save("")
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.True(t, store.Dirty(), "a cancelled save leaves the document dirty")

	opened, err := persistence.Open("")
	require.NoError(t, err)
	assert.Empty(t, opened)
	require.Len(t, store.Snapshot().Project.Scenes, 1, "a cancelled open leaves the document alone")
}

func TestOpenRejectsMalformedFileWithoutReplacingProject(t *testing.T) {
	store, persistence := newPersistenceFixture(t, nil)
	store.AddScene("Keep me")

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.gscript")
	require.NoError(t, writeTestFile(bad, `{"name": "no project id"}`))

	_, err := persistence.Open(bad)
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformedDocumentError(err))

	snap := store.Snapshot()
	require.Len(t, snap.Project.Scenes, 1)
	assert.Equal(t, "Keep me", snap.Project.Scenes[0].Title)
	assert.Empty(t, store.FilePath())
}

func TestSaveAfterTargetSceneDeletionStaysLoadable(t *testing.T) {
	store, persistence := newPersistenceFixture(t, nil)
	path := filepath.Join(t.TempDir(), "draft.gscript")

	source, err := store.AddScene("Source")
	require.NoError(t, err)
	target, err := store.AddScene("Target")
	require.NoError(t, err)

	option := models.NewChoiceOption()
	option.TargetSceneID = target.ID
	require.NoError(t, store.SetBeats(source.ID, []models.Beat{
		models.NewChoicePointBeat(option),
	}))

	// Delete the targeted scene, then keep editing the source scene so the
	// sync pass runs again over the now-dead option target
	require.NoError(t, store.DeleteScene(target.ID))
	scene, err := store.GetScene(source.ID)
	require.NoError(t, err)
	require.NoError(t, store.SetBeats(source.ID, append(scene.Beats,
		models.NewTextBeat(models.BeatAction, "still here"))))

	_, err = persistence.Save(path)
	require.NoError(t, err)

	// The file the app wrote must open again
	other, otherPersistence := newPersistenceFixture(t, nil)
	opened, err := otherPersistence.Open(path)
	require.NoError(t, err, "a save produced by the app must never be rejected on load")
	assert.Equal(t, path, opened)
	assert.Empty(t, other.Snapshot().Project.Edges)
}

func TestSaveAsIgnoresCurrentPath(t *testing.T) {
	store, persistence := newPersistenceFixture(t, nil)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.gscript")
	second := filepath.Join(dir, "second.gscript")

	_, err := persistence.Save(first)
	require.NoError(t, err)

	written, err := persistence.SaveAs(second)
	require.NoError(t, err)
	assert.Equal(t, second, written)
	assert.Equal(t, second, store.FilePath())
}

func writeTestFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0644)
}
