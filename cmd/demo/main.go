// cmd/demo/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/johnmartinello/gscript/internal/models"
	"github.com/johnmartinello/gscript/internal/richtext"
	"github.com/johnmartinello/gscript/internal/services"
	"github.com/johnmartinello/gscript/internal/storage"
)

// A scripted walkthrough of the editing core: build a small branching
// script, connect scenes from the graph side, save it, reload it and export
// it. Useful for eyeballing the .gscript format and the export output
// without a frontend.
func main() {
	store := services.NewProjectService()
	store.NewProjectDoc()
	if err := store.RenameProject("The Locked Door"); err != nil {
		log.Fatal(err)
	}

	intro, _ := store.AddScene("Intro")
	hallway, _ := store.AddScene("Hallway")
	cellar, _ := store.AddScene("Cellar")

	err := store.SetBeats(intro.ID, []models.Beat{
		models.NewTextBeat(models.BeatSceneHeading, "INT. MANOR FOYER - NIGHT"),
		models.NewTextBeat(models.BeatAction, "Rain hammers the windows. A single candle gutters on the table."),
		models.NewTextBeat(models.BeatCharacterCue, "MIRA"),
		models.NewTextBeat(models.BeatDialogue, "Hello? Anyone here?"),
	})
	if err != nil {
		log.Fatal(err)
	}

	// Branch Intro to both scenes through one choice point
	beat := models.NewChoicePointBeat(
		models.ChoiceOption{ID: models.NewBeatID(), Label: "Take the stairs", TargetSceneID: hallway.ID},
		models.ChoiceOption{ID: models.NewBeatID(), Label: "Try the cellar door", TargetSceneID: cellar.ID, Condition: "hasKey == true"},
	)
	scene, _ := store.GetScene(intro.ID)
	if err := store.SetBeats(intro.ID, append(scene.Beats, beat)); err != nil {
		log.Fatal(err)
	}

	// A graph-side connection synthesizes its own choice point in Hallway
	if _, err := store.AddEdgeFromConnection(hallway.ID, cellar.ID); err != nil {
		log.Fatal(err)
	}

	snap := store.Snapshot()
	fmt.Printf("scenes: %d, edges: %d, revision: %d\n",
		len(snap.Project.Scenes), len(snap.Project.Edges), snap.Revision)

	// Round trip through the rich-text document form
	doc := richtext.BeatsToDoc(snap.Project.Scenes[0].Beats)
	back := richtext.DocToBeats(doc)
	fmt.Printf("bridge round trip lossless: %v\n", richtext.BeatsEqual(back, snap.Project.Scenes[0].Beats))

	// Save, reload, compare
	dir, err := os.MkdirTemp("", "gscript_demo_*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	files := storage.NewGScriptStore()
	persistence := services.NewPersistenceService(store, files, nil)
	path, err := persistence.Save(filepath.Join(dir, "demo.gscript"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("saved to %s\n", path)

	loaded, err := files.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("reloaded %q: %d scenes, %d edges, version %d\n",
		loaded.Name, len(loaded.Scenes), len(loaded.Edges), loaded.Version)

	export := services.NewExportService(filepath.Join(dir, "exports"))
	if result, err := export.SaveScreenplayHTML(loaded); err == nil {
		fmt.Printf("screenplay export: %s (%d bytes)\n", result.FilePath, result.FileSize)
	}
	if result, err := export.SaveGraphPNG(loaded); err == nil {
		fmt.Printf("graph export: %s (%d bytes)\n", result.FilePath, result.FileSize)
	}
}
