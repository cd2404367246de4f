// internal/services/project_service.go
package services

import (
	"fmt"
	"sync"

	"github.com/johnmartinello/gscript/internal/errors"
	"github.com/johnmartinello/gscript/internal/models"
)

// ViewMode selects which panel layout the client is showing
type ViewMode string

const (
	ViewEditor ViewMode = "editor"
	ViewGraph  ViewMode = "graph"
	ViewSplit  ViewMode = "split"
	ViewHelp   ViewMode = "help"
)

// Snapshot is a point-in-time view of the store. The Project inside is a
// deep copy, safe to hand to listeners and API responses.
type Snapshot struct {
	Project         *models.Project `json:"project"`
	SelectedSceneID string          `json:"selected_scene_id,omitempty"`
	ActiveBeatID    string          `json:"active_beat_id,omitempty"`
	ViewMode        ViewMode        `json:"view_mode"`
	FilePath        string          `json:"file_path,omitempty"`
	Dirty           bool            `json:"dirty"`
	Revision        uint64          `json:"revision"`
}

// ChangeListener receives a snapshot after every applied mutation
type ChangeListener func(Snapshot)

// ScenePatch updates a scene's editable metadata. Nil fields are untouched.
type ScenePatch struct {
	Title     *string
	ChapterID *string
}

// BeatPatch updates a beat's payload fields. Nil fields are untouched.
type BeatPatch struct {
	Type       *models.BeatType
	Text       *string
	Options    []models.ChoiceOption
	VariableID *string
	Value      *string
}

// ChoiceOptionPatch updates an option. A non-nil TargetSceneID pointing at
// an empty string clears the target (and deletes the mirrored edge).
type ChoiceOptionPatch struct {
	Label         *string
	TargetSceneID *string
	Condition     *string
}

// EdgePatch updates an edge's mutable fields
type EdgePatch struct {
	TargetSceneID *string
	Label         *string
	Condition     *string
}

// VariablePatch updates a variable definition
type VariablePatch struct {
	Name         *string
	Type         *models.VariableType
	DefaultValue *string
}

// ProjectService is the single source of truth for the loaded project and
// all editing state. Every mutation runs start-to-finish under one lock, so
// readers only ever observe fully applied states; the beat list is
// authoritative for choice-derived edges and SetBeats reconciles the graph
// on every text-side edit.
type ProjectService struct {
	mu              sync.RWMutex
	project         *models.Project
	selectedSceneID string
	activeBeatID    string
	viewMode        ViewMode
	filePath        string
	dirty           bool
	revision        uint64

	listenerMu sync.Mutex
	listeners  map[int]ChangeListener
	nextListID int
}

// NewProjectService creates a store with no project loaded
func NewProjectService() *ProjectService {
	return &ProjectService{
		viewMode:  ViewEditor,
		listeners: make(map[int]ChangeListener),
	}
}

// ------------------------------------------------
// Subscriptions and snapshots
// ------------------------------------------------

// Subscribe registers a change listener and returns its unsubscribe func.
// Listeners run synchronously after a mutation commits, outside the store
// lock, so they may call back into the store.
func (s *ProjectService) Subscribe(listener ChangeListener) func() {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	id := s.nextListID
	s.nextListID++
	s.listeners[id] = listener
	return func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		delete(s.listeners, id)
	}
}

// Snapshot returns the current store state
func (s *ProjectService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *ProjectService) snapshotLocked() Snapshot {
	return Snapshot{
		Project:         s.project.Clone(),
		SelectedSceneID: s.selectedSceneID,
		ActiveBeatID:    s.activeBeatID,
		ViewMode:        s.viewMode,
		FilePath:        s.filePath,
		Dirty:           s.dirty,
		Revision:        s.revision,
	}
}

// Revision returns the number of mutations applied since construction
func (s *ProjectService) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Dirty reports whether the project has unsaved edits
func (s *ProjectService) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// FilePath returns the current .gscript path, empty when never saved
func (s *ProjectService) FilePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filePath
}

// HasProject reports whether a project is loaded
func (s *ProjectService) HasProject() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project != nil
}

// notify dispatches a committed snapshot to all listeners
func (s *ProjectService) notify(snap Snapshot) {
	s.listenerMu.Lock()
	listeners := make([]ChangeListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenerMu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// commit finalizes a mutation under the lock and returns the snapshot to
// publish after the lock is released. The active beat is re-resolved on
// every commit: a cursor position only means something while its beat still
// exists in the selected scene.
func (s *ProjectService) commit(markDirty bool) Snapshot {
	if markDirty {
		s.dirty = true
	}
	if s.activeBeatID != "" && !s.activeBeatResolvesLocked() {
		s.activeBeatID = ""
	}
	s.revision++
	return s.snapshotLocked()
}

func (s *ProjectService) activeBeatResolvesLocked() bool {
	if s.project == nil {
		return false
	}
	scene, ok := s.project.Scene(s.selectedSceneID)
	if !ok {
		return false
	}
	for i := range scene.Beats {
		if scene.Beats[i].ID == s.activeBeatID {
			return true
		}
	}
	return false
}

// ------------------------------------------------
// Project lifecycle
// ------------------------------------------------

// SetProject replaces the whole document (used by open); clears the dirty
// flag and drops a selection that no longer resolves
func (s *ProjectService) SetProject(project *models.Project) {
	s.mu.Lock()
	s.project = project.Clone()
	s.dirty = false
	if _, ok := s.project.Scene(s.selectedSceneID); !ok {
		s.selectedSceneID = ""
	}
	snap := s.commit(false)
	s.mu.Unlock()
	s.notify(snap)
}

// NewProjectDoc replaces the store with a fresh empty project
func (s *ProjectService) NewProjectDoc() {
	s.mu.Lock()
	s.project = models.NewProject("")
	s.selectedSceneID = ""
	s.filePath = ""
	s.dirty = false
	snap := s.commit(false)
	s.mu.Unlock()
	s.notify(snap)
}

// CloseProject unloads the current project (back to the start state)
func (s *ProjectService) CloseProject() {
	s.mu.Lock()
	s.project = nil
	s.selectedSceneID = ""
	s.filePath = ""
	s.dirty = false
	snap := s.commit(false)
	s.mu.Unlock()
	s.notify(snap)
}

// RenameProject sets the project display name
func (s *ProjectService) RenameProject(name string) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("no project loaded", nil)
	}
	next := s.project.Clone()
	next.Name = name
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SetFilePath records the .gscript path backing the project
func (s *ProjectService) SetFilePath(path string) {
	s.mu.Lock()
	s.filePath = path
	snap := s.commit(false)
	s.mu.Unlock()
	s.notify(snap)
}

// MarkSaved records a successful save: path adoption and the dirty-flag
// clear land in one commit, so no listener ever observes a dirty project
// that already carries the freshly written path. A split there would re-arm
// the autosave timer and schedule a redundant save.
func (s *ProjectService) MarkSaved(path string) {
	s.mu.Lock()
	s.filePath = path
	s.dirty = false
	snap := s.commit(false)
	s.mu.Unlock()
	s.notify(snap)
}

// ------------------------------------------------
// Selection and view state
// ------------------------------------------------

// SelectScene sets the scene shown in the editor panel
func (s *ProjectService) SelectScene(sceneID string) {
	s.mu.Lock()
	s.selectedSceneID = sceneID
	snap := s.commit(false)
	s.mu.Unlock()
	s.notify(snap)
}

// SelectedSceneID returns the current selection, empty when none
func (s *ProjectService) SelectedSceneID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedSceneID
}

// SetActiveBeat tracks which beat holds the editor cursor (drives the
// block-type toolbar in the editor view). Empty clears it; a non-empty id
// must resolve within the selected scene.
func (s *ProjectService) SetActiveBeat(beatID string) error {
	s.mu.Lock()
	if beatID != "" {
		scene, err := s.sceneLocked(s.selectedSceneID)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		found := false
		for i := range scene.Beats {
			if scene.Beats[i].ID == beatID {
				found = true
				break
			}
		}
		if !found {
			s.mu.Unlock()
			return errors.NewNotFoundError(fmt.Sprintf("beat %s not in the selected scene", beatID), nil)
		}
	}
	s.activeBeatID = beatID
	snap := s.commit(false)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// ActiveBeatID returns the beat under the editor cursor, empty when none
func (s *ProjectService) ActiveBeatID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeBeatID
}

// SetViewMode switches the active panel layout
func (s *ProjectService) SetViewMode(mode ViewMode) {
	s.mu.Lock()
	s.viewMode = mode
	snap := s.commit(false)
	s.mu.Unlock()
	s.notify(snap)
}

// ------------------------------------------------
// Scenes
// ------------------------------------------------

// AddScene appends a scene, places its graph node to the right of the
// previous one, selects it and switches to the editor view
func (s *ProjectService) AddScene(title string) (models.Scene, error) {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return models.Scene{}, errors.NewNotFoundError("no project loaded", nil)
	}
	scene := models.NewScene(title)
	next := s.project.Clone()
	next.NodePositions[scene.ID] = models.GraphNodePosition{
		X: 100 + float64(len(next.Scenes))*180,
		Y: 100,
	}
	next.Scenes = append(next.Scenes, scene)
	s.project = next
	s.selectedSceneID = scene.ID
	s.viewMode = ViewEditor
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return scene, nil
}

// GetScene returns a copy of a scene
func (s *ProjectService) GetScene(sceneID string) (models.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.project == nil {
		return models.Scene{}, errors.NewNotFoundError("no project loaded", nil)
	}
	scene, ok := s.project.Scene(sceneID)
	if !ok {
		return models.Scene{}, errors.NewNotFoundError(fmt.Sprintf("scene %s not found", sceneID), nil)
	}
	out := *scene
	out.Beats = models.CloneBeats(scene.Beats)
	return out, nil
}

// UpdateScene patches a scene's title or chapter assignment
func (s *ProjectService) UpdateScene(sceneID string, patch ScenePatch) error {
	s.mu.Lock()
	scene, err := s.sceneLocked(sceneID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	next := s.project.Clone()
	target, _ := next.Scene(scene.ID)
	if patch.Title != nil {
		target.Title = *patch.Title
	}
	if patch.ChapterID != nil {
		target.ChapterID = *patch.ChapterID
	}
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// DeleteScene removes a scene and cascades: every edge touching the scene
// (choice-derived or free-floating alike) and its layout position go in the
// same transaction; the selection is cleared when it pointed at the scene
func (s *ProjectService) DeleteScene(sceneID string) error {
	s.mu.Lock()
	if _, err := s.sceneLocked(sceneID); err != nil {
		s.mu.Unlock()
		return err
	}
	next := s.project.Clone()
	scenes := next.Scenes[:0]
	for _, sc := range next.Scenes {
		if sc.ID != sceneID {
			scenes = append(scenes, sc)
		}
	}
	next.Scenes = scenes
	edges := next.Edges[:0]
	for _, e := range next.Edges {
		if e.SourceSceneID != sceneID && e.TargetSceneID != sceneID {
			edges = append(edges, e)
		}
	}
	next.Edges = edges
	delete(next.NodePositions, sceneID)
	s.project = next
	if s.selectedSceneID == sceneID {
		s.selectedSceneID = ""
	}
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// sceneLocked resolves a scene or returns the invariant-guard error.
// Callers hold s.mu.
func (s *ProjectService) sceneLocked(sceneID string) (*models.Scene, error) {
	if s.project == nil {
		return nil, errors.NewNotFoundError("no project loaded", nil)
	}
	scene, ok := s.project.Scene(sceneID)
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("scene %s not found", sceneID), nil)
	}
	return scene, nil
}

// ------------------------------------------------
// Beats
// ------------------------------------------------

// SetBeats replaces a scene's beat list wholesale and reconciles the story
// graph. This is the funnel for every edit coming from the rich-text view.
//
// Reconciliation treats the new beat list as authoritative for
// choice-derived edges:
//  1. collect the option ids that currently have a target,
//  2. drop edges from this scene whose backing option vanished or lost its
//     target,
//  3. per option with a target, in beat-then-option order: update the
//     existing edge when target/label/condition drifted, otherwise append a
//     new one.
//
// Free-floating edges (no option id) are never touched here.
func (s *ProjectService) SetBeats(sceneID string, beats []models.Beat) error {
	s.mu.Lock()
	snap, err := s.setBeatsLocked(sceneID, beats)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// setBeatsLocked is the write side of SetBeats, run with s.mu held. The
// composite beat and option operations stay inside the lock from their
// initial read through this call, so two racing requests can never both
// build on the same baseline and silently drop one another's edit.
func (s *ProjectService) setBeatsLocked(sceneID string, beats []models.Beat) (Snapshot, error) {
	if _, err := s.sceneLocked(sceneID); err != nil {
		return Snapshot{}, err
	}
	for i := range beats {
		if !beats[i].Type.Valid() {
			return Snapshot{}, errors.NewValidationError(
				fmt.Sprintf("beat %s has unknown type %q", beats[i].ID, beats[i].Type), nil)
		}
	}
	next := s.project.Clone()
	target, _ := next.Scene(sceneID)
	target.Beats = models.CloneBeats(beats)
	next.Edges = syncChoiceEdges(next, sceneID, target.Beats)
	s.project = next
	return s.commit(true), nil
}

// syncChoiceEdges reconciles the edge list against a scene's new beats and
// returns the next edge list. An option targeting a scene absent from the
// project (deleted after the option was authored) is treated as untargeted:
// no edge is materialized for it, and any existing edge it backed is
// dropped, so a save never carries an edge the loader would reject.
func syncChoiceEdges(project *models.Project, sceneID string, beats []models.Beat) []models.GraphEdge {
	edges := project.Edges
	optionIDsWithTarget := make(map[string]bool)
	for _, b := range beats {
		if b.Type != models.BeatChoicePoint {
			continue
		}
		for _, o := range b.Options {
			if o.TargetSceneID == "" {
				continue
			}
			if _, ok := project.Scene(o.TargetSceneID); !ok {
				continue
			}
			optionIDsWithTarget[o.ID] = true
		}
	}

	// Drop stale choice-derived edges from this scene
	kept := make([]models.GraphEdge, 0, len(edges))
	for _, e := range edges {
		if e.SourceSceneID == sceneID && e.ChoiceOptionID != "" && !optionIDsWithTarget[e.ChoiceOptionID] {
			continue
		}
		kept = append(kept, e)
	}

	// Index surviving choice-derived edges for this scene by option id
	byOption := make(map[string]int)
	for i, e := range kept {
		if e.SourceSceneID == sceneID && e.ChoiceOptionID != "" {
			byOption[e.ChoiceOptionID] = i
		}
	}

	// Update drifted edges, append edges for newly targeted options.
	// Beat order then option order decides append order.
	for _, b := range beats {
		if b.Type != models.BeatChoicePoint {
			continue
		}
		for _, o := range b.Options {
			if !optionIDsWithTarget[o.ID] {
				continue
			}
			if i, ok := byOption[o.ID]; ok {
				e := &kept[i]
				if e.TargetSceneID != o.TargetSceneID || e.Label != o.Label || e.Condition != o.Condition {
					e.TargetSceneID = o.TargetSceneID
					e.Label = o.Label
					e.Condition = o.Condition
				}
			} else {
				kept = append(kept, models.NewGraphEdge(sceneID, o.TargetSceneID, o.ID, o.Label, o.Condition))
			}
		}
	}

	return kept
}

// AddBeat inserts a beat at index, or appends when index is negative or out
// of range
func (s *ProjectService) AddBeat(sceneID string, beat models.Beat, index int) error {
	s.mu.Lock()
	scene, err := s.sceneLocked(sceneID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	beats := models.CloneBeats(scene.Beats)
	if index < 0 || index > len(beats) {
		beats = append(beats, beat)
	} else {
		beats = append(beats[:index], append([]models.Beat{beat}, beats[index:]...)...)
	}
	snap, err := s.setBeatsLocked(sceneID, beats)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// UpdateBeat patches one beat's payload
func (s *ProjectService) UpdateBeat(sceneID, beatID string, patch BeatPatch) error {
	s.mu.Lock()
	scene, err := s.sceneLocked(sceneID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	beats := models.CloneBeats(scene.Beats)
	found := false
	for i := range beats {
		if beats[i].ID != beatID {
			continue
		}
		found = true
		if patch.Type != nil {
			beats[i].Type = *patch.Type
		}
		if patch.Text != nil {
			beats[i].Text = *patch.Text
		}
		if patch.Options != nil {
			beats[i].Options = append([]models.ChoiceOption(nil), patch.Options...)
		}
		if patch.VariableID != nil {
			beats[i].VariableID = *patch.VariableID
		}
		if patch.Value != nil {
			beats[i].Value = *patch.Value
		}
	}
	if !found {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("beat %s not found in scene %s", beatID, sceneID), nil)
	}
	snap, err := s.setBeatsLocked(sceneID, beats)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// RemoveBeat deletes a beat. When the beat is a choice point, every edge
// derived from its options is deleted in the same transaction.
func (s *ProjectService) RemoveBeat(sceneID, beatID string) error {
	s.mu.Lock()
	scene, err := s.sceneLocked(sceneID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	beats := make([]models.Beat, 0, len(scene.Beats))
	found := false
	for _, b := range scene.Beats {
		if b.ID == beatID {
			found = true
			continue
		}
		beats = append(beats, b)
	}
	if !found {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("beat %s not found in scene %s", beatID, sceneID), nil)
	}
	// The sync pass drops edges whose options disappeared with the beat.
	snap, err := s.setBeatsLocked(sceneID, beats)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// ReorderBeats moves the beat at fromIndex to toIndex
func (s *ProjectService) ReorderBeats(sceneID string, fromIndex, toIndex int) error {
	s.mu.Lock()
	scene, err := s.sceneLocked(sceneID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	beats := models.CloneBeats(scene.Beats)
	if fromIndex < 0 || fromIndex >= len(beats) || toIndex < 0 || toIndex >= len(beats) {
		s.mu.Unlock()
		return errors.NewValidationError("beat index out of range", nil)
	}
	moved := beats[fromIndex]
	beats = append(beats[:fromIndex], beats[fromIndex+1:]...)
	beats = append(beats[:toIndex], append([]models.Beat{moved}, beats[toIndex:]...)...)
	snap, err := s.setBeatsLocked(sceneID, beats)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// ------------------------------------------------
// Choice options
// ------------------------------------------------

// AddChoiceOption appends an empty option to a choice-point beat
func (s *ProjectService) AddChoiceOption(sceneID, beatID string) (models.ChoiceOption, error) {
	s.mu.Lock()
	scene, err := s.sceneLocked(sceneID)
	if err != nil {
		s.mu.Unlock()
		return models.ChoiceOption{}, err
	}
	option := models.NewChoiceOption()
	beats := models.CloneBeats(scene.Beats)
	found := false
	for i := range beats {
		if beats[i].ID == beatID && beats[i].Type == models.BeatChoicePoint {
			beats[i].Options = append(beats[i].Options, option)
			found = true
		}
	}
	if !found {
		s.mu.Unlock()
		return models.ChoiceOption{}, errors.NewNotFoundError(
			fmt.Sprintf("choice-point beat %s not found in scene %s", beatID, sceneID), nil)
	}
	snap, err := s.setBeatsLocked(sceneID, beats)
	s.mu.Unlock()
	if err != nil {
		return models.ChoiceOption{}, err
	}
	s.notify(snap)
	return option, nil
}

// UpdateChoiceOption patches one option and keeps its mirrored edge in
// step: setting a target upserts the edge, clearing it deletes the edge
func (s *ProjectService) UpdateChoiceOption(sceneID, beatID, optionID string, patch ChoiceOptionPatch) error {
	s.mu.Lock()
	scene, err := s.sceneLocked(sceneID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	beats := models.CloneBeats(scene.Beats)
	found := false
	for i := range beats {
		if beats[i].ID != beatID || beats[i].Type != models.BeatChoicePoint {
			continue
		}
		for j := range beats[i].Options {
			if beats[i].Options[j].ID != optionID {
				continue
			}
			found = true
			if patch.Label != nil {
				beats[i].Options[j].Label = *patch.Label
			}
			if patch.TargetSceneID != nil {
				beats[i].Options[j].TargetSceneID = *patch.TargetSceneID
			}
			if patch.Condition != nil {
				beats[i].Options[j].Condition = *patch.Condition
			}
		}
	}
	if !found {
		s.mu.Unlock()
		return errors.NewNotFoundError(
			fmt.Sprintf("option %s not found on beat %s", optionID, beatID), nil)
	}
	// The sync pass reconciles the edge side of the patch: upsert on target
	// set, delete on target cleared.
	snap, err := s.setBeatsLocked(sceneID, beats)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// RemoveChoiceOption deletes one option and any edge derived from it
func (s *ProjectService) RemoveChoiceOption(sceneID, beatID, optionID string) error {
	s.mu.Lock()
	scene, err := s.sceneLocked(sceneID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	beats := models.CloneBeats(scene.Beats)
	found := false
	for i := range beats {
		if beats[i].ID != beatID || beats[i].Type != models.BeatChoicePoint {
			continue
		}
		options := beats[i].Options[:0]
		for _, o := range beats[i].Options {
			if o.ID == optionID {
				found = true
				continue
			}
			options = append(options, o)
		}
		beats[i].Options = options
	}
	if !found {
		s.mu.Unlock()
		return errors.NewNotFoundError(
			fmt.Sprintf("option %s not found on beat %s", optionID, beatID), nil)
	}
	snap, err := s.setBeatsLocked(sceneID, beats)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(snap)
	return nil
}

// ------------------------------------------------
// Edges
// ------------------------------------------------

// AddEdge appends an edge directly. Used for free-floating narrative links
// drawn in the graph view without a backing choice option.
func (s *ProjectService) AddEdge(edge models.GraphEdge) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("no project loaded", nil)
	}
	if _, ok := s.project.Scene(edge.SourceSceneID); !ok {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("source scene %s not found", edge.SourceSceneID), nil)
	}
	if _, ok := s.project.Scene(edge.TargetSceneID); !ok {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("target scene %s not found", edge.TargetSceneID), nil)
	}
	next := s.project.Clone()
	next.Edges = append(next.Edges, edge)
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// AddEdgeFromConnection is the graph-to-text direction of synchronization:
// a connect gesture between two scenes synthesizes a choice-point beat in
// the source scene with a single unlabeled option targeting the destination,
// plus the mirrored edge. Fails without mutating anything when either scene
// vanished under a stale graph view.
func (s *ProjectService) AddEdgeFromConnection(sourceSceneID, targetSceneID string) (models.GraphEdge, error) {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return models.GraphEdge{}, errors.NewNotFoundError("no project loaded", nil)
	}
	if _, ok := s.project.Scene(sourceSceneID); !ok {
		s.mu.Unlock()
		return models.GraphEdge{}, errors.NewNotFoundError(
			fmt.Sprintf("source scene %s not found", sourceSceneID), nil)
	}
	if _, ok := s.project.Scene(targetSceneID); !ok {
		s.mu.Unlock()
		return models.GraphEdge{}, errors.NewNotFoundError(
			fmt.Sprintf("target scene %s not found", targetSceneID), nil)
	}

	option := models.NewChoiceOption()
	option.TargetSceneID = targetSceneID
	beat := models.NewChoicePointBeat(option)
	edge := models.NewGraphEdge(sourceSceneID, targetSceneID, option.ID, "", "")

	next := s.project.Clone()
	target, _ := next.Scene(sourceSceneID)
	target.Beats = append(target.Beats, beat)
	next.Edges = append(next.Edges, edge)
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return edge, nil
}

// UpdateEdge patches an edge's target, label or condition
func (s *ProjectService) UpdateEdge(edgeID string, patch EdgePatch) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("no project loaded", nil)
	}
	next := s.project.Clone()
	found := false
	for i := range next.Edges {
		if next.Edges[i].ID != edgeID {
			continue
		}
		found = true
		if patch.TargetSceneID != nil {
			if _, ok := next.Scene(*patch.TargetSceneID); !ok {
				s.mu.Unlock()
				return errors.NewNotFoundError(
					fmt.Sprintf("target scene %s not found", *patch.TargetSceneID), nil)
			}
			next.Edges[i].TargetSceneID = *patch.TargetSceneID
		}
		if patch.Label != nil {
			next.Edges[i].Label = *patch.Label
		}
		if patch.Condition != nil {
			next.Edges[i].Condition = *patch.Condition
		}
	}
	if !found {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("edge %s not found", edgeID), nil)
	}
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// RemoveEdge deletes an edge by id
func (s *ProjectService) RemoveEdge(edgeID string) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("no project loaded", nil)
	}
	next := s.project.Clone()
	edges := next.Edges[:0]
	found := false
	for _, e := range next.Edges {
		if e.ID == edgeID {
			found = true
			continue
		}
		edges = append(edges, e)
	}
	if !found {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("edge %s not found", edgeID), nil)
	}
	next.Edges = edges
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// ------------------------------------------------
// Layout positions
// ------------------------------------------------

// SetNodePosition records a scene's graph position (node drag)
func (s *ProjectService) SetNodePosition(sceneID string, position models.GraphNodePosition) error {
	s.mu.Lock()
	if _, err := s.sceneLocked(sceneID); err != nil {
		s.mu.Unlock()
		return err
	}
	next := s.project.Clone()
	next.NodePositions[sceneID] = position
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// SetNodePositions replaces the whole layout mapping
func (s *ProjectService) SetNodePositions(positions map[string]models.GraphNodePosition) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("no project loaded", nil)
	}
	next := s.project.Clone()
	next.NodePositions = make(map[string]models.GraphNodePosition, len(positions))
	for id, pos := range positions {
		next.NodePositions[id] = pos
	}
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// ------------------------------------------------
// Variables
// ------------------------------------------------

// AddVariable appends a variable definition
func (s *ProjectService) AddVariable(variable models.Variable) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("no project loaded", nil)
	}
	next := s.project.Clone()
	next.Variables = append(next.Variables, variable)
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// UpdateVariable patches a variable definition
func (s *ProjectService) UpdateVariable(variableID string, patch VariablePatch) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("no project loaded", nil)
	}
	next := s.project.Clone()
	found := false
	for i := range next.Variables {
		if next.Variables[i].ID != variableID {
			continue
		}
		found = true
		if patch.Name != nil {
			next.Variables[i].Name = *patch.Name
		}
		if patch.Type != nil {
			next.Variables[i].Type = *patch.Type
		}
		if patch.DefaultValue != nil {
			next.Variables[i].DefaultValue = *patch.DefaultValue
		}
	}
	if !found {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("variable %s not found", variableID), nil)
	}
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}

// RemoveVariable deletes a variable definition. Set-variable beats keep
// their reference; a dangling variable id renders as unknown in the editor.
func (s *ProjectService) RemoveVariable(variableID string) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return errors.NewNotFoundError("no project loaded", nil)
	}
	next := s.project.Clone()
	variables := next.Variables[:0]
	found := false
	for _, v := range next.Variables {
		if v.ID == variableID {
			found = true
			continue
		}
		variables = append(variables, v)
	}
	if !found {
		s.mu.Unlock()
		return errors.NewNotFoundError(fmt.Sprintf("variable %s not found", variableID), nil)
	}
	next.Variables = variables
	s.project = next
	snap := s.commit(true)
	s.mu.Unlock()
	s.notify(snap)
	return nil
}
