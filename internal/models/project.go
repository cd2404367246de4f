// internal/models/project.go
package models

import (
	"github.com/google/uuid"
)

// GScriptVersion is the schema version written into every saved project
const GScriptVersion = 1

// VariableType tags the value domain of a story variable
type VariableType string

const (
	VariableBoolean VariableType = "boolean"
	VariableInteger VariableType = "integer"
	VariableString  VariableType = "string"
)

// Scene is one unit of the script: a titled, ordered list of beats.
// Scenes are owned by exactly one Project.
type Scene struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Beats     []Beat `json:"beats"`
	ChapterID string `json:"chapter_id,omitempty"`
}

// GraphEdge connects two scenes in the story graph. ChoiceOptionID is set
// when the edge mirrors a choice option in the source scene (those edges are
// kept in lockstep with the option by the store); it is empty for
// free-floating edges drawn directly in the graph view.
type GraphEdge struct {
	ID             string `json:"id"`
	SourceSceneID  string `json:"source_scene_id"`
	TargetSceneID  string `json:"target_scene_id"`
	ChoiceOptionID string `json:"choice_option_id,omitempty"`
	Label          string `json:"label,omitempty"`
	Condition      string `json:"condition,omitempty"`
}

// Variable is a project-wide story variable definition
type Variable struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         VariableType `json:"type"`
	DefaultValue string       `json:"default_value"`
}

// ChapterGroup is a purely organizational grouping of scenes
type ChapterGroup struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	SceneIDs []string `json:"scene_ids"`
}

// GraphNodePosition is a scene's 2D layout position in the graph view
type GraphNodePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Project is the root aggregate persisted as a .gscript file. Scene order is
// display order only. Every edge's source and target must reference scenes
// present in Scenes; the store's cascade and sync logic maintain that.
type Project struct {
	ID            string                       `json:"id"`
	Name          string                       `json:"name"`
	Scenes        []Scene                      `json:"scenes"`
	Edges         []GraphEdge                  `json:"edges"`
	Variables     []Variable                   `json:"variables"`
	Chapters      []ChapterGroup               `json:"chapters"`
	NodePositions map[string]GraphNodePosition `json:"node_positions"`
	Version       int                          `json:"version"`
}

// NewProject creates an empty project
func NewProject(name string) *Project {
	if name == "" {
		name = "Untitled"
	}
	return &Project{
		ID:            uuid.NewString(),
		Name:          name,
		Scenes:        []Scene{},
		Edges:         []GraphEdge{},
		Variables:     []Variable{},
		Chapters:      []ChapterGroup{},
		NodePositions: map[string]GraphNodePosition{},
		Version:       GScriptVersion,
	}
}

// NewScene creates an empty scene
func NewScene(title string) Scene {
	if title == "" {
		title = "Untitled Scene"
	}
	return Scene{
		ID:    uuid.NewString(),
		Title: title,
		Beats: []Beat{},
	}
}

// NewGraphEdge creates an edge between two scenes. choiceOptionID may be
// empty for a free-floating edge.
func NewGraphEdge(sourceSceneID, targetSceneID, choiceOptionID, label, condition string) GraphEdge {
	return GraphEdge{
		ID:             uuid.NewString(),
		SourceSceneID:  sourceSceneID,
		TargetSceneID:  targetSceneID,
		ChoiceOptionID: choiceOptionID,
		Label:          label,
		Condition:      condition,
	}
}

// NewVariable creates a boolean variable defaulting to false
func NewVariable(name string) Variable {
	if name == "" {
		name = "flag"
	}
	return Variable{
		ID:           uuid.NewString(),
		Name:         name,
		Type:         VariableBoolean,
		DefaultValue: "false",
	}
}

// Scene looks up a scene by id
func (p *Project) Scene(sceneID string) (*Scene, bool) {
	for i := range p.Scenes {
		if p.Scenes[i].ID == sceneID {
			return &p.Scenes[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the project. The store hands snapshots to
// readers and listeners, so shared mutable state must never leak out.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := &Project{
		ID:            p.ID,
		Name:          p.Name,
		Scenes:        make([]Scene, len(p.Scenes)),
		Edges:         append([]GraphEdge{}, p.Edges...),
		Variables:     append([]Variable{}, p.Variables...),
		Chapters:      make([]ChapterGroup, len(p.Chapters)),
		NodePositions: make(map[string]GraphNodePosition, len(p.NodePositions)),
		Version:       p.Version,
	}
	for i, s := range p.Scenes {
		out.Scenes[i] = s
		out.Scenes[i].Beats = CloneBeats(s.Beats)
	}
	for i, c := range p.Chapters {
		out.Chapters[i] = c
		out.Chapters[i].SceneIDs = append([]string(nil), c.SceneIDs...)
	}
	for id, pos := range p.NodePositions {
		out.NodePositions[id] = pos
	}
	return out
}
