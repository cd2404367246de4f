// internal/models/project_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCloneIsDeep(t *testing.T) {
	project := NewProject("Original")
	scene := NewScene("Scene")
	option := NewChoiceOption()
	option.Label = "left"
	scene.Beats = []Beat{NewChoicePointBeat(option)}
	project.Scenes = []Scene{scene}
	project.Edges = []GraphEdge{NewGraphEdge(scene.ID, scene.ID, option.ID, "left", "")}
	project.Variables = []Variable{NewVariable("hasKey")}
	project.NodePositions[scene.ID] = GraphNodePosition{X: 1, Y: 2}

	clone := project.Clone()
	clone.Name = "Changed"
	clone.Scenes[0].Title = "Changed"
	clone.Scenes[0].Beats[0].Options[0].Label = "right"
	clone.Edges[0].Label = "right"
	clone.Variables[0].Name = "other"
	clone.NodePositions[scene.ID] = GraphNodePosition{X: 9, Y: 9}

	assert.Equal(t, "Original", project.Name)
	assert.Equal(t, "Scene", project.Scenes[0].Title)
	assert.Equal(t, "left", project.Scenes[0].Beats[0].Options[0].Label)
	assert.Equal(t, "left", project.Edges[0].Label)
	assert.Equal(t, "hasKey", project.Variables[0].Name)
	assert.Equal(t, GraphNodePosition{X: 1, Y: 2}, project.NodePositions[scene.ID])
}

func TestProjectSceneLookup(t *testing.T) {
	project := NewProject("P")
	scene := NewScene("S")
	project.Scenes = []Scene{scene}

	found, ok := project.Scene(scene.ID)
	require.True(t, ok)
	assert.Equal(t, scene.ID, found.ID)

	_, ok = project.Scene("missing")
	assert.False(t, ok)
}

func TestBeatTypeValid(t *testing.T) {
	for _, bt := range []BeatType{
		BeatSceneHeading, BeatAction, BeatCharacterCue, BeatDialogue,
		BeatParenthetical, BeatTransition, BeatChoicePoint, BeatSetVariable,
	} {
		assert.True(t, bt.Valid(), string(bt))
	}
	assert.False(t, BeatType("explosion").Valid())
	assert.False(t, BeatType("").Valid())
}

func TestIsTextBeat(t *testing.T) {
	assert.True(t, BeatDialogue.IsTextBeat())
	assert.True(t, BeatTransition.IsTextBeat())
	assert.False(t, BeatChoicePoint.IsTextBeat())
	assert.False(t, BeatSetVariable.IsTextBeat())
}

func TestCloneBeatsIsolatesOptions(t *testing.T) {
	option := NewChoiceOption()
	original := []Beat{NewChoicePointBeat(option)}

	clone := CloneBeats(original)
	clone[0].Options[0].Label = "tampered"

	assert.Empty(t, original[0].Options[0].Label)
}
