// internal/richtext/bridge_test.go
package richtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnmartinello/gscript/internal/models"
)

func TestBeatsToDocDocToBeatsRoundTrip(t *testing.T) {
	option := models.NewChoiceOption()
	option.Label = "take the stairs"
	option.TargetSceneID = "scene-2"
	option.Condition = "torchLit == true"

	beats := []models.Beat{
		models.NewTextBeat(models.BeatSceneHeading, "INT. CELLAR - NIGHT"),
		models.NewTextBeat(models.BeatAction, "Water drips somewhere in the dark."),
		models.NewTextBeat(models.BeatCharacterCue, "MIRA"),
		models.NewTextBeat(models.BeatParenthetical, "(whispering)"),
		models.NewTextBeat(models.BeatDialogue, "Did you hear that?"),
		models.NewChoicePointBeat(option),
		models.NewSetVariableBeat("var-1", "true"),
		models.NewTextBeat(models.BeatTransition, "CUT TO:"),
	}

	got := DocToBeats(BeatsToDoc(beats))
	require.Len(t, got, len(beats))
	assert.True(t, BeatsEqual(beats, got))
}

func TestBeatsToDocEmptyListYieldsCursorBlock(t *testing.T) {
	doc := BeatsToDoc(nil)
	require.Len(t, doc.Content, 1)
	assert.Equal(t, "doc", doc.Type)
	assert.Equal(t, models.BeatAction, doc.Content[0].Attrs.BeatType)
	assert.NotEmpty(t, doc.Content[0].Attrs.BeatID)
	assert.Empty(t, doc.Content[0].Content)
}

func TestDocToBeatsRepairsMalformedBlocks(t *testing.T) {
	doc := Doc{Type: "doc", Content: []BlockNode{
		{Type: "beat", Attrs: BlockAttrs{BeatType: "not-a-type", BeatID: "keep-me"},
			Content: []InlineNode{{Type: "text", Text: "hello"}}},
		{Type: "beat", Attrs: BlockAttrs{BeatType: models.BeatDialogue},
			Content: []InlineNode{{Type: "text", Text: "no id"}}},
	}}

	beats := DocToBeats(doc)
	require.Len(t, beats, 2)
	assert.Equal(t, models.BeatAction, beats[0].Type)
	assert.Equal(t, "keep-me", beats[0].ID)
	assert.Equal(t, "hello", beats[0].Text)
	assert.NotEmpty(t, beats[1].ID)
	assert.Equal(t, "no id", beats[1].Text)
}

func TestDocToBeatsJoinsInlineRuns(t *testing.T) {
	doc := Doc{Type: "doc", Content: []BlockNode{
		{Type: "beat", Attrs: BlockAttrs{BeatType: models.BeatAction, BeatID: "b1"},
			Content: []InlineNode{
				{Type: "text", Text: "split "},
				{Type: "text", Text: "across "},
				{Type: "text", Text: "runs"},
			}},
	}}
	beats := DocToBeats(doc)
	require.Len(t, beats, 1)
	assert.Equal(t, "split across runs", beats[0].Text)
}

func TestBeatsEqual(t *testing.T) {
	option := models.NewChoiceOption()
	option.TargetSceneID = "t"
	a := []models.Beat{
		models.NewTextBeat(models.BeatAction, "same"),
		models.NewChoicePointBeat(option),
	}
	b := models.CloneBeats(a)
	assert.True(t, BeatsEqual(a, b))

	b[0].Text = "different"
	assert.False(t, BeatsEqual(a, b))

	b = models.CloneBeats(a)
	b[1].Options[0].TargetSceneID = "elsewhere"
	assert.False(t, BeatsEqual(a, b), "option targets participate in equality")

	b = models.CloneBeats(a)
	b[1].Options[0].Condition = "x > 1"
	assert.False(t, BeatsEqual(a, b), "option conditions participate in equality")

	assert.False(t, BeatsEqual(a, a[:1]))
}
