// internal/richtext/bridge.go
package richtext

import (
	"github.com/johnmartinello/gscript/internal/models"
)

// The rich-text host renders a scene as a flat document of typed block
// nodes. Each block carries the beat type and id as attributes; text beats
// put their text in inline content, choice points carry their options as an
// attribute payload instead of editable text. This file is the lossless
// codec between that document and the store's beat list.

// InlineNode is a text run inside a block
type InlineNode struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// BlockAttrs is the attribute contract every beat block must carry
type BlockAttrs struct {
	BeatType   models.BeatType       `json:"beatType"`
	BeatID     string                `json:"beatId"`
	Options    []models.ChoiceOption `json:"options"`
	VariableID string                `json:"variableId,omitempty"`
	Value      string                `json:"value,omitempty"`
}

// BlockNode is one beat block in the editor document
type BlockNode struct {
	Type    string       `json:"type"`
	Attrs   BlockAttrs   `json:"attrs"`
	Content []InlineNode `json:"content,omitempty"`
}

// Doc is the editor's document root
type Doc struct {
	Type    string      `json:"type"`
	Content []BlockNode `json:"content"`
}

// BeatsToDoc maps a beat list to an editor document. An empty beat list
// becomes a single empty action block: the editor requires at least one
// block to hold a cursor.
func BeatsToDoc(beats []models.Beat) Doc {
	if len(beats) == 0 {
		beats = []models.Beat{models.NewTextBeat(models.BeatAction, "")}
	}
	content := make([]BlockNode, len(beats))
	for i, b := range beats {
		content[i] = beatToBlock(b)
	}
	return Doc{Type: "doc", Content: content}
}

func beatToBlock(b models.Beat) BlockNode {
	switch b.Type {
	case models.BeatChoicePoint:
		options := b.Options
		if options == nil {
			options = []models.ChoiceOption{}
		}
		return BlockNode{
			Type:    "beat",
			Attrs:   BlockAttrs{BeatType: b.Type, BeatID: b.ID, Options: options},
			Content: []InlineNode{},
		}
	case models.BeatSetVariable:
		return BlockNode{
			Type:    "beat",
			Attrs:   BlockAttrs{BeatType: b.Type, BeatID: b.ID, VariableID: b.VariableID, Value: b.Value},
			Content: []InlineNode{},
		}
	case models.BeatSceneHeading, models.BeatAction, models.BeatCharacterCue,
		models.BeatDialogue, models.BeatParenthetical, models.BeatTransition:
		var content []InlineNode
		if b.Text != "" {
			content = []InlineNode{{Type: "text", Text: b.Text}}
		} else {
			content = []InlineNode{}
		}
		return BlockNode{
			Type:    "beat",
			Attrs:   BlockAttrs{BeatType: b.Type, BeatID: b.ID},
			Content: content,
		}
	}
	// Unknown tag: preserve the id, degrade to an action block
	return BlockNode{
		Type:    "beat",
		Attrs:   BlockAttrs{BeatType: models.BeatAction, BeatID: b.ID},
		Content: []InlineNode{},
	}
}

// DocToBeats is the inverse mapping. Blocks missing a type attribute fall
// back to action; blocks missing an id get a freshly generated one.
func DocToBeats(doc Doc) []models.Beat {
	beats := make([]models.Beat, 0, len(doc.Content))
	for _, node := range doc.Content {
		beats = append(beats, blockToBeat(node))
	}
	return beats
}

func blockToBeat(node BlockNode) models.Beat {
	beatType := node.Attrs.BeatType
	if !beatType.Valid() {
		beatType = models.BeatAction
	}
	id := node.Attrs.BeatID
	if id == "" {
		id = models.NewBeatID()
	}

	switch beatType {
	case models.BeatChoicePoint:
		options := node.Attrs.Options
		if options == nil {
			options = []models.ChoiceOption{}
		}
		return models.Beat{ID: id, Type: beatType, Options: options}
	case models.BeatSetVariable:
		return models.Beat{ID: id, Type: beatType, VariableID: node.Attrs.VariableID, Value: node.Attrs.Value}
	default:
		text := ""
		for _, inline := range node.Content {
			text += inline.Text
		}
		return models.Beat{ID: id, Type: beatType, Text: text}
	}
}

// BeatsEqual compares two beat lists field by field. The host emits content
// notifications for keystrokes and programmatic replacement alike, so this
// check is what keeps a programmatic render from echoing back into the store
// as a spurious write.
func BeatsEqual(a, b []models.Beat) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !beatEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func beatEqual(a, b models.Beat) bool {
	if a.ID != b.ID || a.Type != b.Type {
		return false
	}
	switch a.Type {
	case models.BeatChoicePoint:
		if len(a.Options) != len(b.Options) {
			return false
		}
		for i := range a.Options {
			if a.Options[i] != b.Options[i] {
				return false
			}
		}
		return true
	case models.BeatSetVariable:
		return a.VariableID == b.VariableID && a.Value == b.Value
	case models.BeatSceneHeading, models.BeatAction, models.BeatCharacterCue,
		models.BeatDialogue, models.BeatParenthetical, models.BeatTransition:
		return a.Text == b.Text
	}
	return a.Text == b.Text
}
