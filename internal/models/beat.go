// internal/models/beat.go
package models

import (
	"github.com/google/uuid"
)

// BeatType tags the kind of content a beat carries
type BeatType string

const (
	// BeatSceneHeading is an INT./EXT. slugline
	BeatSceneHeading BeatType = "scene-heading"
	// BeatAction is descriptive action text
	BeatAction BeatType = "action"
	// BeatCharacterCue names the character about to speak
	BeatCharacterCue BeatType = "character-cue"
	// BeatDialogue is a spoken line
	BeatDialogue BeatType = "dialogue"
	// BeatParenthetical is an actor direction inside dialogue
	BeatParenthetical BeatType = "parenthetical"
	// BeatTransition is a CUT TO: style transition
	BeatTransition BeatType = "transition"
	// BeatChoicePoint branches the script through player choices
	BeatChoicePoint BeatType = "choice-point"
	// BeatSetVariable assigns a story variable when reached
	BeatSetVariable BeatType = "set-variable"
)

// ChoiceOption is one selectable branch of a choice-point beat.
// TargetSceneID is empty while the author has not picked a destination;
// the option id doubles as the join key to at most one GraphEdge.
type ChoiceOption struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	TargetSceneID string `json:"target_scene_id,omitempty"`
	Condition     string `json:"condition,omitempty"` // opaque expression text, e.g. "hasKey == true"
}

// Beat is one typed block of a scene's script. The Type tag decides which
// payload fields are meaningful: text beats use Text, choice points use
// Options, set-variable beats use VariableID and Value. Order within a
// scene's beat list is the reading order of the script.
type Beat struct {
	ID         string         `json:"id"`
	Type       BeatType       `json:"type"`
	Text       string         `json:"text,omitempty"`
	Options    []ChoiceOption `json:"options,omitempty"`
	VariableID string         `json:"variable_id,omitempty"`
	Value      string         `json:"value,omitempty"`
}

// IsTextBeat reports whether the beat type carries plain text content
func (t BeatType) IsTextBeat() bool {
	switch t {
	case BeatSceneHeading, BeatAction, BeatCharacterCue, BeatDialogue, BeatParenthetical, BeatTransition:
		return true
	case BeatChoicePoint, BeatSetVariable:
		return false
	}
	return false
}

// Valid reports whether t is one of the eight known beat types
func (t BeatType) Valid() bool {
	switch t {
	case BeatSceneHeading, BeatAction, BeatCharacterCue, BeatDialogue,
		BeatParenthetical, BeatTransition, BeatChoicePoint, BeatSetVariable:
		return true
	}
	return false
}

// NewBeatID generates a fresh beat identifier
func NewBeatID() string {
	return uuid.NewString()
}

// NewTextBeat creates a text-carrying beat of the given type
func NewTextBeat(beatType BeatType, text string) Beat {
	return Beat{
		ID:   NewBeatID(),
		Type: beatType,
		Text: text,
	}
}

// NewChoicePointBeat creates a choice-point beat with the given options
func NewChoicePointBeat(options ...ChoiceOption) Beat {
	if options == nil {
		options = []ChoiceOption{}
	}
	return Beat{
		ID:      NewBeatID(),
		Type:    BeatChoicePoint,
		Options: options,
	}
}

// NewSetVariableBeat creates a set-variable beat
func NewSetVariableBeat(variableID, value string) Beat {
	return Beat{
		ID:         NewBeatID(),
		Type:       BeatSetVariable,
		VariableID: variableID,
		Value:      value,
	}
}

// NewChoiceOption creates an empty option with no target yet
func NewChoiceOption() ChoiceOption {
	return ChoiceOption{
		ID: uuid.NewString(),
	}
}

// CloneBeats returns a deep copy of a beat list. Choice options are the only
// nested mutable state, so copying the option slices is enough.
func CloneBeats(beats []Beat) []Beat {
	out := make([]Beat, len(beats))
	for i, b := range beats {
		out[i] = b
		if b.Options != nil {
			out[i].Options = append([]ChoiceOption(nil), b.Options...)
		}
	}
	return out
}
