// Package types defines the shared data structures for the vnplayer engine.
// This package contains only type definitions and their string forms.
package types

// Speaker identifies who a segment belongs to. Character speakers are the
// upper-cased character name from the markup.
type Speaker string

// Narrator is the speaker of narration lines.
const Narrator Speaker = "NARRATOR"

// Emotion is one of a closed set of canonical expression tags.
type Emotion string

const (
	Neutral      Emotion = "neutral"
	Happy        Emotion = "happy"
	Sad          Emotion = "sad"
	Angry        Emotion = "angry"
	Surprised    Emotion = "surprised"
	Thinking     Emotion = "thinking"
	Confident    Emotion = "confident"
	Concern      Emotion = "concern"
	Annoyed      Emotion = "annoyed"
	Blushing     Emotion = "blushing"
	Crying       Emotion = "crying"
	Disgusted    Emotion = "disgusted"
	Fear         Emotion = "fear"
	VeryHappy    Emotion = "very happy"
	DeeplyInLove Emotion = "deeply in love"
)

// Segment is one atomic unit of displayed dialogue, action or narration.
type Segment struct {
	Speaker Speaker `json:"speaker"`
	Emotion Emotion `json:"emotion"`
	Text    string  `json:"text"`
}

// Choice is a selectable option at the end of a fragment.
type Choice struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Stage is how far a character's thread has progressed.
// Stages only ever advance: Unset < L1 < L2 < Close.
type Stage int

const (
	StageUnset Stage = iota
	StageL1
	StageL2
	StageClose
)

// String returns the wire form of the stage ("" for unset).
func (s Stage) String() string {
	switch s {
	case StageL1:
		return "L1"
	case StageL2:
		return "L2"
	case StageClose:
		return "CLOSE"
	default:
		return ""
	}
}

// ParseStage converts a wire form into a Stage. Unknown values are Unset.
func ParseStage(s string) Stage {
	switch s {
	case "L1":
		return StageL1
	case "L2":
		return StageL2
	case "CLOSE":
		return StageClose
	default:
		return StageUnset
	}
}

// Event is emitted by the router when session progress changes.
type Event struct {
	Type string
	Data map[string]any
}

// Event types.
const (
	EventStageAdvanced   = "stage_advanced"
	EventThreadCompleted = "thread_completed"
	EventStoryEnded      = "story_ended"
	EventUnknownChoice   = "unknown_choice"
)
