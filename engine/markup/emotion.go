package markup

import (
	"strings"

	"github.com/nathoo/vnplayer/types"
)

// emotionTable maps lower-cased expression labels onto canonical emotions.
var emotionTable = map[string]types.Emotion{
	// Canonical names.
	"neutral":        types.Neutral,
	"happy":          types.Happy,
	"sad":            types.Sad,
	"angry":          types.Angry,
	"surprised":      types.Surprised,
	"thinking":       types.Thinking,
	"confident":      types.Confident,
	"concern":        types.Concern,
	"annoyed":        types.Annoyed,
	"blushing":       types.Blushing,
	"crying":         types.Crying,
	"disgusted":      types.Disgusted,
	"fear":           types.Fear,
	"very happy":     types.VeryHappy,
	"deeply in love": types.DeeplyInLove,

	// Aliases seen in hand-written content.
	"concerned":  types.Concern,
	"worried":    types.Concern,
	"scared":     types.Fear,
	"afraid":     types.Fear,
	"surprise":   types.Surprised,
	"thoughtful": types.Thinking,
	"smiling":    types.Happy,
	"joyful":     types.Happy,
}

// NormalizeEmotion maps a free-text expression label onto the closed
// emotion set. Unknown or empty labels become Neutral.
func NormalizeEmotion(label string) types.Emotion {
	key := strings.Join(strings.Fields(strings.ToLower(label)), " ")
	if e, ok := emotionTable[key]; ok {
		return e
	}
	return types.Neutral
}
