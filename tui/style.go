package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/vnplayer/engine/dialogue"
	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
)

// Styles used throughout the TUI.
var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Bold(true)

	styleInputPrompt = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleNarration = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			Italic(true)

	styleAction = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	styleSystem = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	styleError = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	stylePlayerInput = lipgloss.NewStyle().
				Foreground(lipgloss.Color("34"))

	styleTrace = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	styleChoice = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	styleChoiceCursor = lipgloss.NewStyle().
				Foreground(lipgloss.Color("228")).
				Bold(true)

	styleChoiceDisabled = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Strikethrough(true)

	styleEnd = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	styleBookBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	styleBookTitle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)
)

// speakerPalette colours cast members in story order.
var speakerPalette = []lipgloss.Color{"220", "179", "208", "43", "141", "168"}

// unknownSpeaker is for speakers outside the cast.
var unknownSpeaker = lipgloss.Color("109")

var emotionColors = map[types.Emotion]lipgloss.Color{
	types.Happy:        "220",
	types.VeryHappy:    "226",
	types.Sad:          "69",
	types.Crying:       "69",
	types.Angry:        "196",
	types.Annoyed:      "166",
	types.Surprised:    "213",
	types.Thinking:     "110",
	types.Confident:    "214",
	types.Concern:      "180",
	types.Blushing:     "211",
	types.DeeplyInLove: "205",
	types.Disgusted:    "106",
	types.Fear:         "139",
}

// speakerStyle returns the name style for a speaker.
func speakerStyle(st *story.Story, speaker types.Speaker) lipgloss.Style {
	color := unknownSpeaker
	for i, c := range st.Cast {
		if dialogue.Speaks(c, speaker) {
			color = speakerPalette[i%len(speakerPalette)]
			break
		}
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// emotionStyle returns the style of the bracketed emotion tag.
func emotionStyle(e types.Emotion) lipgloss.Style {
	c, ok := emotionColors[e]
	if !ok {
		c = "243"
	}
	return lipgloss.NewStyle().Foreground(c)
}
