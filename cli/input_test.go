package cli

import (
	"testing"

	"github.com/nathoo/vnplayer/types"
)

func TestParseInput(t *testing.T) {
	choices := []types.Choice{
		{ID: "talk_venti", Text: "Listen to Venti"},
		{ID: "completed_zhongli", Text: "Zhongli ✅ (Completed)", Disabled: true},
		{ID: "end_story", Text: "End the story"},
	}
	tests := []struct {
		line string
		want Input
	}{
		{"", Input{Action: ActNone}},
		{"   ", Input{Action: ActNone}},
		{"# a comment", Input{Action: ActNone}},
		{"1", Input{Action: ActChoose, ChoiceID: "talk_venti"}},
		{" 3 ", Input{Action: ActChoose, ChoiceID: "end_story"}},
		{"2", Input{Action: ActDisabled, ChoiceID: "completed_zhongli"}},
		{"0", Input{Action: ActUnknown}},
		{"4", Input{Action: ActUnknown}},
		{"-1", Input{Action: ActUnknown}},
		{"talk_venti", Input{Action: ActChoose, ChoiceID: "talk_venti"}},
		{"TALK_VENTI", Input{Action: ActChoose, ChoiceID: "talk_venti"}},
		{"end the story", Input{Action: ActChoose, ChoiceID: "end_story"}},
		{"completed_zhongli", Input{Action: ActDisabled, ChoiceID: "completed_zhongli"}},
		{"dance", Input{Action: ActUnknown}},
		{"q", Input{Action: ActMeta, Meta: "/quit"}},
		{"EXIT", Input{Action: ActMeta, Meta: "/quit"}},
		{"?", Input{Action: ActMeta, Meta: "/help"}},
		{"b", Input{Action: ActMeta, Meta: "/book"}},
		{"q now", Input{Action: ActUnknown}},
		{"/save slot 1", Input{Action: ActMeta, Meta: "/save", Arg: "slot 1"}},
		{"/LOAD x", Input{Action: ActMeta, Meta: "/load", Arg: "x"}},
		{"/trace", Input{Action: ActMeta, Meta: "/trace"}},
	}
	for _, tt := range tests {
		if got := ParseInput(tt.line, choices); got != tt.want {
			t.Errorf("ParseInput(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestParseInput_NoChoices(t *testing.T) {
	if got := ParseInput("1", nil); got.Action != ActUnknown {
		t.Errorf("ParseInput(1, nil) = %+v, want ActUnknown", got)
	}
}
