package dialogue

import (
	"reflect"
	"testing"

	"github.com/nathoo/vnplayer/engine/state"
	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
)

func testTranscript() []types.Segment {
	return []types.Segment{
		{Speaker: types.Narrator, Emotion: types.Neutral, Text: "Evening falls."},
		{Speaker: "VENTI", Emotion: types.Happy, Text: "(A playful arpeggio)"},
		{Speaker: "VENTI", Emotion: types.Happy, Text: "Ehe!"},
		{Speaker: "LUMINE", Emotion: types.Concern, Text: "You look tired."},
		{Speaker: "VENTI", Emotion: types.Thinking, Text: "The winds whisper."},
	}
}

func TestBook_OnlyEncounteredInCastOrder(t *testing.T) {
	st := story.Default()
	p := state.New()
	p.Advance("venti", types.StageL2)
	p.Complete("lumine")

	book := Book(st, p, testTranscript())
	if len(book) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(book))
	}
	if book[0].ID != "lumine" || book[1].ID != "venti" {
		t.Errorf("order = %s, %s; want lumine, venti", book[0].ID, book[1].ID)
	}
	if !book[0].Completed || book[0].Title != "Traveler from Another World" {
		t.Errorf("lumine entry = %+v", book[0])
	}
	if book[1].Stage != types.StageL2 || len(book[1].Lines) != 3 {
		t.Errorf("venti entry = %+v", book[1])
	}
}

func TestQuotes_SkipsActions(t *testing.T) {
	st := story.Default()
	book := Book(st, state.New(), testTranscript())
	got := book[1].Quotes()
	want := []string{"Ehe!", "The winds whisper."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Quotes() = %v, want %v", got, want)
	}
}

func TestBook_Empty(t *testing.T) {
	if got := Book(story.Default(), state.New(), nil); len(got) != 0 {
		t.Errorf("expected empty book, got %d entries", len(got))
	}
}

func TestLookup(t *testing.T) {
	st := story.Default()
	c, ok := Lookup(st, "TARTAGLIA")
	if !ok || c.ID != "tartaglia" {
		t.Errorf("Lookup(TARTAGLIA) = %v, %v", c, ok)
	}
	if _, ok := Lookup(st, types.Narrator); ok {
		t.Error("Lookup(NARRATOR) found a cast member")
	}
}

func TestDisplayName(t *testing.T) {
	st := story.Default()
	tests := []struct {
		speaker types.Speaker
		want    string
	}{
		{"LUMINE", "Lumine"},
		{"zhongli", "Zhongli"},
		{"OLD SAILOR", "Old Sailor"},
		{types.Narrator, ""},
	}
	for _, tt := range tests {
		if got := DisplayName(st, tt.speaker); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.speaker, got, tt.want)
		}
	}
}
