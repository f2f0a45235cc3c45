package router

import (
	"reflect"
	"strings"
	"testing"

	"github.com/nathoo/vnplayer/engine/markup"
	"github.com/nathoo/vnplayer/engine/state"
	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
)

const freshHub = `<character name="NARRATOR">
  <say>Who do you sit with?</say>
</character>

<choices>
  <choice id="talk_lumine">Talk to Lumine about journeying between worlds</choice>
  <choice id="talk_zhongli">Ask Zhongli about the contracts and destiny</choice>
  <choice id="talk_tartaglia">Discuss the harbor's restlessness with Tartaglia</choice>
  <choice id="talk_venti">Listen to Venti's stories about ancient seals</choice>
  <choice id="end_story">End the conversation</choice>
</choices>`

func newRouter() (*Router, *story.Story) {
	st := story.Default()
	return New(st), st
}

func parseChoices(t *testing.T, fragment string) []types.Choice {
	t.Helper()
	p := markup.New(markup.WithoutFallback())
	p.ProcessChunk(fragment)
	return p.Choices()
}

func TestClassify(t *testing.T) {
	r, _ := newRouter()
	tests := []struct {
		id   string
		want Move
	}{
		{"talk_lumine", Move{Kind: MoveTalk, Character: "lumine"}},
		{"lumine_l1_honest", Move{Kind: MoveStage1, Character: "lumine"}},
		{"venti_l2_more_verse", Move{Kind: MoveStage2, Character: "venti"}},
		{"hub_return_after_tartaglia", Move{Kind: MoveReturn, Character: "tartaglia"}},
		{"hub_choose_other", Move{Kind: MoveHub}},
		{"end_story", Move{Kind: MoveEnd}},
		{"completed_zhongli", Move{Kind: MoveUnknown}},
		{"talk_nobody", Move{Kind: MoveUnknown}},
		{"lumine_l3_x", Move{Kind: MoveUnknown}},
		{"", Move{Kind: MoveUnknown}},
	}
	for _, tt := range tests {
		if got := r.Classify(tt.id); got != tt.want {
			t.Errorf("Classify(%q) = %+v, want %+v", tt.id, got, tt.want)
		}
	}
}

func TestClassify_LongestCharacterWins(t *testing.T) {
	st := &story.Story{Cast: []story.Character{{ID: "a"}, {ID: "a_l1"}}}
	r := New(st)
	if got := r.Classify("a_l1_l1_x"); got.Character != "a_l1" {
		t.Errorf("Classify character = %q, want a_l1", got.Character)
	}
	if got := r.Classify("a_l1_x"); got != (Move{Kind: MoveStage1, Character: "a"}) {
		t.Errorf("Classify = %+v", got)
	}
}

func TestRoute_TalkUsesProgress(t *testing.T) {
	r, st := newRouter()
	lumine, _ := st.Character("lumine")

	tests := []struct {
		stage types.Stage
		want  string
		key   story.Key
	}{
		{types.StageUnset, lumine.Fragments[types.StageL1], "LUMINE_L1"},
		{types.StageL1, lumine.Fragments[types.StageL1], "LUMINE_L1"},
		{types.StageL2, lumine.Fragments[types.StageL2], "LUMINE_L2"},
		{types.StageClose, lumine.Fragments[types.StageClose], "LUMINE_CLOSE"},
	}
	for _, tt := range tests {
		p := state.New()
		p.Advance("lumine", tt.stage)
		res := r.Route("talk_lumine", p)
		if res.Fragment != tt.want {
			t.Errorf("stage %v: wrong fragment %q", tt.stage, res.Fragment[:40])
		}
		if res.Key != tt.key {
			t.Errorf("stage %v: Key = %q, want %q", tt.stage, res.Key, tt.key)
		}
		if !reflect.DeepEqual(res.Progress, p) {
			t.Errorf("stage %v: talk changed progress to %+v", tt.stage, res.Progress)
		}
	}
}

func TestRoute_TalkLumineAtL2FromWire(t *testing.T) {
	r, st := newRouter()
	p := state.FromWire(state.Wire{CharacterProgress: map[string]string{"lumine": "L2"}})

	res := r.Route("talk_lumine", p)
	lumine, _ := st.Character("lumine")
	if res.Fragment != lumine.Fragments[types.StageL2] {
		t.Errorf("Fragment = %q, want lumine L2", res.Fragment)
	}
	if !strings.Contains(res.Fragment, "Searching is heavy... but lighter when shared.") {
		t.Error("fragment is not the stage-2 text")
	}
}

func TestRoute_StageChoicesAdvance(t *testing.T) {
	r, _ := newRouter()
	p := state.New()

	res := r.Route("zhongli_l1_etiquette", p)
	if res.Key != "ZHONGLI_L2" {
		t.Errorf("Key = %q, want ZHONGLI_L2", res.Key)
	}
	if got := res.Progress.Stage("zhongli"); got != types.StageL2 {
		t.Errorf("Stage = %v, want L2", got)
	}
	if len(res.Events) != 1 || res.Events[0].Type != types.EventStageAdvanced {
		t.Errorf("Events = %+v", res.Events)
	}
	if p.Stage("zhongli") != types.StageUnset {
		t.Error("Route mutated its input progress")
	}

	res = r.Route("zhongli_l2_seals", res.Progress)
	if res.Key != "ZHONGLI_CLOSE" {
		t.Errorf("Key = %q, want ZHONGLI_CLOSE", res.Key)
	}
	if got := res.Progress.Stage("zhongli"); got != types.StageClose {
		t.Errorf("Stage = %v, want CLOSE", got)
	}

	// A late stage-1 answer does not regress the thread.
	res = r.Route("zhongli_l1_casual", res.Progress)
	if got := res.Progress.Stage("zhongli"); got != types.StageClose {
		t.Errorf("Stage after late stage-1 answer = %v, want CLOSE", got)
	}
	if res.Key != "ZHONGLI_L2" {
		t.Errorf("Key = %q, want ZHONGLI_L2", res.Key)
	}
	if len(res.Events) != 0 {
		t.Errorf("Events = %+v, want none", res.Events)
	}
}

func TestRoute_ReturnCompletesOnce(t *testing.T) {
	r, _ := newRouter()

	res := r.Route("hub_return_after_zhongli", state.New())
	if res.Key != story.KeyHub {
		t.Errorf("Key = %q, want HUB", res.Key)
	}
	if !reflect.DeepEqual(res.Progress.Completed, []string{"zhongli"}) {
		t.Errorf("Completed = %v, want [zhongli]", res.Progress.Completed)
	}
	if len(res.Events) != 1 || res.Events[0].Type != types.EventThreadCompleted {
		t.Errorf("Events = %+v", res.Events)
	}

	choices := parseChoices(t, res.Fragment)
	want := types.Choice{
		ID:       "completed_zhongli",
		Text:     "Ask Zhongli about the contracts and destiny ✅ (Completed)",
		Disabled: true,
	}
	if len(choices) != 5 || choices[1] != want {
		t.Errorf("hub choices = %+v", choices)
	}
	for _, c := range choices {
		if c.ID == "talk_zhongli" {
			t.Error("hub still offers talk_zhongli")
		}
	}

	res = r.Route("hub_return_after_zhongli", res.Progress)
	if !reflect.DeepEqual(res.Progress.Completed, []string{"zhongli"}) {
		t.Errorf("Completed after second return = %v", res.Progress.Completed)
	}
	if len(res.Events) != 0 {
		t.Errorf("second return Events = %+v, want none", res.Events)
	}
}

func TestRoute_UnknownFallsBackToHub(t *testing.T) {
	r, _ := newRouter()
	for _, id := range []string{"", "no_such_choice", "completed_lumine", "TALK_LUMINE", "approach_lumine"} {
		res := r.Route(id, state.Progress{})
		if res.Fragment != freshHub {
			t.Errorf("Route(%q) fragment = %q, want hub", id, res.Fragment)
		}
		if res.Terminal {
			t.Errorf("Route(%q) is terminal", id)
		}
		if len(res.Events) != 1 || res.Events[0].Type != types.EventUnknownChoice {
			t.Errorf("Route(%q) Events = %+v", id, res.Events)
		}
	}
}

func TestRoute_ChooseOtherKeepsProgress(t *testing.T) {
	r, _ := newRouter()
	p := state.New()
	p.Advance("venti", types.StageL2)
	p.Complete("lumine")

	res := r.Route(ChooseOther, p)
	if !reflect.DeepEqual(res.Progress, p) {
		t.Errorf("Progress = %+v, want %+v", res.Progress, p)
	}
	choices := parseChoices(t, res.Fragment)
	if choices[0].ID != "completed_lumine" || !choices[0].Disabled {
		t.Errorf("first hub entry = %+v", choices[0])
	}
	if choices[4].ID != EndStory {
		t.Errorf("last hub entry = %+v", choices[4])
	}
}

func TestRoute_End(t *testing.T) {
	r, st := newRouter()
	res := r.Route(EndStory, state.New())
	if !res.Terminal || res.Fragment != st.End || res.Key != story.KeyEnd {
		t.Errorf("Route(end_story) = %+v", res)
	}
	if len(parseChoices(t, res.Fragment)) != 0 {
		t.Error("epilogue offers choices")
	}
}

func TestHub_FreshMatchesAuthoredLayout(t *testing.T) {
	r, _ := newRouter()
	if got := r.Hub(state.New()); got != freshHub {
		t.Errorf("Hub() =\n%s\nwant\n%s", got, freshHub)
	}
}

func TestHub_AllCompleted(t *testing.T) {
	r, st := newRouter()
	p := state.New()
	for _, id := range st.CastIDs() {
		p.Complete(id)
	}
	choices := parseChoices(t, r.Hub(p))
	if len(choices) != 5 {
		t.Fatalf("len(choices) = %d, want 5", len(choices))
	}
	for i, id := range st.CastIDs() {
		if choices[i].ID != CompletedID(id) || !choices[i].Disabled {
			t.Errorf("entry %d = %+v", i, choices[i])
		}
	}
	if choices[4].ID != EndStory || choices[4].Disabled {
		t.Errorf("end entry = %+v", choices[4])
	}
}

// Every choice offered by any fragment routes somewhere known.
func TestRoute_AllOfferedChoicesResolve(t *testing.T) {
	r, st := newRouter()
	for _, c := range st.Cast {
		for stage, frag := range c.Fragments {
			for _, ch := range parseChoices(t, frag) {
				if m := r.Classify(ch.ID); m.Kind == MoveUnknown {
					t.Errorf("%s %v offers unroutable choice %q", c.ID, stage, ch.ID)
				}
			}
		}
	}
}
