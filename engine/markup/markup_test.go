package markup

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/nathoo/vnplayer/types"
)

const lumineL1 = `<character name="Lumine">
  <action expression="Concern">Stepping closer, studying you carefully</action>
  <say>You look tired. How long have you been traveling?</say>
  <action expression="Neutral">Her voice softening with understanding</action>
  <say>I know what it's like to search for something... or someone.</say>
</character>

<choices>
  <choice id="lumine_l1_honest">Be honest about your search</choice>
  <choice id="lumine_l1_deflect">Deflect politely</choice>
  <choice id="lumine_l1_joke">Joke to lighten the mood</choice>
  <choice id="hub_choose_other">Talk to someone else</choice>
</choices>`

const mixedDialects = `<?xml version="1.0"?>
<!-- evening scene -->
<Narrator>Lanterns sway over the harbor.</Narrator>
<character name="Venti" emotion="Happy">Ehe! Another listener.</character>
<segment><speaker>Zhongli</speaker><emotion>thinking</emotion><text>Tea first.</text></segment>
<character name="Tartaglia"><action expression="Confident">Grinning</action><say>Care for a spar?</say></character>
<unknown attr="x">ignored entirely</unknown>
<choices>
  <choice id="a">First</choice>
  <choice id="b" disabled="true">Second</choice>
</choices>`

func feed(p *Parser, chunks ...string) []types.Segment {
	var out []types.Segment
	for _, c := range chunks {
		out = append(out, p.ProcessChunk(c)...)
	}
	return out
}

func TestNarratorAcrossChunks(t *testing.T) {
	p := New()
	chunks := []string{"<Narrat", "or>Evening ", "falls.</Narrator>"}

	for i, c := range chunks[:2] {
		if got := p.ProcessChunk(c); len(got) != 0 {
			t.Fatalf("chunk %d: got %d segments, want 0", i+1, len(got))
		}
	}
	got := p.ProcessChunk(chunks[2])
	want := []types.Segment{{Speaker: types.Narrator, Emotion: types.Neutral, Text: "Evening falls."}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %+v, want %+v", got, want)
	}
}

func TestCharacterForms(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []types.Segment
	}{
		{
			"emotion attribute",
			`<character name="Venti" emotion="Happy">  Ehe!  </character>`,
			[]types.Segment{{Speaker: "VENTI", Emotion: types.Happy, Text: "Ehe!"}},
		},
		{
			"expression alias",
			`<character expression="sad" name='Lumine'>Searching is heavy.</character>`,
			[]types.Segment{{Speaker: "LUMINE", Emotion: types.Sad, Text: "Searching is heavy."}},
		},
		{
			"no emotion defaults to neutral",
			`<character name="Zhongli">Please.</character>`,
			[]types.Segment{{Speaker: "ZHONGLI", Emotion: types.Neutral, Text: "Please."}},
		},
		{
			"narrator by name",
			`<character name="NARRATOR"><say>Who do you sit with?</say></character>`,
			[]types.Segment{{Speaker: types.Narrator, Emotion: types.Neutral, Text: "Who do you sit with?"}},
		},
		{
			"say before any action",
			`<character name="Lumine">
  <say>Hello.</say>
  <action expression="Happy">Smiling</action>
  <dialogue>Welcome.</dialogue>
</character>`,
			[]types.Segment{
				{Speaker: "LUMINE", Emotion: types.Neutral, Text: "Hello."},
				{Speaker: "LUMINE", Emotion: types.Happy, Text: "(Smiling)"},
				{Speaker: "LUMINE", Emotion: types.Happy, Text: "Welcome."},
			},
		},
		{
			"character emotion seeds beats",
			`<character name="Lumine" emotion="Sad">
  <say>Maybe.</say>
</character>`,
			[]types.Segment{{Speaker: "LUMINE", Emotion: types.Sad, Text: "Maybe."}},
		},
		{
			"record form",
			`<segment><text>Tea first.</text><emotion>Thinking</emotion><speaker>Zhongli</speaker></segment>`,
			[]types.Segment{{Speaker: "ZHONGLI", Emotion: types.Thinking, Text: "Tea first."}},
		},
		{
			"record form without speaker",
			`<line><text>The moon climbs.</text></line>`,
			[]types.Segment{{Speaker: types.Narrator, Emotion: types.Neutral, Text: "The moon climbs."}},
		},
		{
			"nameless character skipped",
			`<character emotion="happy">nobody</character>`,
			nil,
		},
		{
			"text is verbatim",
			`<Narrator>Rock &amp; stone</Narrator>`,
			[]types.Segment{{Speaker: types.Narrator, Emotion: types.Neutral, Text: "Rock &amp; stone"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(WithoutFallback())
			got := p.ProcessChunk(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("segments = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMultiElementOrder(t *testing.T) {
	p := New()
	got := p.ProcessChunk(lumineL1)
	want := []types.Segment{
		{Speaker: "LUMINE", Emotion: types.Concern, Text: "(Stepping closer, studying you carefully)"},
		{Speaker: "LUMINE", Emotion: types.Concern, Text: "You look tired. How long have you been traveling?"},
		{Speaker: "LUMINE", Emotion: types.Neutral, Text: "(Her voice softening with understanding)"},
		{Speaker: "LUMINE", Emotion: types.Neutral, Text: "I know what it's like to search for something... or someone."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %+v, want %+v", got, want)
	}
	if !p.Complete() {
		t.Error("Complete() = false, want true")
	}
	if n := len(p.Choices()); n != 4 {
		t.Errorf("len(Choices()) = %d, want 4", n)
	}
}

func TestCompactFormNotDuplicated(t *testing.T) {
	input := `<character name="Tartaglia"><action expression="Confident">Cracking his knuckles</action><say>Harbor's restless.</say></character>`
	p := New(WithoutFallback())
	got := p.ProcessChunk(input)
	want := []types.Segment{
		{Speaker: "TARTAGLIA", Emotion: types.Confident, Text: "(Cracking his knuckles)"},
		{Speaker: "TARTAGLIA", Emotion: types.Confident, Text: "Harbor's restless."},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("segments = %+v, want %+v", got, want)
	}
}

func TestIdenticalLinesAtDifferentOffsets(t *testing.T) {
	input := `<Narrator>Silence.</Narrator><Narrator>Silence.</Narrator>`
	p := New(WithoutFallback())
	if got := p.ProcessChunk(input); len(got) != 2 {
		t.Errorf("got %d segments, want 2", len(got))
	}
}

func TestChoices(t *testing.T) {
	p := New()
	p.ProcessChunk(`<Narrator>Pick.</Narrator>
<choices>
  <choice id="a">First</choice>
  <choice id="b" disabled="TRUE">Second</choice>
  <choice id="a">Duplicate</choice>
  <choice>No id</choice>
  <choice id="c" disabled="false">Third</choice>
</choices>`)

	want := []types.Choice{
		{ID: "a", Text: "First"},
		{ID: "b", Text: "Second", Disabled: true},
		{ID: "c", Text: "Third"},
	}
	if got := p.Choices(); !reflect.DeepEqual(got, want) {
		t.Errorf("Choices() = %+v, want %+v", got, want)
	}
	if !p.Complete() {
		t.Error("Complete() = false, want true")
	}

	p.ProcessChunk(`<choices><choice id="a">Later</choice><choice id="d">Fourth</choice></choices>`)
	got := p.Choices()
	if len(got) != 4 || got[0].Text != "First" || got[3].ID != "d" {
		t.Errorf("Choices() after second block = %+v", got)
	}
	if !p.Complete() {
		t.Error("Complete() reverted to false")
	}
}

func TestEmptyChoicesBlockNotComplete(t *testing.T) {
	p := New(WithoutFallback())
	p.ProcessChunk(`<choices>
</choices>`)
	if p.Complete() {
		t.Error("Complete() = true for empty choices block")
	}
}

func TestUnclosedChoicesStayPending(t *testing.T) {
	p := New()
	p.ProcessChunk(`<Narrator>Pick.</Narrator><choices><choice id="a">First</choice>`)
	if p.Complete() {
		t.Fatal("Complete() = true before </choices>")
	}
	if len(p.Choices()) != 0 {
		t.Fatalf("Choices() = %+v before </choices>", p.Choices())
	}
	if !strings.HasPrefix(p.Pending(), "<choices>") {
		t.Errorf("Pending() = %q, want <choices> prefix", p.Pending())
	}
	p.ProcessChunk(`</choices>`)
	if !p.Complete() || len(p.Choices()) != 1 {
		t.Errorf("Complete() = %v, Choices() = %+v", p.Complete(), p.Choices())
	}
}

func TestChunkInvariance(t *testing.T) {
	inputs := map[string]string{
		"lumine": lumineL1,
		"mixed":  mixedDialects,
		"compact": `<character name="Venti"><action expression="Happy">A playful arpeggio</action><say>Old winds hum…</say></character>
<Narrator>Naïve café — résumé ✅</Narrator>`,
	}

	rng := rand.New(rand.NewSource(7))
	for name, input := range inputs {
		whole := New(WithoutFallback())
		want := whole.ProcessChunk(input)
		wantChoices := whole.Choices()

		splits := [][]string{splitEvery(input, 1), splitEvery(input, 2), splitEvery(input, 7)}
		for i := 0; i < 20; i++ {
			splits = append(splits, splitRandom(rng, input))
		}
		for i, chunks := range splits {
			p := New(WithoutFallback())
			got := feed(p, chunks...)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("%s split %d: segments = %+v, want %+v", name, i, got, want)
			}
			if gc := p.Choices(); !reflect.DeepEqual(gc, wantChoices) {
				t.Errorf("%s split %d: choices = %+v, want %+v", name, i, gc, wantChoices)
			}
			if p.Complete() != whole.Complete() {
				t.Errorf("%s split %d: Complete() = %v, want %v", name, i, p.Complete(), whole.Complete())
			}
		}
	}
}

func TestBufferConsumption(t *testing.T) {
	p := New(WithoutFallback())
	p.ProcessChunk(`<Narrator>One.</Narrator>  <character name="Lumine" emotion="happy">Tw`)
	if got := p.Pending(); got != `  <character name="Lumine" emotion="happy">Tw` {
		t.Errorf("Pending() = %q", got)
	}
	if got := p.Offset(); got != len(`<Narrator>One.</Narrator>`) {
		t.Errorf("Offset() = %d", got)
	}

	// A long unclosed body resumes its close-tag search near the end.
	p.ProcessChunk(strings.Repeat("o", 1000))
	if p.pending == nil {
		t.Fatal("pending = nil, want open character construct")
	}
	if p.pending.resume < p.base+1000 {
		t.Errorf("resume = %d, want past the scanned body", p.pending.resume)
	}
	got := p.ProcessChunk(".</character  >")
	if len(got) != 1 || got[0].Text != "Tw"+strings.Repeat("o", 1000)+"." {
		t.Errorf("segments = %+v", got)
	}
	if p.Pending() != "" {
		t.Errorf("Pending() = %q, want empty", p.Pending())
	}
}

func TestMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"<",
		"<<<>>>",
		"a < b > c",
		"</Narrator>",
		"<Narrator>",
		`<character name="x`,
		"<!-- never closed",
		"<choices><choice id=\"a\">x</choice",
		"\x00\xff<Narrator>\xfe</Narrator>",
	}
	for _, in := range inputs {
		p := New()
		p.ProcessChunk(in)
		p.ProcessChunk(in)
	}

	p := New(WithoutFallback())
	got := p.ProcessChunk(`<bogus>text</bogus> stray <Narrator>Still here.</Narrator>`)
	if len(got) != 1 || got[0].Text != "Still here." {
		t.Errorf("segments = %+v", got)
	}
}

func TestFallbackChoices(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		chunks   []string
		complete bool
	}{
		{"short tail", nil, []string{`<Narrator>The lanterns dim.</Narrator>` + "\n"}, true},
		{"no segments", nil, []string{"   "}, false},
		{"unclosed tag", nil, []string{`<Narrator>Dim.</Narrator><charac`}, false},
		{"pending construct", nil, []string{`<Narrator>Dim.</Narrator><character name="a">x`}, false},
		{"long tail", nil, []string{`<Narrator>Dim.</Narrator>` + strings.Repeat("x", 60)}, false},
		{"tunable tail", []Option{WithFallbackTail(100)}, []string{`<Narrator>Dim.</Narrator>` + strings.Repeat("x", 60)}, true},
		{"disabled", []Option{WithoutFallback()}, []string{`<Narrator>Dim.</Narrator>`}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.opts...)
			feed(p, tt.chunks...)
			if p.Complete() != tt.complete {
				t.Errorf("Complete() = %v, want %v", p.Complete(), tt.complete)
			}
			if tt.complete && !reflect.DeepEqual(p.Choices(), DefaultChoices) {
				t.Errorf("Choices() = %+v, want defaults", p.Choices())
			}
		})
	}

	custom := []types.Choice{{ID: "onward", Text: "Onward"}}
	p := New(WithFallbackChoices(custom))
	p.ProcessChunk(`<Narrator>Dim.</Narrator>`)
	if !reflect.DeepEqual(p.Choices(), custom) {
		t.Errorf("Choices() = %+v, want %+v", p.Choices(), custom)
	}
}

func TestFallbackChoices_GiveWayToChoicesBlock(t *testing.T) {
	p := New()
	p.ProcessChunk(`<Narrator>The harbor settles.</Narrator>` + "\n")
	if !p.FellBack() || !reflect.DeepEqual(p.Choices(), DefaultChoices) {
		t.Fatalf("expected the fallback to fire first, got %+v", p.Choices())
	}

	p.ProcessChunk(`<choices><choice id="talk_zhongli" disabled="true">Zhongli is done</choice>`)
	p.ProcessChunk(`<choice id="end_story">End the evening</choice></choices>`)

	want := []types.Choice{
		{ID: "talk_zhongli", Text: "Zhongli is done", Disabled: true},
		{ID: "end_story", Text: "End the evening"},
	}
	if !reflect.DeepEqual(p.Choices(), want) {
		t.Errorf("Choices() = %+v, want %+v", p.Choices(), want)
	}
	if p.FellBack() || !p.Complete() {
		t.Errorf("FellBack() = %v, Complete() = %v", p.FellBack(), p.Complete())
	}

	// An empty block leaves the fallback in place.
	q := New()
	q.ProcessChunk(`<Narrator>Dim.</Narrator>`)
	q.ProcessChunk(`<choices></choices>`)
	if !q.FellBack() || !reflect.DeepEqual(q.Choices(), DefaultChoices) {
		t.Errorf("empty block replaced the fallback: %+v", q.Choices())
	}
}

func TestReset(t *testing.T) {
	p := New(WithoutFallback())
	p.ProcessChunk(lumineL1 + `<Narrator>trail`)
	p.Reset()

	if p.Complete() || len(p.Choices()) != 0 || len(p.Segments()) != 0 || p.Pending() != "" || p.Offset() != 0 {
		t.Fatalf("state after Reset: complete=%v choices=%d segments=%d pending=%q",
			p.Complete(), len(p.Choices()), len(p.Segments()), p.Pending())
	}

	// Same content again is new content after a reset.
	if got := p.ProcessChunk(lumineL1); len(got) != 4 {
		t.Errorf("got %d segments after Reset, want 4", len(got))
	}
	if !p.noFallback {
		t.Error("Reset dropped options")
	}
}

func TestNormalizeEmotion(t *testing.T) {
	tests := []struct {
		in   string
		want types.Emotion
	}{
		{"Happy", types.Happy},
		{"  CONCERN ", types.Concern},
		{"concerned", types.Concern},
		{"Very  Happy", types.VeryHappy},
		{"deeply in love", types.DeeplyInLove},
		{"scared", types.Fear},
		{"Determined", types.Neutral},
		{"", types.Neutral},
	}
	for _, tt := range tests {
		if got := NormalizeEmotion(tt.in); got != tt.want {
			t.Errorf("NormalizeEmotion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func splitRandom(rng *rand.Rand, s string) []string {
	var out []string
	for s != "" {
		n := 1 + rng.Intn(12)
		if n > len(s) {
			n = len(s)
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
