package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nathoo/vnplayer/engine"
	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
)

func newTestCLI(t *testing.T, input string) (*CLI, *bytes.Buffer) {
	t.Helper()
	eng := engine.New(story.Default())
	var out bytes.Buffer
	c := &CLI{
		Engine:  eng,
		In:      strings.NewReader(input),
		Out:     &out,
		SaveDir: t.TempDir(),
	}
	return c, &out
}

func run(t *testing.T, c *CLI) {
	t.Helper()
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestCLI_IntroAndChoices(t *testing.T) {
	c, out := newTestCLI(t, "/quit\n")
	run(t, c)

	output := out.String()
	for _, want := range []string{
		"The harbor lanterns flicker to life",
		"Lumine [surprised]: Oh! You're new here",
		"  1. Approach Lumine and ask about her travels between worlds",
		"  2. Sit with Zhongli",
		"[Goodbye.]",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestCLI_ChooseByNumberAndID(t *testing.T) {
	c, out := newTestCLI(t, "2\nzhongli_l1_casual\n/quit\n")
	run(t, c)

	output := out.String()
	if !strings.Contains(output, "Zhongli (Pouring tea with ritual grace)") {
		t.Errorf("expected zhongli's action line:\n%s", output)
	}
	if !strings.Contains(output, "Ancient pacts fray when memory fades.") {
		t.Errorf("expected zhongli's second fragment:\n%s", output)
	}
	if got := c.Engine.History(); len(got) != 2 || got[0] != "talk_zhongli" || got[1] != "zhongli_l1_casual" {
		t.Errorf("History() = %v", got)
	}
}

func TestCLI_FullThreadAndEnd(t *testing.T) {
	script := strings.Join([]string{
		"# comments are skipped",
		"2",
		"zhongli_l1_casual",
		"zhongli_l2_seals",
		"hub_return_after_zhongli",
		"2", // the completed entry is disabled
		"end_story",
		"1",
		"/quit",
	}, "\n")
	c, out := newTestCLI(t, script)
	run(t, c)

	output := out.String()
	for _, want := range []string{
		"[Zhongli's thread is complete.]",
		"  -  Ask Zhongli about the contracts and destiny ✅ (Completed)",
		"[That choice is no longer available.]",
		"THE END",
		"[The story has ended. Threads completed: 1 of 4.]",
		"[The story has ended. Type /quit",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestCLI_UnknownInput(t *testing.T) {
	c, out := newTestCLI(t, "dance\n9\n/frobnicate\n/quit\n")
	run(t, c)

	output := out.String()
	if strings.Count(output, "Pick a choice by number.") != 2 {
		t.Errorf("expected two hints for bad choices:\n%s", output)
	}
	if !strings.Contains(output, "Unknown command: /frobnicate") {
		t.Errorf("expected unknown command message:\n%s", output)
	}
}

func TestCLI_SaveLoad(t *testing.T) {
	c, out := newTestCLI(t, "2\n/save slot1\n/restart\n/load slot1\n/history\n/quit\n")
	run(t, c)

	output := out.String()
	if _, err := os.Stat(filepath.Join(c.SaveDir, "slot1.json")); err != nil {
		t.Fatalf("save file missing: %v", err)
	}
	if !strings.Contains(output, "[Story saved to slot1.]") || !strings.Contains(output, "[Story loaded from slot1 (turn 1).]") {
		t.Errorf("expected save and load messages:\n%s", output)
	}
	if !strings.Contains(output, "[1. talk_zhongli]") {
		t.Errorf("history not restored:\n%s", output)
	}
	if got := c.Engine.Choices(); len(got) == 0 || got[0].ID != "zhongli_l1_etiquette" {
		t.Errorf("Choices() after load = %+v", got)
	}
}

func TestCLI_LoadMissing(t *testing.T) {
	c, out := newTestCLI(t, "/load nothing\n/quit\n")
	run(t, c)
	if !strings.Contains(out.String(), "Load failed") {
		t.Errorf("expected load failure:\n%s", out.String())
	}
}

func TestCLI_BookStateTrace(t *testing.T) {
	c, out := newTestCLI(t, "b\n/trace\n2\n/state\nh\nq\n")
	run(t, c)

	output := out.String()
	for _, want := range []string{
		"Lumine, Traveler from Another World (just met)",
		"[Trace output enabled.]",
		"[[trace] talk_zhongli -> ZHONGLI_L1 (talk)]",
		"[Turn: 1]",
		"/save [name]",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestCLI_EchoInput(t *testing.T) {
	c, out := newTestCLI(t, "/history\n/quit\n")
	c.EchoInput = true
	run(t, c)
	if !strings.Contains(out.String(), "> /history\n") {
		t.Errorf("expected echoed input:\n%s", out.String())
	}
}

func TestCLI_Typewriter(t *testing.T) {
	c, out := newTestCLI(t, "q\n")
	var slept int
	c.TypeDelay = time.Millisecond
	c.Sleep = func(time.Duration) { slept++ }
	run(t, c)

	intro := 0
	for _, s := range c.Engine.Transcript() {
		intro += len([]rune(c.formatSegment(s)))
	}
	if slept != intro {
		t.Errorf("slept %d times, want one per rune (%d)", slept, intro)
	}
	if !strings.Contains(out.String(), "Venti [happy]: Ehe!") {
		t.Errorf("typewriter output lost text:\n%s", out.String())
	}
}

func TestFormatSegment(t *testing.T) {
	c, _ := newTestCLI(t, "")
	tests := []struct {
		seg  types.Segment
		want string
	}{
		{types.Segment{Speaker: types.Narrator, Emotion: types.Neutral, Text: "Rain."}, "Rain."},
		{types.Segment{Speaker: "VENTI", Emotion: types.Neutral, Text: "Hello."}, "Venti: Hello."},
		{types.Segment{Speaker: "VENTI", Emotion: types.Happy, Text: "Ehe!"}, "Venti [happy]: Ehe!"},
		{types.Segment{Speaker: "VENTI", Emotion: types.Happy, Text: "(Strums)"}, "Venti (Strums)"},
		{types.Segment{Speaker: "HARBOR MASTER", Emotion: types.Angry, Text: "Move!"}, "Harbor Master [angry]: Move!"},
	}
	for _, tt := range tests {
		if got := c.formatSegment(tt.seg); got != tt.want {
			t.Errorf("formatSegment(%+v) = %q, want %q", tt.seg, got, tt.want)
		}
	}
}
