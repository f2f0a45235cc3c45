// Package cli is the plain line-oriented player: it prints the transcript
// as it streams, numbers the choices and dispatches meta commands. It is
// also what script playback runs through.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nathoo/vnplayer/engine"
	"github.com/nathoo/vnplayer/engine/dialogue"
	"github.com/nathoo/vnplayer/engine/save"
	"github.com/nathoo/vnplayer/types"
)

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Trace     bool
	EchoInput bool          // echo each input line after the prompt (for script playback)
	TypeDelay time.Duration // per-rune delay; zero prints whole lines
	Sleep     func(time.Duration)
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	home, _ := os.UserHomeDir()
	return &CLI{
		Engine:  eng,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: filepath.Join(home, ".vnplayer", "saves"),
		Sleep:   time.Sleep,
	}
}

// Run plays the story: the intro, then prompt, input and the next
// fragment until the input ends or the player quits.
func (c *CLI) Run(ctx context.Context) error {
	turn, err := c.Engine.Stream(ctx, "", c.printSegment)
	if err != nil {
		return fmt.Errorf("starting story: %w", err)
	}
	c.afterTurn(turn)

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			c.printLine("")
			return scanner.Err()
		}
		line := scanner.Text()
		in := ParseInput(line, c.Engine.Choices())
		if in.Action == ActNone {
			continue
		}
		if c.EchoInput {
			c.printLine(strings.TrimSpace(line))
		}

		switch in.Action {
		case ActMeta:
			if c.handleMeta(ctx, in.Meta, in.Arg) {
				return nil
			}
		case ActDisabled:
			c.printSystem("That choice is no longer available.")
		case ActUnknown:
			if c.Engine.Ended() {
				c.printSystem("The story has ended. Type /quit to leave or /restart to begin again.")
			} else {
				c.printSystem("Pick a choice by number. Type /help for commands.")
			}
		case ActChoose:
			c.printLine("")
			turn, err := c.Engine.Stream(ctx, in.ChoiceID, c.printSegment)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				c.printSystem(fmt.Sprintf("Error: %v", err))
				continue
			}
			c.afterTurn(turn)
		}
	}
}

func (c *CLI) afterTurn(t engine.Turn) {
	for _, n := range t.Notices {
		c.printSystem(n)
	}
	if c.Trace {
		c.printTrace(t)
	}
	if t.Ended {
		c.printLine("")
		c.printLine("THE END")
		return
	}
	c.printChoices(t.Choices)
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(ctx context.Context, cmd, arg string) bool {
	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/book":
		c.cmdBook()

	case "/state":
		c.cmdState()

	case "/history":
		c.cmdHistory()

	case "/choices":
		c.printChoices(c.Engine.Choices())

	case "/restart":
		c.printLine("")
		turn, err := c.Engine.Stream(ctx, "", c.printSegment)
		if err != nil {
			c.printSystem(fmt.Sprintf("Restart failed: %v", err))
			return false
		}
		c.afterTurn(turn)

	case "/help":
		c.cmdHelp()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := save.Save(c.Engine.SaveData())
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	path := filepath.Join(c.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("Story saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}

	path := filepath.Join(c.SaveDir, name+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}

	sd, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if err := c.Engine.Restore(sd); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.printSystem(fmt.Sprintf("Story loaded from %s (turn %d).", name, sd.Turn))

	// Replay the last few lines so the player knows where they are.
	tr := c.Engine.Transcript()
	if len(tr) > 3 {
		tr = tr[len(tr)-3:]
	}
	for _, s := range tr {
		c.printLine(c.formatSegment(s))
	}
	if c.Engine.Ended() {
		c.printLine("THE END")
		return
	}
	c.printChoices(c.Engine.Choices())
}

func (c *CLI) cmdBook() {
	book := c.Engine.Book()
	if len(book) == 0 {
		c.printSystem("You have not met anyone yet.")
		return
	}
	for _, e := range book {
		status := "stage " + e.Stage.String()
		if e.Stage == types.StageUnset {
			status = "just met"
		}
		if e.Completed {
			status = "completed"
		}
		c.printLine(fmt.Sprintf("%s, %s (%s)", e.Name, e.Title, status))
		if e.Description != "" {
			c.printLine("  " + e.Description)
		}
		quotes := e.Quotes()
		if len(quotes) > 3 {
			quotes = quotes[len(quotes)-3:]
		}
		for _, q := range quotes {
			c.printLine(fmt.Sprintf("  %q", q))
		}
	}
}

func (c *CLI) cmdState() {
	p := c.Engine.Progress()
	c.printSystem(fmt.Sprintf("Turn: %d", c.Engine.TurnCount()))
	ids := make([]string, 0, len(p.Stages))
	for id := range p.Stages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		c.printSystem(fmt.Sprintf("%s: %s", id, p.Stages[id]))
	}
	c.printSystem(fmt.Sprintf("Completed: %v", p.Completed))
	if c.Engine.Ended() {
		c.printSystem("Story ended.")
	}
}

func (c *CLI) cmdHistory() {
	h := c.Engine.History()
	if len(h) == 0 {
		c.printSystem("No choices made yet.")
		return
	}
	for i, id := range h {
		c.printSystem(fmt.Sprintf("%d. %s", i+1, id))
	}
}

func (c *CLI) cmdHelp() {
	help := []string{
		"Choosing:",
		"  <number>       Pick that choice",
		"  <choice id>    Pick a choice by id",
		"",
		"System:",
		"  /save [name]   Save story (default: quicksave)",
		"  /load [name]   Load story (default: quicksave)",
		"  /book (b)      Characters you have met",
		"  /choices       Show the current choices again",
		"  /history       Choices made so far",
		"  /restart       Start again from the intro",
		"  /state         Debug: dump session progress",
		"  /trace         Toggle debug trace output",
		"  /help (h, ?)   Show this help",
		"  /quit (q)      Exit",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) printTrace(t engine.Turn) {
	c.printSystem(fmt.Sprintf("[trace] %s -> %s (%s)", t.ChoiceID, t.Key, t.Move.Kind))
	if !t.Complete {
		c.printSystem("[trace] choices block incomplete")
	}
	for _, e := range t.Events {
		c.printSystem(fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
	}
}

func (c *CLI) printChoices(choices []types.Choice) {
	if len(choices) == 0 {
		return
	}
	c.printLine("")
	for i, ch := range choices {
		if ch.Disabled {
			c.printLine(fmt.Sprintf("  -  %s", ch.Text))
			continue
		}
		c.printLine(fmt.Sprintf("  %d. %s", i+1, ch.Text))
	}
}

func (c *CLI) formatSegment(s types.Segment) string {
	name := dialogue.DisplayName(c.Engine.Story(), s.Speaker)
	switch {
	case name == "":
		return s.Text
	case dialogue.IsAction(s):
		return fmt.Sprintf("%s %s", name, s.Text)
	case s.Emotion == "" || s.Emotion == types.Neutral:
		return fmt.Sprintf("%s: %s", name, s.Text)
	default:
		return fmt.Sprintf("%s [%s]: %s", name, s.Emotion, s.Text)
	}
}

// printSegment prints one segment, a rune at a time when TypeDelay is set.
func (c *CLI) printSegment(s types.Segment) {
	line := c.formatSegment(s)
	if c.TypeDelay <= 0 || c.Sleep == nil {
		c.printLine(line)
		return
	}
	for _, r := range line {
		fmt.Fprint(c.Out, string(r))
		c.Sleep(c.TypeDelay)
	}
	c.printLine("")
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
