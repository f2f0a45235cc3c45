// Package tui is the full-screen player: the transcript types itself out
// in a scrolling viewport, the choices sit underneath it and a status bar
// tracks thread progress.
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/nathoo/vnplayer/cli"
	"github.com/nathoo/vnplayer/engine"
	"github.com/nathoo/vnplayer/engine/dialogue"
	"github.com/nathoo/vnplayer/engine/save"
	"github.com/nathoo/vnplayer/engine/state"
	"github.com/nathoo/vnplayer/types"
)

// lineKind identifies the type of a transcript line for styling.
type lineKind int

const (
	kindBlank lineKind = iota
	kindSegment
	kindSystem
	kindInput
	kindTrace
	kindError
	kindEnd
)

// line is one unstyled transcript entry, kept raw so it can be re-wrapped
// when the terminal is resized.
type line struct {
	kind lineKind
	seg  types.Segment // kindSegment only
	text string
}

// Options configure a Model.
type Options struct {
	TypeDelay time.Duration // per-rune delay; zero shows turns at once
	SaveDir   string
}

// Model is the Bubble Tea model for the player.
type Model struct {
	ctx    context.Context
	engine *engine.Engine

	viewport viewport.Model
	input    textinput.Model
	help     help.Model
	keys     keyMap

	lines   []line // fully revealed
	pending []line // waiting on the typewriter
	shown   int    // runes of pending[0] already revealed
	delay   time.Duration
	ticking bool

	// Snapshots taken between turns; the engine is not touched while a
	// fetch is in flight.
	choices  []types.Choice
	cursor   int
	book     []dialogue.Entry
	progress state.Progress
	turns    int
	ended    bool
	busy     bool

	bookOpen bool
	trace    bool
	saveDir  string

	width    int
	height   int
	ready    bool
	quitting bool
}

// turnMsg carries the result of an engine call into the Update loop.
type turnMsg struct {
	turn engine.Turn
	err  error
}

type tickMsg struct{}

// New creates a model wired to the given engine. The intro is fetched by
// Init.
func New(ctx context.Context, eng *engine.Engine, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "number, /command or enter"
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	saveDir := opts.SaveDir
	if saveDir == "" {
		home, _ := os.UserHomeDir()
		saveDir = filepath.Join(home, ".vnplayer", "saves")
	}
	return Model{
		ctx:      ctx,
		engine:   eng,
		input:    ti,
		help:     help.New(),
		keys:     defaultKeyMap(),
		delay:    opts.TypeDelay,
		progress: state.New(),
		busy:     true,
		saveDir:  saveDir,
	}
}

// Run starts the Bubble Tea program and blocks until the player quits or
// ctx is cancelled.
func Run(ctx context.Context, eng *engine.Engine, opts Options) error {
	p := tea.NewProgram(New(ctx, eng, opts), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// Init fetches the intro.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, fetch(m.ctx, m.engine, ""))
}

// fetch runs one engine call off the Update loop. An empty choiceID
// (re)starts the story.
func fetch(ctx context.Context, eng *engine.Engine, choiceID string) tea.Cmd {
	return func() tea.Msg {
		t, err := eng.Stream(ctx, choiceID, nil)
		return turnMsg{turn: t, err: err}
	}
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return tickMsg{} })
}

// Update handles key presses, resizes, finished turns and typewriter ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if !m.ready {
			m.viewport = viewport.New(m.width, 1)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		}
		m.viewport.Width = m.width
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnMsg:
		return m.handleTurn(msg)

	case tickMsg:
		return m.handleTick()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}

	// Any key finishes the line being typed.
	if len(m.pending) > 0 {
		m.flush()
		m.refresh()
		return m, nil
	}

	if m.bookOpen {
		switch {
		case key.Matches(msg, m.keys.Close, m.keys.Book):
			m.bookOpen = false
			m.refresh()
		case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Book):
		m.bookOpen = true
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp, m.keys.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Choose):
		return m.handleEnter()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleEnter submits the input line, or the highlighted choice when the
// line is empty.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")

	if text == "" {
		if m.busy || m.ended || m.cursor >= len(m.choices) {
			return m, nil
		}
		c := m.choices[m.cursor]
		if c.Disabled {
			return m, nil
		}
		return m.choose(c)
	}

	in := cli.ParseInput(text, m.choices)
	switch in.Action {
	case cli.ActNone:
		return m, nil
	case cli.ActMeta:
		m.add(line{kind: kindInput, text: text})
		cmd, quit := m.handleMeta(in.Meta, in.Arg)
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		m.refresh()
		return m, cmd
	case cli.ActChoose:
		for _, c := range m.choices {
			if c.ID == in.ChoiceID {
				return m.choose(c)
			}
		}
	case cli.ActDisabled:
		m.add(line{kind: kindSystem, text: "That choice is no longer available."})
	case cli.ActUnknown:
		if m.ended {
			m.add(line{kind: kindSystem, text: "The story has ended. Type /restart to begin again or /quit to leave."})
		} else {
			m.add(line{kind: kindSystem, text: "Pick a choice by number. Type /help for commands."})
		}
	}
	m.refresh()
	return m, nil
}

func (m Model) choose(c types.Choice) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.add(line{kind: kindInput, text: c.Text})
	m.busy = true
	m.refresh()
	return m, fetch(m.ctx, m.engine, c.ID)
}

func (m Model) handleTurn(msg turnMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.add(line{kind: kindError, text: fmt.Sprintf("Error: %v", msg.err)})
		m.refresh()
		return m, nil
	}

	t := msg.turn
	if t.ChoiceID == "" {
		// A new session replaces the old transcript.
		m.lines, m.pending, m.shown = nil, nil, 0
	} else {
		m.add(line{})
	}
	for _, s := range t.Segments {
		m.pending = append(m.pending, line{kind: kindSegment, seg: s})
	}
	for _, n := range t.Notices {
		m.pending = append(m.pending, line{kind: kindSystem, text: n})
	}
	if m.trace {
		for _, tr := range traceLines(t) {
			m.pending = append(m.pending, line{kind: kindTrace, text: tr})
		}
	}
	if t.Ended {
		m.pending = append(m.pending, line{}, line{kind: kindEnd, text: "THE END"})
	}

	m.snapshot()
	return m, m.startTyping()
}

// snapshot copies what the view needs out of the engine.
func (m *Model) snapshot() {
	m.choices = m.engine.Choices()
	m.book = m.engine.Book()
	m.progress = m.engine.Progress()
	m.turns = m.engine.TurnCount()
	m.ended = m.engine.Ended()
	m.cursor = 0
	m.moveCursor(0)
}

func (m *Model) startTyping() tea.Cmd {
	if m.delay <= 0 {
		m.flush()
	}
	m.refresh()
	if len(m.pending) == 0 || m.ticking {
		return nil
	}
	m.ticking = true
	return tick(m.delay)
}

// handleTick reveals one more rune. Lines that are not dialogue appear
// whole.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	if len(m.pending) == 0 {
		m.ticking = false
		return m, nil
	}
	m.shown++
	for len(m.pending) > 0 {
		l := m.pending[0]
		if l.kind == kindSegment && m.shown < utf8.RuneCountInString(l.seg.Text) {
			break
		}
		m.lines = append(m.lines, l)
		m.pending = m.pending[1:]
		m.shown = 0
		if l.kind == kindSegment {
			break
		}
	}
	m.refresh()
	if len(m.pending) == 0 {
		m.ticking = false
		return m, nil
	}
	return m, tick(m.delay)
}

// flush reveals everything still waiting on the typewriter.
func (m *Model) flush() {
	m.lines = append(m.lines, m.pending...)
	m.pending = nil
	m.shown = 0
}

func (m *Model) add(l line) {
	m.lines = append(m.lines, l)
}

// typing reports whether the typewriter still has lines to reveal.
func (m *Model) typing() bool { return len(m.pending) > 0 }

// moveCursor moves the choice highlight by delta, skipping disabled
// choices. A delta of zero settles on the nearest enabled choice.
func (m *Model) moveCursor(delta int) {
	n := len(m.choices)
	if n == 0 {
		m.cursor = 0
		return
	}
	step := delta
	if step == 0 {
		step = 1
	}
	i := m.cursor
	if delta != 0 {
		i += delta
	}
	for tries := 0; tries < n; tries++ {
		i = ((i % n) + n) % n
		if !m.choices[i].Disabled {
			m.cursor = i
			return
		}
		i += step
	}
}

// choicesVisible reports whether the choice panel is shown.
func (m *Model) choicesVisible() bool {
	return !m.busy && !m.typing() && !m.bookOpen && !m.ended && len(m.choices) > 0
}

// refresh re-wraps and re-styles the transcript (or the book) at the
// current size and updates the viewport.
func (m *Model) refresh() {
	if !m.ready {
		return
	}

	h := m.height - 3 // status bar, input, help
	if m.choicesVisible() {
		h -= len(m.choices) + 1
	}
	if h < 1 {
		h = 1
	}
	m.viewport.Height = h

	if m.bookOpen {
		m.viewport.SetContent(m.renderBook())
		m.viewport.GotoTop()
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}
	styled := make([]string, 0, len(m.lines)+1)
	for _, l := range m.lines {
		styled = append(styled, m.renderLine(l, -1, width))
	}
	if len(m.pending) > 0 && m.pending[0].kind == kindSegment {
		styled = append(styled, m.renderLine(m.pending[0], m.shown, width))
	}
	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// renderLine styles one line, showing only the first n runes of dialogue
// when n is not negative.
func (m *Model) renderLine(l line, n, width int) string {
	var s string
	switch l.kind {
	case kindBlank:
		return ""
	case kindSegment:
		s = m.renderSegment(l.seg, n)
	case kindSystem:
		s = styleSystem.Render("[" + l.text + "]")
	case kindInput:
		s = stylePlayerInput.Render("> " + l.text)
	case kindTrace:
		s = styleTrace.Render(l.text)
	case kindError:
		s = styleError.Render(l.text)
	case kindEnd:
		s = styleEnd.Render(l.text)
	}
	return ansi.Wordwrap(s, width, "")
}

func (m *Model) renderSegment(seg types.Segment, n int) string {
	text := seg.Text
	if n >= 0 && n < utf8.RuneCountInString(text) {
		text = string([]rune(text)[:n])
	}

	st := m.engine.Story()
	name := dialogue.DisplayName(st, seg.Speaker)
	switch {
	case name == "":
		return styleNarration.Render(text)
	case dialogue.IsAction(seg):
		return speakerStyle(st, seg.Speaker).Render(name) + " " + styleAction.Render(text)
	case seg.Emotion == "" || seg.Emotion == types.Neutral:
		return speakerStyle(st, seg.Speaker).Render(name) + ": " + text
	default:
		return speakerStyle(st, seg.Speaker).Render(name) + " " +
			emotionStyle(seg.Emotion).Render("["+string(seg.Emotion)+"]") + ": " + text
	}
}

func (m Model) renderChoices() string {
	if !m.choicesVisible() {
		return ""
	}
	rows := make([]string, 0, len(m.choices)+1)
	rows = append(rows, "")
	for i, c := range m.choices {
		switch {
		case c.Disabled:
			rows = append(rows, styleChoiceDisabled.Render(fmt.Sprintf("    -  %s", c.Text)))
		case i == m.cursor:
			rows = append(rows, styleChoiceCursor.Render(fmt.Sprintf("  › %d. %s", i+1, c.Text)))
		default:
			rows = append(rows, styleChoice.Render(fmt.Sprintf("    %d. %s", i+1, c.Text)))
		}
	}
	return strings.Join(rows, "\n")
}

// View renders the full layout: viewport, choices, status bar, input and
// key help.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}

	parts := []string{m.viewport.View()}
	if c := m.renderChoices(); c != "" {
		parts = append(parts, c)
	}
	parts = append(parts, m.renderStatusBar(), m.input.View(), m.help.View(m.keys))
	return strings.Join(parts, "\n")
}

// handleMeta dispatches meta-commands. It returns a command to run and
// whether the player quit.
func (m *Model) handleMeta(cmd, arg string) (tea.Cmd, bool) {
	switch cmd {
	case "/quit", "/exit":
		return nil, true

	case "/save":
		m.system(m.cmdSave(arg))

	case "/load":
		m.cmdLoad(arg)

	case "/book":
		m.bookOpen = true

	case "/history":
		if m.busy {
			m.system("A turn is still loading.")
			break
		}
		h := m.engine.History()
		if len(h) == 0 {
			m.system("No choices made yet.")
		}
		for i, id := range h {
			m.system(fmt.Sprintf("%d. %s", i+1, id))
		}

	case "/state":
		m.system(fmt.Sprintf("Turn: %d", m.turns))
		ids := make([]string, 0, len(m.progress.Stages))
		for id := range m.progress.Stages {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			m.system(fmt.Sprintf("%s: %s", id, m.progress.Stages[id]))
		}
		m.system(fmt.Sprintf("Completed: %v", m.progress.Completed))

	case "/restart":
		if m.busy {
			return nil, false
		}
		m.busy = true
		return fetch(m.ctx, m.engine, ""), false

	case "/trace":
		m.trace = !m.trace
		if m.trace {
			m.system("Trace output enabled.")
		} else {
			m.system("Trace output disabled.")
		}

	case "/help":
		for _, l := range helpLines {
			m.add(line{kind: kindTrace, text: l})
		}

	default:
		m.system(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}
	return nil, false
}

var helpLines = []string{
	"Choosing:",
	"  ↑/↓ then enter      Pick the highlighted choice",
	"  <number>, <id>      Pick that choice",
	"  any key             Finish the line being typed",
	"",
	"System:",
	"  /save [name]        Save story (default: quicksave)",
	"  /load [name]        Load story (default: quicksave)",
	"  /book, ctrl+b       Characters you have met",
	"  /history            Choices made so far",
	"  /restart            Start again from the intro",
	"  /state              Debug: dump session progress",
	"  /trace              Toggle debug trace output",
	"  /quit, ctrl+c       Exit",
}

func (m *Model) system(text string) {
	m.add(line{kind: kindSystem, text: text})
}

func (m *Model) cmdSave(name string) string {
	if m.busy {
		return "Save failed: a turn is still loading"
	}
	if name == "" {
		name = "quicksave"
	}
	data, err := save.Save(m.engine.SaveData())
	if err != nil {
		return fmt.Sprintf("Save failed: %v", err)
	}
	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return fmt.Sprintf("Save failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(m.saveDir, name+".json"), data, 0o644); err != nil {
		return fmt.Sprintf("Save failed: %v", err)
	}
	return fmt.Sprintf("Story saved to %s.", name)
}

func (m *Model) cmdLoad(name string) {
	if m.busy {
		m.system("Load failed: a turn is still loading")
		return
	}
	if name == "" {
		name = "quicksave"
	}
	data, err := os.ReadFile(filepath.Join(m.saveDir, name+".json"))
	if err != nil {
		m.system(fmt.Sprintf("Load failed: %v", err))
		return
	}
	sd, err := save.Load(data)
	if err != nil {
		m.system(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if err := m.engine.Restore(sd); err != nil {
		m.system(fmt.Sprintf("Load failed: %v", err))
		return
	}

	m.lines = nil
	for _, s := range m.engine.Transcript() {
		m.add(line{kind: kindSegment, seg: s})
	}
	m.add(line{})
	m.system(fmt.Sprintf("Story loaded from %s (turn %d).", name, sd.Turn))
	m.snapshot()
	if m.ended {
		m.add(line{kind: kindEnd, text: "THE END"})
	}
}

func traceLines(t engine.Turn) []string {
	lines := []string{fmt.Sprintf("[trace] %s -> %s (%s)", t.ChoiceID, t.Key, t.Move.Kind)}
	if !t.Complete {
		lines = append(lines, "[trace] choices block incomplete")
	}
	for _, e := range t.Events {
		lines = append(lines, fmt.Sprintf("[trace]   %s %v", e.Type, e.Data))
	}
	return lines
}
