// Package engine runs a play session. For every choice it asks a Source
// for the next fragment, feeds the stream through the incremental markup
// parser and keeps the router's progress between turns.
//
// The Engine is the explicit session context: everything a session needs
// is owned by one value constructed by the caller.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nathoo/vnplayer/engine/dialogue"
	"github.com/nathoo/vnplayer/engine/events"
	"github.com/nathoo/vnplayer/engine/markup"
	"github.com/nathoo/vnplayer/engine/router"
	"github.com/nathoo/vnplayer/engine/save"
	"github.com/nathoo/vnplayer/engine/state"
	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
)

var (
	ErrNotStarted       = errors.New("story not started")
	ErrStoryEnded       = errors.New("story has ended")
	ErrChoiceNotOffered = errors.New("choice not offered")
	ErrChoiceDisabled   = errors.New("choice is disabled")
)

// Turn is the result of one step of the story.
type Turn struct {
	ChoiceID string // "" for the intro
	Key      story.Key
	Move     router.Move
	Segments []types.Segment
	Choices  []types.Choice
	Complete bool // the fragment established its choices
	Ended    bool
	Events   []types.Event
	Notices  []string
}

// JournalEntry is what a Journal receives after every turn.
type JournalEntry struct {
	ChoiceID string
	Segments []types.Segment
	Choices  []types.Choice
}

// Journal follows a session, typically into persistent storage.
type Journal interface {
	Begin(ctx context.Context, title, prompt string) error
	Record(ctx context.Context, entry JournalEntry) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithSource replaces the default in-process source.
func WithSource(s Source) Option { return func(e *Engine) { e.source = s } }

// WithChunker sets the chunker used by the default local source.
func WithChunker(c *Chunker) Option { return func(e *Engine) { e.chunker = c } }

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithJournal attaches a journal.
func WithJournal(j Journal) Option { return func(e *Engine) { e.journal = j } }

// WithParserOptions configures the markup parser.
func WithParserOptions(opts ...markup.Option) Option {
	return func(e *Engine) { e.parserOpts = append(e.parserOpts, opts...) }
}

// WithHandlers registers extra event handlers after the built-in ones.
func WithHandlers(hs ...events.Handler) Option {
	return func(e *Engine) { e.handlers = append(e.handlers, hs...) }
}

// Engine holds one play session.
type Engine struct {
	story      *story.Story
	router     *router.Router
	parser     *markup.Parser
	parserOpts []markup.Option
	source     Source
	chunker    *Chunker
	logger     *slog.Logger
	journal    Journal
	handlers   []events.Handler

	progress   state.Progress
	offered    []types.Choice
	transcript []types.Segment
	selected   []string
	turn       int
	started    bool
	ended      bool
	last       Turn
}

// New creates a session for st.
func New(st *story.Story, opts ...Option) *Engine {
	e := &Engine{
		story:    st,
		router:   router.New(st),
		chunker:  NewChunker(NewRNG(1), 0),
		logger:   slog.New(slog.DiscardHandler),
		progress: state.New(),
	}
	e.handlers = defaultHandlers(st)
	for _, opt := range opts {
		opt(e)
	}
	if e.source == nil {
		e.source = NewLocalSource(e.router, e.chunker)
	}
	e.parser = markup.New(e.parserOpts...)
	return e
}

func defaultHandlers(st *story.Story) []events.Handler {
	return []events.Handler{
		{
			EventType: types.EventThreadCompleted,
			Notify: func(ev types.Event) string {
				id := events.String(ev, "character")
				name := id
				if c, ok := st.Character(id); ok {
					name = c.Name
				}
				return fmt.Sprintf("%s's thread is complete.", name)
			},
		},
		{
			EventType: types.EventStoryEnded,
			Notify: func(ev types.Event) string {
				return fmt.Sprintf("The story has ended. Threads completed: %v of %v.", ev.Data["completed"], ev.Data["cast"])
			},
		},
	}
}

// Start begins a new session with the intro fragment. Any previous
// session state is discarded.
func (e *Engine) Start(ctx context.Context) (Turn, error) {
	return e.Stream(ctx, "", nil)
}

// Choose selects one of the offered choices.
func (e *Engine) Choose(ctx context.Context, choiceID string) (Turn, error) {
	if choiceID == "" {
		return Turn{}, fmt.Errorf("%w: empty choice", ErrChoiceNotOffered)
	}
	return e.Stream(ctx, choiceID, nil)
}

// Stream is Choose (or Start, for an empty choiceID) with onSegment called
// for every segment as soon as the parser completes it.
func (e *Engine) Stream(ctx context.Context, choiceID string, onSegment func(types.Segment)) (Turn, error) {
	if choiceID == "" {
		return e.begin(ctx, onSegment)
	}
	if !e.started {
		return Turn{}, ErrNotStarted
	}
	if e.ended {
		return Turn{}, ErrStoryEnded
	}
	if err := e.checkOffered(choiceID); err != nil {
		return Turn{}, err
	}

	before := e.progress.Clone()
	res := e.router.Route(choiceID, before)
	segs, err := e.fetch(ctx, choiceID, before, onSegment)
	if err != nil {
		return Turn{}, err
	}

	turn := Turn{
		ChoiceID: choiceID,
		Key:      res.Key,
		Move:     res.Move,
		Segments: segs,
		Events:   res.Events,
	}
	if res.Terminal {
		// The epilogue never offers choices, fallback or otherwise.
		turn.Ended = true
		turn.Complete = true
	} else {
		turn.Choices, turn.Complete = e.parsedChoices()
	}

	e.progress = res.Progress
	e.offered = turn.Choices
	e.transcript = append(e.transcript, segs...)
	e.selected = append(e.selected, choiceID)
	e.turn++
	e.ended = res.Terminal

	for _, ev := range res.Events {
		e.logger.Debug("router event", "type", ev.Type, "data", ev.Data)
	}
	turn.Notices = events.Dispatch(res.Events, e.handlers)
	e.logger.Info("turn",
		"choice", choiceID,
		"move", res.Move.Kind.String(),
		"key", string(res.Key),
		"segments", len(segs),
		"choices", len(turn.Choices),
	)

	e.record(ctx, turn)
	e.last = turn
	return turn, nil
}

func (e *Engine) begin(ctx context.Context, onSegment func(types.Segment)) (Turn, error) {
	segs, err := e.fetch(ctx, "", state.New(), onSegment)
	if err != nil {
		return Turn{}, err
	}

	e.progress = state.New()
	e.transcript = append([]types.Segment(nil), segs...)
	e.selected = nil
	e.turn = 0
	e.started = true
	e.ended = false

	turn := Turn{Key: story.KeyIntro, Segments: segs}
	turn.Choices, turn.Complete = e.parsedChoices()
	e.offered = turn.Choices
	e.logger.Info("story started", "title", e.story.Title, "segments", len(segs), "choices", len(turn.Choices))

	if e.journal != nil {
		prompt := ""
		if len(segs) > 0 {
			prompt = segs[0].Text
		}
		if err := e.journal.Begin(ctx, e.story.Title, prompt); err != nil {
			e.logger.Warn("journal begin failed", "error", err)
		}
	}
	e.record(ctx, turn)
	e.last = turn
	return turn, nil
}

// parsedChoices returns the parser's choices. A fragment that ends without
// any keeps the session alive by offering the hub.
func (e *Engine) parsedChoices() ([]types.Choice, bool) {
	choices := e.parser.Choices()
	if len(choices) == 0 {
		e.logger.Warn("fragment offered no choices, falling back to hub")
		return []types.Choice{{ID: router.ChooseOther, Text: "Talk to someone else"}}, false
	}
	return choices, e.parser.Complete()
}

func (e *Engine) checkOffered(choiceID string) error {
	for _, c := range e.offered {
		if c.ID != choiceID {
			continue
		}
		if c.Disabled {
			return fmt.Errorf("%w: %q", ErrChoiceDisabled, choiceID)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrChoiceNotOffered, choiceID)
}

// fetch streams one fragment through a freshly reset parser.
func (e *Engine) fetch(ctx context.Context, choiceID string, before state.Progress, onSegment func(types.Segment)) ([]types.Segment, error) {
	rc, err := e.source.Open(ctx, choiceID, before)
	if err != nil {
		return nil, fmt.Errorf("opening fragment for %q: %w", choiceID, err)
	}
	defer rc.Close()

	e.parser.Reset()
	var segs []types.Segment
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, rerr := rc.Read(buf)
		if n > 0 {
			for _, s := range e.parser.ProcessChunk(string(buf[:n])) {
				segs = append(segs, s)
				if onSegment != nil {
					onSegment(s)
				}
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return nil, fmt.Errorf("reading fragment for %q: %w", choiceID, rerr)
		}
	}
	if rest := e.parser.Pending(); rest != "" {
		e.logger.Debug("unconsumed markup", "choice", choiceID, "bytes", len(rest))
	}
	return segs, nil
}

func (e *Engine) record(ctx context.Context, t Turn) {
	if e.journal == nil {
		return
	}
	err := e.journal.Record(ctx, JournalEntry{ChoiceID: t.ChoiceID, Segments: t.Segments, Choices: t.Choices})
	if err != nil {
		e.logger.Warn("journal record failed", "choice", t.ChoiceID, "error", err)
	}
}

// Story returns the story being played.
func (e *Engine) Story() *story.Story { return e.story }

// Router returns the session's router.
func (e *Engine) Router() *router.Router { return e.router }

// Progress returns a copy of the session progress.
func (e *Engine) Progress() state.Progress { return e.progress.Clone() }

// Choices returns the choices currently on offer.
func (e *Engine) Choices() []types.Choice { return append([]types.Choice(nil), e.offered...) }

// Transcript returns every segment shown so far.
func (e *Engine) Transcript() []types.Segment {
	return append([]types.Segment(nil), e.transcript...)
}

// History returns the selected choice ids in order.
func (e *Engine) History() []string { return append([]string(nil), e.selected...) }

// TurnCount returns the number of choices made.
func (e *Engine) TurnCount() int { return e.turn }

// Started reports whether Start has run.
func (e *Engine) Started() bool { return e.started }

// Ended reports whether the epilogue has been reached.
func (e *Engine) Ended() bool { return e.ended }

// LastTurn returns the most recent turn.
func (e *Engine) LastTurn() Turn { return e.last }

// Book returns the character book for this session.
func (e *Engine) Book() []dialogue.Entry {
	return dialogue.Book(e.story, e.progress, e.transcript)
}

// SaveData captures the session for save.Save.
func (e *Engine) SaveData() *save.SaveData {
	rng := e.chunker.RNG()
	return &save.SaveData{
		Version:    save.FormatVersion,
		Story:      e.story.Title,
		Turn:       e.turn,
		Progress:   e.progress.ToWire(),
		Choices:    e.Choices(),
		Selected:   e.History(),
		Transcript: e.Transcript(),
		Ended:      e.ended,
		RNGSeed:    rng.Seed(),
		RNGPos:     rng.Position(),
	}
}

// Restore replaces the session with saved data.
func (e *Engine) Restore(sd *save.SaveData) error {
	if sd.Story != e.story.Title {
		return fmt.Errorf("save is for story %q, playing %q", sd.Story, e.story.Title)
	}
	e.progress = state.FromWire(sd.Progress)
	e.offered = append([]types.Choice(nil), sd.Choices...)
	e.transcript = append([]types.Segment(nil), sd.Transcript...)
	e.selected = append([]string(nil), sd.Selected...)
	e.turn = sd.Turn
	e.ended = sd.Ended
	e.started = true
	e.chunker.Restore(sd.RNGSeed, sd.RNGPos)
	e.parser.Reset()
	e.last = Turn{Choices: e.Choices(), Complete: true, Ended: sd.Ended}
	return nil
}
