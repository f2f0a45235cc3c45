// Package markup decodes story markup delivered in chunks of any size into
// dialogue segments and choices.
//
// The parser keeps an explicit absolute offset of consumed input. A construct
// only advances that offset once both its opening and closing tags have
// arrived; everything after the last complete construct stays buffered for
// the next call. There is no error path: malformed input simply produces no
// new segments.
package markup

import (
	"strings"

	"github.com/nathoo/vnplayer/types"
)

// DefaultFallbackTail is the trimmed tail length under which the fallback
// choices may fire.
const DefaultFallbackTail = 50

// DefaultChoices are offered for legacy content that ends without a
// <choices> block.
var DefaultChoices = []types.Choice{
	{ID: "approach_lumine", Text: "Approach Lumine and ask about her travels between worlds"},
	{ID: "talk_zhongli", Text: "Sit with Zhongli and inquire about the contracts he mentioned"},
	{ID: "challenge_tartaglia", Text: "Accept Tartaglia's challenge and show your fighting prowess"},
	{ID: "listen_venti", Text: "Listen to Venti's music and share a story of your own"},
}

// Option configures a Parser.
type Option func(*Parser)

// WithFallbackChoices replaces the default fallback choices.
func WithFallbackChoices(choices []types.Choice) Option {
	return func(p *Parser) {
		p.fallback = append([]types.Choice(nil), choices...)
	}
}

// WithFallbackTail sets the tail length limit for the fallback heuristic.
func WithFallbackTail(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.fallbackTail = n
		}
	}
}

// WithoutFallback disables fallback choices entirely.
func WithoutFallback() Option {
	return func(p *Parser) { p.noFallback = true }
}

// constructs are the top-level elements the parser recognises.
var constructs = map[string]bool{
	"narrator":  true,
	"character": true,
	"segment":   true,
	"line":      true,
	"choices":   true,
}

var (
	beatTags   = map[string]bool{"action": true, "say": true, "dialogue": true}
	recordTags = map[string]bool{"speaker": true, "emotion": true, "text": true}
	choiceTags = map[string]bool{"choice": true}
)

// pending is an opened construct whose close tag has not arrived yet.
type pending struct {
	at     int    // absolute offset of the opening '<'
	name   string // construct name
	resume int    // absolute offset where the close-tag search continues
}

// origin identifies one logical segment within a scan.
type origin struct {
	at      int
	speaker types.Speaker
	emotion types.Emotion
	text    string
}

// Parser is an incremental markup decoder. It is not safe for concurrent use.
type Parser struct {
	buf  string // unconsumed input; buf[0] sits at absolute offset base
	base int

	segments []types.Segment
	choices  []types.Choice
	choiceID map[string]bool
	complete bool
	fellBack bool // choices holds only the fallback set
	pending  *pending

	fallback     []types.Choice
	fallbackTail int
	noFallback   bool
}

// New returns a parser ready for a fresh story session.
func New(opts ...Option) *Parser {
	p := &Parser{
		fallback:     DefaultChoices,
		fallbackTail: DefaultFallbackTail,
		choiceID:     map[string]bool{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessChunk appends chunk to the buffer and returns the segments it
// completed, in source order.
func (p *Parser) ProcessChunk(chunk string) []types.Segment {
	p.buf += chunk

	sc := scan{p: p, seen: map[origin]bool{}}
	consumed := 0
	i := 0
	for i < len(p.buf) {
		lt := strings.IndexByte(p.buf[i:], '<')
		if lt < 0 {
			break
		}
		i += lt

		t, n, ok := readTag(p.buf, i)
		if !ok {
			break
		}
		if t.kind != kindOpen || !constructs[t.name] || t.selfClosing {
			i = n
			continue
		}

		from := n
		if pd := p.pending; pd != nil && pd.at == p.base+i && pd.name == t.name {
			from = max(n, pd.resume-p.base)
		}
		cs, ce, found := findClose(p.buf, from, t.name)
		if !found {
			p.pending = &pending{at: p.base + i, name: t.name, resume: p.base + resumePoint(p.buf, from)}
			break
		}
		p.pending = nil

		sc.construct(t, p.buf[n:cs], p.base+n)
		i = ce
		consumed = ce
	}

	p.buf = p.buf[consumed:]
	p.base += consumed
	p.maybeFallback()
	return sc.out
}

// Choices returns the choices discovered so far, in discovery order.
func (p *Parser) Choices() []types.Choice {
	return append([]types.Choice(nil), p.choices...)
}

// Segments returns every segment emitted since the last reset.
func (p *Parser) Segments() []types.Segment {
	return append([]types.Segment(nil), p.segments...)
}

// Complete reports whether a choice set has been established.
func (p *Parser) Complete() bool { return p.complete }

// Pending returns the unconsumed tail of the buffer.
func (p *Parser) Pending() string { return p.buf }

// Offset returns the absolute offset of consumed input.
func (p *Parser) Offset() int { return p.base }

// Reset clears all parse state. Options are kept.
func (p *Parser) Reset() {
	p.buf = ""
	p.base = 0
	p.segments = nil
	p.choices = nil
	p.choiceID = map[string]bool{}
	p.complete = false
	p.fellBack = false
	p.pending = nil
}

func (p *Parser) maybeFallback() {
	if p.noFallback || p.complete || len(p.choices) > 0 || len(p.segments) == 0 || p.pending != nil {
		return
	}
	if strings.Count(p.buf, "<") > strings.Count(p.buf, ">") {
		return
	}
	if len(strings.TrimSpace(p.buf)) >= p.fallbackTail {
		return
	}
	for _, c := range p.fallback {
		p.addChoice(c)
	}
	if len(p.choices) > 0 {
		p.complete = true
		p.fellBack = true
	}
}

// FellBack reports whether the current choices are the fallback set.
func (p *Parser) FellBack() bool { return p.fellBack }

func (p *Parser) addChoice(c types.Choice) bool {
	if c.ID == "" || p.choiceID[c.ID] {
		return false
	}
	p.choiceID[c.ID] = true
	p.choices = append(p.choices, c)
	return true
}

// scan holds the per-call emission state.
type scan struct {
	p    *Parser
	seen map[origin]bool
	out  []types.Segment
}

func (s *scan) emit(at int, speaker types.Speaker, emotion types.Emotion, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	key := origin{at: at, speaker: speaker, emotion: emotion, text: text}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	seg := types.Segment{Speaker: speaker, Emotion: emotion, Text: text}
	s.out = append(s.out, seg)
	s.p.segments = append(s.p.segments, seg)
}

// construct handles one closed top-level element. inner starts at absolute
// offset at.
func (s *scan) construct(t tag, inner string, at int) {
	switch t.name {
	case "narrator":
		s.emit(at, types.Narrator, types.Neutral, inner)
	case "character":
		s.character(t.attrs, inner, at)
	case "segment", "line":
		s.record(inner, at)
	case "choices":
		s.choices(inner)
	}
}

func (s *scan) character(attrs map[string]string, inner string, at int) {
	name := strings.TrimSpace(attrs["name"])
	if name == "" {
		return
	}
	speaker := SpeakerFor(name)
	declared, hasDeclared := emotionAttr(attrs)

	beats := children(inner, beatTags)
	if len(beats) == 0 {
		s.emit(at, speaker, NormalizeEmotion(declared), inner)
		return
	}

	// Compact single-line form: one action followed by one say.
	if !strings.ContainsAny(inner, "\r\n") && len(beats) == 2 &&
		beats[0].name == "action" && beats[1].name != "action" {
		label, _ := emotionAttr(beats[0].attrs)
		e := NormalizeEmotion(label)
		s.emitAction(at+beats[0].at, speaker, e, beats[0].text)
		s.emit(at+beats[1].at, speaker, e, beats[1].text)
	}

	current := types.Neutral
	if hasDeclared {
		current = NormalizeEmotion(declared)
	}
	for _, b := range beats {
		if b.name == "action" {
			label, _ := emotionAttr(b.attrs)
			current = NormalizeEmotion(label)
			s.emitAction(at+b.at, speaker, current, b.text)
			continue
		}
		s.emit(at+b.at, speaker, current, b.text)
	}
}

func (s *scan) emitAction(at int, speaker types.Speaker, e types.Emotion, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s.emit(at, speaker, e, "("+text+")")
}

func (s *scan) record(inner string, at int) {
	fields := map[string]string{}
	for _, f := range children(inner, recordTags) {
		if _, ok := fields[f.name]; !ok {
			fields[f.name] = strings.TrimSpace(f.text)
		}
	}
	speaker := types.Narrator
	if name := fields["speaker"]; name != "" {
		speaker = SpeakerFor(name)
	}
	s.emit(at, speaker, NormalizeEmotion(fields["emotion"]), fields["text"])
}

// choices adds the choices of a closed <choices> block. Fallback choices
// that fired while the block was still in flight give way to it.
func (s *scan) choices(inner string) {
	var found []types.Choice
	for _, c := range children(inner, choiceTags) {
		id := strings.TrimSpace(c.attrs["id"])
		label := strings.TrimSpace(c.text)
		if id == "" || label == "" {
			continue
		}
		found = append(found, types.Choice{
			ID:       id,
			Text:     label,
			Disabled: strings.EqualFold(strings.TrimSpace(c.attrs["disabled"]), "true"),
		})
	}
	if len(found) == 0 {
		return
	}
	if s.p.fellBack {
		s.p.choices = nil
		s.p.choiceID = map[string]bool{}
		s.p.fellBack = false
	}
	for _, c := range found {
		s.p.addChoice(c)
	}
	s.p.complete = true
}

// emotionAttr returns the emotion label of an element, accepting both
// "emotion" and "expression".
func emotionAttr(attrs map[string]string) (string, bool) {
	if v, ok := attrs["emotion"]; ok {
		return v, true
	}
	v, ok := attrs["expression"]
	return v, ok
}

// SpeakerFor maps a markup name onto a speaker. "Narrator" in any case is
// the narrator; every other name is upper-cased.
func SpeakerFor(name string) types.Speaker {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == string(types.Narrator) {
		return types.Narrator
	}
	return types.Speaker(upper)
}
