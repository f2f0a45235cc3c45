// Package dialogue builds the character book: who the player has met and
// what they said.
package dialogue

import (
	"strings"

	"github.com/nathoo/vnplayer/engine/state"
	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Entry is one page of the character book.
type Entry struct {
	ID          string
	Name        string
	Title       string
	Description string
	Stage       types.Stage
	Completed   bool
	Lines       []types.Segment // everything the character said or did, in order
}

// Quotes returns the spoken lines, skipping parenthesised actions.
func (e Entry) Quotes() []string {
	var out []string
	for _, l := range e.Lines {
		if IsAction(l) {
			continue
		}
		out = append(out, l.Text)
	}
	return out
}

// IsAction reports whether a segment is a stage direction.
func IsAction(s types.Segment) bool {
	return strings.HasPrefix(s.Text, "(") && strings.HasSuffix(s.Text, ")")
}

// Book returns an entry for every cast member who has appeared in the
// transcript, in cast order.
func Book(st *story.Story, p state.Progress, transcript []types.Segment) []Entry {
	var entries []Entry
	for _, c := range st.Cast {
		var lines []types.Segment
		for _, seg := range transcript {
			if Speaks(c, seg.Speaker) {
				lines = append(lines, seg)
			}
		}
		if len(lines) == 0 {
			continue
		}
		entries = append(entries, Entry{
			ID:          c.ID,
			Name:        c.Name,
			Title:       c.Title,
			Description: c.Description,
			Stage:       p.Stage(c.ID),
			Completed:   p.IsCompleted(c.ID),
			Lines:       lines,
		})
	}
	return entries
}

// Speaks reports whether speaker refers to character c.
func Speaks(c story.Character, speaker types.Speaker) bool {
	s := string(speaker)
	return strings.EqualFold(s, c.Name) || strings.EqualFold(s, c.ID)
}

// Lookup finds the cast member for a speaker.
func Lookup(st *story.Story, speaker types.Speaker) (*story.Character, bool) {
	for i := range st.Cast {
		if Speaks(st.Cast[i], speaker) {
			return &st.Cast[i], true
		}
	}
	return nil, false
}

var titleCase = cases.Title(language.Und)

// DisplayName is how a speaker is shown: the cast name when the speaker is
// a cast member, otherwise the speaker title-cased ("OLD SAILOR" becomes
// "Old Sailor"). The narrator has no name.
func DisplayName(st *story.Story, speaker types.Speaker) string {
	if speaker == types.Narrator || speaker == "" {
		return ""
	}
	if c, ok := Lookup(st, speaker); ok {
		return c.Name
	}
	return titleCase.String(strings.ToLower(string(speaker)))
}
