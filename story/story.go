// Package story defines narrative content: the cast, each character's
// staged fragments, the hub prompt and the epilogue.
package story

import (
	"fmt"
	"os"
	"strings"

	"github.com/nathoo/vnplayer/types"
)

// Key names a fragment in the narrative graph.
type Key string

const (
	KeyIntro Key = "INTRO"
	KeyHub   Key = "HUB"
	KeyEnd   Key = "END"
)

// FragmentKey returns the key of a character's stage fragment, e.g.
// "LUMINE_L2". An unset stage names the first-stage fragment.
func FragmentKey(charID string, s types.Stage) Key {
	if s == types.StageUnset {
		s = types.StageL1
	}
	return Key(strings.ToUpper(charID) + "_" + s.String())
}

// Character is one member of the cast.
type Character struct {
	ID          string
	Name        string
	Title       string
	Description string
	HubLabel    string // label of the hub's "talk to" entry

	// Fragments holds the markup for StageL1, StageL2 and StageClose.
	Fragments map[types.Stage]string
}

// Fragment returns the markup for a stage. Unset resolves to L1.
func (c *Character) Fragment(s types.Stage) string {
	if s == types.StageUnset {
		s = types.StageL1
	}
	return c.Fragments[s]
}

// Story is a complete piece of hub-and-thread content.
type Story struct {
	Title     string
	Intro     string // markup shown before the first choice
	HubPrompt string // narrator line at the top of the hub
	EndLabel  string // label of the hub's end entry
	End       string // terminal epilogue markup
	Cast      []Character
}

// Character looks up a cast member by id.
func (s *Story) Character(id string) (*Character, bool) {
	for i := range s.Cast {
		if s.Cast[i].ID == id {
			return &s.Cast[i], true
		}
	}
	return nil, false
}

// CastIDs returns the character ids in cast order.
func (s *Story) CastIDs() []string {
	ids := make([]string, len(s.Cast))
	for i, c := range s.Cast {
		ids[i] = c.ID
	}
	return ids
}

// Fragment returns the static markup stored under key. The hub is
// generated from progress and is not stored.
func (s *Story) Fragment(k Key) (string, bool) {
	switch k {
	case KeyIntro:
		return s.Intro, s.Intro != ""
	case KeyEnd:
		return s.End, true
	case KeyHub:
		return "", false
	}
	for i := range s.Cast {
		c := &s.Cast[i]
		for _, st := range []types.Stage{types.StageL1, types.StageL2, types.StageClose} {
			if FragmentKey(c.ID, st) == k {
				return c.Fragments[st], true
			}
		}
	}
	return "", false
}

// LoadIntro reads an intro fragment from disk.
func LoadIntro(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading intro %s: %w", path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("intro %s is empty", path)
	}
	return string(data), nil
}
