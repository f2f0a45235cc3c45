// Package state holds the per-session narrative progress: how far each
// character's thread has advanced and which threads are finished.
package state

import (
	"slices"

	"github.com/nathoo/vnplayer/types"
)

// Progress is the router's session state. The zero value is an empty
// session. Stages never regress and a thread completes at most once.
type Progress struct {
	Completed []string
	Stages    map[string]types.Stage
}

// New returns an empty progress value.
func New() Progress {
	return Progress{Completed: []string{}, Stages: map[string]types.Stage{}}
}

// Stage returns the current stage of a character. Unknown characters are
// StageUnset.
func (p Progress) Stage(char string) types.Stage {
	return p.Stages[char]
}

// Advance moves a character to stage s. It reports whether anything
// changed; moving backwards or sideways is a no-op.
func (p *Progress) Advance(char string, s types.Stage) bool {
	if s <= p.Stages[char] {
		return false
	}
	if p.Stages == nil {
		p.Stages = map[string]types.Stage{}
	}
	p.Stages[char] = s
	return true
}

// Complete marks a character's thread as finished. It reports whether the
// thread was newly completed.
func (p *Progress) Complete(char string) bool {
	if p.IsCompleted(char) {
		return false
	}
	p.Completed = append(p.Completed, char)
	return true
}

// IsCompleted reports whether a character's thread is finished.
func (p Progress) IsCompleted(char string) bool {
	return slices.Contains(p.Completed, char)
}

// Clone returns a deep copy.
func (p Progress) Clone() Progress {
	c := New()
	c.Completed = append(c.Completed, p.Completed...)
	for k, v := range p.Stages {
		c.Stages[k] = v
	}
	return c
}

// Wire is the transport form used by HTTP clients and save files.
type Wire struct {
	CompletedThreads  []string          `json:"completedThreads"`
	CharacterProgress map[string]string `json:"characterProgress"`
}

// ToWire converts progress to its transport form. Unset stages are omitted.
func (p Progress) ToWire() Wire {
	w := Wire{
		CompletedThreads:  append([]string{}, p.Completed...),
		CharacterProgress: map[string]string{},
	}
	for k, v := range p.Stages {
		if v != types.StageUnset {
			w.CharacterProgress[k] = v.String()
		}
	}
	return w
}

// FromWire builds progress from its transport form. Duplicate thread ids
// collapse and unknown stage strings are treated as unset.
func FromWire(w Wire) Progress {
	p := New()
	for _, c := range w.CompletedThreads {
		p.Complete(c)
	}
	for k, v := range w.CharacterProgress {
		p.Advance(k, types.ParseStage(v))
	}
	return p
}
