// Package router selects the next story fragment for a chosen option.
//
// Routing is a pure function of the choice id and the session progress:
// the caller owns the progress, passes it in, and keeps the updated copy
// returned in the Result. Every input maps to some fragment.
package router

import (
	"github.com/nathoo/vnplayer/engine/state"
	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
)

// Router resolves choices against one story.
type Router struct {
	story *story.Story
	cast  []string
	exact map[string]Move
}

// New builds a router for st.
func New(st *story.Story) *Router {
	r := &Router{
		story: st,
		cast:  st.CastIDs(),
		exact: map[string]Move{
			ChooseOther: {Kind: MoveHub},
			EndStory:    {Kind: MoveEnd},
		},
	}
	for _, c := range r.cast {
		r.exact[TalkID(c)] = Move{Kind: MoveTalk, Character: c}
		r.exact[ReturnID(c)] = Move{Kind: MoveReturn, Character: c}
	}
	return r
}

// Story returns the story being routed.
func (r *Router) Story() *story.Story { return r.story }

// Result is the outcome of routing one choice.
type Result struct {
	Move     Move
	Key      story.Key
	Fragment string
	Progress state.Progress // input progress with the transition applied
	Terminal bool           // no further choices follow
	Events   []types.Event
}

// Route resolves choiceID against p. p itself is never modified.
func (r *Router) Route(choiceID string, p state.Progress) Result {
	next := p.Clone()
	m := r.Classify(choiceID)
	res := Result{Move: m}

	switch m.Kind {
	case MoveTalk:
		// Opening a thread only looks at progress.
		stage := next.Stage(m.Character)
		res.Key = story.FragmentKey(m.Character, stage)
		res.Fragment = r.stageFragment(m.Character, stage)

	case MoveStage1:
		res.Events = r.advance(&next, m.Character, types.StageL2)
		res.Key = story.FragmentKey(m.Character, types.StageL2)
		res.Fragment = r.stageFragment(m.Character, types.StageL2)

	case MoveStage2:
		res.Events = r.advance(&next, m.Character, types.StageClose)
		res.Key = story.FragmentKey(m.Character, types.StageClose)
		res.Fragment = r.stageFragment(m.Character, types.StageClose)

	case MoveReturn:
		if next.Complete(m.Character) {
			res.Events = append(res.Events, types.Event{
				Type: types.EventThreadCompleted,
				Data: map[string]any{"character": m.Character},
			})
		}
		res.Key = story.KeyHub
		res.Fragment = r.Hub(next)

	case MoveHub:
		res.Key = story.KeyHub
		res.Fragment = r.Hub(next)

	case MoveEnd:
		res.Key = story.KeyEnd
		res.Fragment = r.story.End
		res.Terminal = true
		res.Events = append(res.Events, types.Event{
			Type: types.EventStoryEnded,
			Data: map[string]any{"completed": len(next.Completed), "cast": len(r.cast)},
		})

	default:
		res.Key = story.KeyHub
		res.Fragment = r.Hub(next)
		res.Events = append(res.Events, types.Event{
			Type: types.EventUnknownChoice,
			Data: map[string]any{"choice": choiceID},
		})
	}

	res.Progress = next
	return res
}

func (r *Router) advance(p *state.Progress, char string, to types.Stage) []types.Event {
	from := p.Stage(char)
	if !p.Advance(char, to) {
		return nil
	}
	return []types.Event{{
		Type: types.EventStageAdvanced,
		Data: map[string]any{"character": char, "from": from.String(), "to": to.String()},
	}}
}

func (r *Router) stageFragment(char string, s types.Stage) string {
	c, ok := r.story.Character(char)
	if !ok {
		return r.story.End
	}
	return c.Fragment(s)
}
