package loader

import (
	"fmt"
	"strings"

	"github.com/nathoo/vnplayer/engine/markup"
	"github.com/nathoo/vnplayer/engine/router"
	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

var stages = []types.Stage{types.StageL1, types.StageL2, types.StageClose}

// validate checks the compiled story for completeness and consistency.
// Warnings are returned even when there are no errors.
func validate(st *story.Story, coll *collector) ([]string, error) {
	ve := &ValidationError{}

	if coll.story == nil {
		ve.Errors = append(ve.Errors, "Story { ... } is required")
	}
	if st.Title == "" {
		ve.Errors = append(ve.Errors, "Story.title is required")
	}
	if st.HubPrompt == "" {
		ve.Errors = append(ve.Errors, "Story.hub_prompt is required")
	}
	if len(st.Cast) == 0 {
		ve.Errors = append(ve.Errors, "at least one Character is required")
	}
	if strings.TrimSpace(st.Intro) == "" {
		ve.Warnings = append(ve.Warnings, "no Intro: the story opens on the hub fallback")
	}
	if strings.TrimSpace(st.End) == "" {
		ve.Warnings = append(ve.Warnings, "no End: ending the story shows nothing")
	}

	seen := map[string]bool{}
	for _, c := range st.Cast {
		if seen[c.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("character %q defined more than once", c.ID))
			continue
		}
		seen[c.ID] = true

		if c.Name == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("character %q has no name", c.ID))
		}
		if c.HubLabel == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("character %q has no hub_label", c.ID))
		}
		for _, s := range stages {
			if strings.TrimSpace(c.Fragments[s]) == "" {
				ve.Errors = append(ve.Errors, fmt.Sprintf("character %q is missing its %s fragment", c.ID, s))
				continue
			}
			checkFragment(c, s, ve)
		}
	}

	for _, rf := range coll.fragments {
		if !seen[rf.character] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("fragment for undefined character %q", rf.character))
		}
	}

	if len(ve.Errors) > 0 {
		return ve.Warnings, ve
	}
	return ve.Warnings, nil
}

// checkFragment parses a fragment and warns when its choices cannot move
// the thread along.
func checkFragment(c story.Character, s types.Stage, ve *ValidationError) {
	p := markup.New(markup.WithoutFallback())
	if len(p.ProcessChunk(c.Fragments[s])) == 0 {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s %s fragment shows no dialogue", c.ID, s))
	}
	choices := p.Choices()
	if len(choices) == 0 {
		ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s %s fragment offers no choices", c.ID, s))
		return
	}

	var want string
	switch s {
	case types.StageL1:
		want = c.ID + "_l1_"
	case types.StageL2:
		want = c.ID + "_l2_"
	case types.StageClose:
		want = router.ReturnID(c.ID)
	}
	for _, ch := range choices {
		if strings.HasPrefix(ch.ID, want) {
			return
		}
	}
	ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s %s fragment has no %q choice", c.ID, s, want))
}
