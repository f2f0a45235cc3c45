// Package loader loads Lua story content into Go structs at load time.
// The Lua VM is discarded after loading; no Lua runs during play.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nathoo/vnplayer/story"
	"github.com/nathoo/vnplayer/types"
	lua "github.com/yuin/gopher-lua"
)

// rawCharacter holds a character table before compilation.
type rawCharacter struct {
	id    string
	table *lua.LTable
	order int
}

// rawFragment holds a stage fragment before compilation.
type rawFragment struct {
	character string
	stage     string
	text      string
	order     int
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// compile converts the collected Lua values into a Story. Problems that
// need the whole story to detect are left to validate.
func compile(coll *collector, dir string) (*story.Story, error) {
	st := &story.Story{}

	if coll.story != nil {
		st.Title = getString(coll.story, "title")
		st.HubPrompt = getString(coll.story, "hub_prompt")
		st.EndLabel = getString(coll.story, "end_label")

		if f := getString(coll.story, "intro_file"); f != "" {
			if !filepath.IsAbs(f) {
				f = filepath.Join(dir, f)
			}
			intro, err := story.LoadIntro(f)
			if err != nil {
				return nil, err
			}
			st.Intro = intro
		}
	}
	if st.EndLabel == "" {
		st.EndLabel = "End the conversation"
	}
	if coll.intro != nil {
		st.Intro = dedent(*coll.intro)
	}
	if coll.end != nil {
		st.End = dedent(*coll.end)
	}

	for _, rc := range coll.characters {
		st.Cast = append(st.Cast, story.Character{
			ID:          rc.id,
			Name:        getString(rc.table, "name"),
			Title:       getString(rc.table, "title"),
			Description: getString(rc.table, "description"),
			HubLabel:    getString(rc.table, "hub_label"),
			Fragments:   map[types.Stage]string{},
		})
	}

	for _, rf := range coll.fragments {
		c, ok := st.Character(rf.character)
		if !ok {
			continue // reported by validate
		}
		stage := types.ParseStage(strings.ToUpper(rf.stage))
		if stage == types.StageUnset {
			return nil, fmt.Errorf("fragment %s: unknown stage %q (want L1, L2 or CLOSE)", rf.character, rf.stage)
		}
		c.Fragments[stage] = dedent(rf.text)
	}
	return st, nil
}

// dedent strips a leading newline and the common indentation of a Lua
// long string.
func dedent(s string) string {
	s = strings.TrimPrefix(s, "\n")
	lines := strings.Split(s, "\n")
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent > 0 {
		for i, l := range lines {
			if len(l) >= indent {
				lines[i] = l[indent:]
			} else {
				lines[i] = strings.TrimLeft(l, " \t")
			}
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\n")
}
