package router

import (
	"strings"

	"github.com/nathoo/vnplayer/engine/state"
)

// Hub renders the hub menu for the given progress. Entries keep cast order;
// finished threads stay in place as disabled completed_<c> entries and the
// end entry is always last.
func (r *Router) Hub(p state.Progress) string {
	var b strings.Builder
	b.WriteString("<character name=\"NARRATOR\">\n  <say>")
	b.WriteString(r.story.HubPrompt)
	b.WriteString("</say>\n</character>\n\n<choices>\n")
	for _, c := range r.story.Cast {
		if p.IsCompleted(c.ID) {
			b.WriteString(`  <choice id="` + CompletedID(c.ID) + `" disabled="true">` + c.HubLabel + " ✅ (Completed)</choice>\n")
			continue
		}
		b.WriteString(`  <choice id="` + TalkID(c.ID) + `">` + c.HubLabel + "</choice>\n")
	}
	b.WriteString(`  <choice id="` + EndStory + `">` + r.story.EndLabel + "</choice>\n")
	b.WriteString("</choices>")
	return b.String()
}
