// Package events implements single-pass event handler dispatch.
// Handlers turn router events into player-facing notices; they never emit
// further events.
package events

import "github.com/nathoo/vnplayer/types"

// Handler reacts to one event type. Notify returns a notice to show the
// player, or "" for none.
type Handler struct {
	EventType string
	Notify    func(types.Event) string
}

// Dispatch runs handlers against the emitted events in order. Single pass,
// no recursion.
func Dispatch(evts []types.Event, handlers []Handler) []string {
	var notices []string
	for _, ev := range evts {
		for _, h := range handlers {
			if h.EventType != ev.Type || h.Notify == nil {
				continue
			}
			if msg := h.Notify(ev); msg != "" {
				notices = append(notices, msg)
			}
		}
	}
	return notices
}

// String returns a string field from event data, or "".
func String(ev types.Event, key string) string {
	if s, ok := ev.Data[key].(string); ok {
		return s
	}
	return ""
}
