package router

import "strings"

// Control choice ids shared by every story.
const (
	ChooseOther = "hub_choose_other"
	EndStory    = "end_story"
)

// TalkID is the hub entry that opens a character's thread.
func TalkID(char string) string { return "talk_" + char }

// ReturnID is the closing choice that finishes a character's thread.
func ReturnID(char string) string { return "hub_return_after_" + char }

// CompletedID is the disabled hub entry shown for a finished thread.
func CompletedID(char string) string { return "completed_" + char }

// Kind enumerates the moves a choice id can make.
type Kind int

const (
	MoveUnknown Kind = iota
	MoveTalk         // talk_<c>: open a thread at its current stage
	MoveStage1       // <c>_l1_*: answer a stage-1 prompt
	MoveStage2       // <c>_l2_*: answer a stage-2 prompt
	MoveReturn       // hub_return_after_<c>: finish a thread
	MoveHub          // hub_choose_other
	MoveEnd          // end_story
)

var kindNames = [...]string{"unknown", "talk", "stage1", "stage2", "return", "hub", "end"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Move is a classified choice id. Character is set for the per-character
// kinds.
type Move struct {
	Kind      Kind
	Character string
}

// Classify maps a choice id onto a move. Ids matching nothing, including
// the disabled completed_<c> entries, classify as MoveUnknown.
func (r *Router) Classify(choiceID string) Move {
	if m, ok := r.exact[choiceID]; ok {
		return m
	}

	// Stage answers are prefix-scoped; the longest matching character id
	// wins so that overlapping ids cannot steal each other's choices.
	var best Move
	bestLen := -1
	for _, c := range r.cast {
		for _, p := range []struct {
			prefix string
			kind   Kind
		}{
			{c + "_l1_", MoveStage1},
			{c + "_l2_", MoveStage2},
		} {
			if strings.HasPrefix(choiceID, p.prefix) && len(c) > bestLen {
				best = Move{Kind: p.kind, Character: c}
				bestLen = len(c)
			}
		}
	}
	if bestLen >= 0 {
		return best
	}
	return Move{Kind: MoveUnknown}
}
