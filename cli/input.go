package cli

import (
	"strconv"
	"strings"

	"github.com/nathoo/vnplayer/types"
)

// Action is what a line of player input asks for.
type Action int

const (
	ActNone     Action = iota // blank line or comment
	ActChoose                 // select Input.ChoiceID
	ActMeta                   // run Input.Meta with Input.Arg
	ActDisabled               // named a choice that cannot be taken
	ActUnknown                // matched nothing
)

// Input is one parsed line.
type Input struct {
	Action   Action
	ChoiceID string
	Meta     string
	Arg      string
}

// aliases are single-word shortcuts for meta commands.
var aliases = map[string]string{
	"q":    "/quit",
	"quit": "/quit",
	"exit": "/quit",
	"b":    "/book",
	"h":    "/help",
	"?":    "/help",
}

// ParseInput maps a line onto the choices on offer. Numbers select by
// position (from 1), a choice id or the full choice text selects that
// choice, and lines starting with / or matching an alias are meta
// commands.
func ParseInput(line string, choices []types.Choice) Input {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Input{Action: ActNone}
	}

	fields := strings.Fields(line)
	head := strings.ToLower(fields[0])
	if meta, ok := aliases[head]; ok && len(fields) == 1 {
		return Input{Action: ActMeta, Meta: meta}
	}
	if strings.HasPrefix(head, "/") {
		in := Input{Action: ActMeta, Meta: head}
		if len(fields) > 1 {
			in.Arg = strings.Join(fields[1:], " ")
		}
		return in
	}

	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(choices) {
			return Input{Action: ActUnknown}
		}
		return pick(choices[n-1])
	}
	for _, c := range choices {
		if strings.EqualFold(c.ID, line) || strings.EqualFold(strings.TrimSpace(c.Text), line) {
			return pick(c)
		}
	}
	return Input{Action: ActUnknown}
}

func pick(c types.Choice) Input {
	if c.Disabled {
		return Input{Action: ActDisabled, ChoiceID: c.ID}
	}
	return Input{Action: ActChoose, ChoiceID: c.ID}
}
