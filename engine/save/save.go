// Package save implements JSON serialization and deserialization of a
// play session.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/vnplayer/engine/state"
	"github.com/nathoo/vnplayer/types"
)

// FormatVersion is written into every save.
const FormatVersion = "1"

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version    string          `json:"version"`
	Story      string          `json:"story"`
	Turn       int             `json:"turn"`
	Progress   state.Wire      `json:"progress"`
	Choices    []types.Choice  `json:"choices"`
	Selected   []string        `json:"selected"`
	Transcript []types.Segment `json:"transcript"`
	Ended      bool            `json:"ended"`
	RNGSeed    int64           `json:"rng_seed"`
	RNGPos     int64           `json:"rng_pos"`
}

// Save serializes a session to JSON bytes.
func Save(sd *SaveData) ([]byte, error) {
	if sd.Version == "" {
		sd.Version = FormatVersion
	}
	return json.MarshalIndent(sd, "", "  ")
}

// Load deserializes JSON bytes into SaveData.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported save version %q", sd.Version)
	}
	// Ensure collections are never nil after load.
	if sd.Progress.CompletedThreads == nil {
		sd.Progress.CompletedThreads = []string{}
	}
	if sd.Progress.CharacterProgress == nil {
		sd.Progress.CharacterProgress = map[string]string{}
	}
	if sd.Choices == nil {
		sd.Choices = []types.Choice{}
	}
	if sd.Selected == nil {
		sd.Selected = []string{}
	}
	if sd.Transcript == nil {
		sd.Transcript = []types.Segment{}
	}
	return &sd, nil
}
