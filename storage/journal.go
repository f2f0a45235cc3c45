package storage

import (
	"context"
	"errors"

	"github.com/nathoo/vnplayer/engine"
	"github.com/nathoo/vnplayer/types"
)

// Journal records an engine session as a conversation.
type Journal struct {
	store   *Store
	session string
	id      string
}

var _ engine.Journal = (*Journal)(nil)

// NewJournal returns a journal that writes under session.
func NewJournal(store *Store, session string) *Journal {
	return &Journal{store: store, session: session}
}

// ID is the conversation being written, empty before Begin.
func (j *Journal) ID() string { return j.id }

// Begin starts a new conversation for every fresh run of the story.
func (j *Journal) Begin(ctx context.Context, title, prompt string) error {
	c, err := j.store.Create(ctx, j.session, title, prompt)
	if err != nil {
		return err
	}
	j.id = c.ID
	return nil
}

// Record appends a turn. The turn's choices replace those on offer, so an
// epilogue clears them.
func (j *Journal) Record(ctx context.Context, entry engine.JournalEntry) error {
	if j.id == "" {
		return errors.New("journal: Record before Begin")
	}
	choices := entry.Choices
	if choices == nil {
		choices = []types.Choice{}
	}
	_, err := j.store.Update(ctx, j.session, j.id, Update{
		Segments:         entry.Segments,
		Choices:          choices,
		SelectedChoiceID: entry.ChoiceID,
	})
	return err
}
