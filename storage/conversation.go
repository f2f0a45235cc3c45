package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nathoo/vnplayer/types"
)

// Conversation is one played session as stored.
type Conversation struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	InitialPrompt   string          `json:"initialPrompt"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	Segments        []types.Segment `json:"segments"`
	Choices         []types.Choice  `json:"choices"`
	SelectedChoices []string        `json:"selectedChoices"`
}

// Update is appended to a conversation. Segments are added after the
// existing ones. A nil Choices leaves the offered choices as they are; a
// non-nil slice replaces them. SelectedChoiceID is recorded only when it is
// one of the choices on offer before the replacement.
type Update struct {
	Segments         []types.Segment `json:"segments"`
	Choices          []types.Choice  `json:"choices"`
	SelectedChoiceID string          `json:"selectedChoiceId"`
}

// Create starts a new, empty conversation.
func (s *Store) Create(ctx context.Context, session, title, prompt string) (*Conversation, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}
	if title == "" {
		title = GenerateTitle(prompt)
	}
	now := s.millis()
	c := &Conversation{
		ID:              uuid.NewString(),
		Title:           title,
		InitialPrompt:   prompt,
		CreatedAt:       fromMillis(now),
		UpdatedAt:       fromMillis(now),
		Segments:        []types.Segment{},
		Choices:         []types.Choice{},
		SelectedChoices: []string{},
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO conversations (id, title, initial_prompt, user_session, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`), c.ID, c.Title, c.InitialPrompt, session, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	s.logger.Debug("conversation created", "id", c.ID, "title", c.Title)
	return c, nil
}

// Get returns a conversation with its segments, choices and selections.
func (s *Store) Get(ctx context.Context, session, id string) (*Conversation, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}
	c := &Conversation{ID: id}
	var created, updated int64
	err := s.db.QueryRowContext(ctx, s.q(`SELECT title, initial_prompt, created_at, updated_at
		FROM conversations WHERE id = ? AND user_session = ?`), id, session).
		Scan(&c.Title, &c.InitialPrompt, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)

	if c.Segments, err = s.segments(ctx, id, 0); err != nil {
		return nil, err
	}
	if c.Choices, err = s.choices(ctx, id); err != nil {
		return nil, err
	}
	if c.SelectedChoices, err = s.selected(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns every conversation of a session, most recently updated
// first, with segments and choices.
func (s *Store) List(ctx context.Context, session string) ([]*Conversation, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, title, initial_prompt, created_at, updated_at
		FROM conversations WHERE user_session = ?
		ORDER BY updated_at DESC, created_at DESC`), session)
	if err != nil {
		return nil, fmt.Errorf("select conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	byID := map[string]*Conversation{}
	for rows.Next() {
		c := &Conversation{Segments: []types.Segment{}, Choices: []types.Choice{}, SelectedChoices: []string{}}
		var created, updated int64
		if err := rows.Scan(&c.ID, &c.Title, &c.InitialPrompt, &created, &updated); err != nil {
			return nil, err
		}
		c.CreatedAt, c.UpdatedAt = fromMillis(created), fromMillis(updated)
		out = append(out, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return []*Conversation{}, nil
	}

	// One query per child table for the whole session.
	segRows, err := s.db.QueryContext(ctx, s.q(`SELECT s.conversation_id, s.speaker, s.emotion, s.text
		FROM story_segments s
		INNER JOIN conversations c ON s.conversation_id = c.id
		WHERE c.user_session = ?
		ORDER BY s.conversation_id, s.segment_order ASC`), session)
	if err != nil {
		return nil, fmt.Errorf("select segments: %w", err)
	}
	defer segRows.Close()
	for segRows.Next() {
		var convID string
		var seg types.Segment
		if err := segRows.Scan(&convID, &seg.Speaker, &seg.Emotion, &seg.Text); err != nil {
			return nil, err
		}
		if c := byID[convID]; c != nil {
			c.Segments = append(c.Segments, seg)
		}
	}
	if err := segRows.Err(); err != nil {
		return nil, err
	}

	chRows, err := s.db.QueryContext(ctx, s.q(`SELECT ch.conversation_id, ch.choice_id, ch.choice_text, ch.disabled
		FROM choices ch
		INNER JOIN conversations c ON ch.conversation_id = c.id
		WHERE c.user_session = ?
		ORDER BY ch.conversation_id, ch.choice_order ASC`), session)
	if err != nil {
		return nil, fmt.Errorf("select choices: %w", err)
	}
	defer chRows.Close()
	for chRows.Next() {
		var convID string
		var ch types.Choice
		var disabled int
		if err := chRows.Scan(&convID, &ch.ID, &ch.Text, &disabled); err != nil {
			return nil, err
		}
		ch.Disabled = disabled != 0
		if c := byID[convID]; c != nil {
			c.Choices = append(c.Choices, ch)
		}
	}
	if err := chRows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies u to a conversation and bumps its updated time.
func (s *Store) Update(ctx context.Context, session, id string, u Update) (*Conversation, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.owned(ctx, tx, session, id); err != nil {
		return nil, err
	}
	now := s.millis()

	if len(u.Segments) > 0 {
		if err := s.appendSegments(ctx, tx, id, u.Segments, now); err != nil {
			return nil, err
		}
	}

	if u.SelectedChoiceID != "" {
		var n int
		err := tx.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM choices WHERE conversation_id = ? AND choice_id = ?`),
			id, u.SelectedChoiceID).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("look up selected choice: %w", err)
		}
		if n > 0 {
			if err := s.appendSelected(ctx, tx, id, []string{u.SelectedChoiceID}, now); err != nil {
				return nil, err
			}
		} else {
			s.logger.Debug("selected choice not on offer", "conversation", id, "choice", u.SelectedChoiceID)
		}
	}

	if u.Choices != nil {
		if err := s.replaceChoices(ctx, tx, id, u.Choices, now); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, s.q(`UPDATE conversations SET updated_at = ? WHERE id = ?`), now, id); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update: %w", err)
	}
	return s.Get(ctx, session, id)
}

// Delete removes a conversation and everything recorded under it.
func (s *Store) Delete(ctx context.Context, session, id string) error {
	if session == "" {
		return ErrSessionRequired
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.owned(ctx, tx, session, id); err != nil {
		return err
	}
	for _, table := range []string{"selected_choices", "choices", "story_segments"} {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM `+table+` WHERE conversation_id = ?`), id); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM conversations WHERE id = ? AND user_session = ?`), id, session); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	s.logger.Debug("conversation deleted", "id", id)
	return nil
}

// DefaultContextSegments is the window Context uses when n is not positive.
const DefaultContextSegments = 5

// Context returns the last n segments of a conversation in story order.
func (s *Store) Context(ctx context.Context, session, id string, n int) ([]types.Segment, error) {
	if session == "" {
		return nil, ErrSessionRequired
	}
	if n <= 0 {
		n = DefaultContextSegments
	}
	if err := s.owned(ctx, s.db, session, id); err != nil {
		return nil, err
	}
	return s.segments(ctx, id, n)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) owned(ctx context.Context, q querier, session, id string) error {
	var one int
	err := q.QueryRowContext(ctx, s.q(`SELECT 1 FROM conversations WHERE id = ? AND user_session = ?`), id, session).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("select conversation: %w", err)
	}
	return nil
}

func (s *Store) appendSegments(ctx context.Context, tx *sql.Tx, id string, segs []types.Segment, now int64) error {
	var max int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(segment_order), 0) FROM story_segments WHERE conversation_id = ?`), id).Scan(&max); err != nil {
		return fmt.Errorf("segment order: %w", err)
	}
	for i, seg := range segs {
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO story_segments (id, conversation_id, speaker, emotion, text, segment_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`), uuid.NewString(), id, string(seg.Speaker), string(seg.Emotion), seg.Text, max+1+i, now)
		if err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}
	return nil
}

func (s *Store) replaceChoices(ctx context.Context, tx *sql.Tx, id string, choices []types.Choice, now int64) error {
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM choices WHERE conversation_id = ?`), id); err != nil {
		return fmt.Errorf("clear choices: %w", err)
	}
	for i, ch := range choices {
		disabled := 0
		if ch.Disabled {
			disabled = 1
		}
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO choices (id, conversation_id, choice_id, choice_text, disabled, choice_order, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`), uuid.NewString(), id, ch.ID, ch.Text, disabled, i, now)
		if err != nil {
			return fmt.Errorf("insert choice: %w", err)
		}
	}
	return nil
}

func (s *Store) appendSelected(ctx context.Context, tx *sql.Tx, id string, choiceIDs []string, now int64) error {
	var max int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT COALESCE(MAX(selection_order), 0) FROM selected_choices WHERE conversation_id = ?`), id).Scan(&max); err != nil {
		return fmt.Errorf("selection order: %w", err)
	}
	for i, cid := range choiceIDs {
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO selected_choices (id, conversation_id, choice_id, selection_order, selected_at)
			VALUES (?, ?, ?, ?, ?)`), uuid.NewString(), id, cid, max+1+i, now)
		if err != nil {
			return fmt.Errorf("insert selected choice: %w", err)
		}
	}
	return nil
}

// segments loads a conversation's segments; limit > 0 keeps only the last
// limit of them.
func (s *Store) segments(ctx context.Context, id string, limit int) ([]types.Segment, error) {
	query := `SELECT speaker, emotion, text FROM story_segments WHERE conversation_id = ? ORDER BY segment_order ASC`
	args := []any{id}
	if limit > 0 {
		query = `SELECT speaker, emotion, text FROM (
			SELECT speaker, emotion, text, segment_order FROM story_segments
			WHERE conversation_id = ? ORDER BY segment_order DESC LIMIT ?
		) recent ORDER BY segment_order ASC`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select segments: %w", err)
	}
	defer rows.Close()
	out := []types.Segment{}
	for rows.Next() {
		var seg types.Segment
		if err := rows.Scan(&seg.Speaker, &seg.Emotion, &seg.Text); err != nil {
			return nil, err
		}
		out = append(out, seg)
	}
	return out, rows.Err()
}

func (s *Store) choices(ctx context.Context, id string) ([]types.Choice, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT choice_id, choice_text, disabled FROM choices
		WHERE conversation_id = ? ORDER BY choice_order ASC`), id)
	if err != nil {
		return nil, fmt.Errorf("select choices: %w", err)
	}
	defer rows.Close()
	out := []types.Choice{}
	for rows.Next() {
		var ch types.Choice
		var disabled int
		if err := rows.Scan(&ch.ID, &ch.Text, &disabled); err != nil {
			return nil, err
		}
		ch.Disabled = disabled != 0
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Store) selected(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT choice_id FROM selected_choices
		WHERE conversation_id = ? ORDER BY selection_order ASC`), id)
	if err != nil {
		return nil, fmt.Errorf("select selected choices: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return nil, err
		}
		out = append(out, cid)
	}
	return out, rows.Err()
}
