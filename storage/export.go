package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed export.schema.json
var exportSchema []byte

// ExportVersion tags the export document format.
const ExportVersion = "1"

// Export is the document written by Store.Export.
type Export struct {
	Version       string          `json:"version"`
	Conversations []*Conversation `json:"conversations"`
}

// Export returns every conversation of a session as indented JSON.
func (s *Store) Export(ctx context.Context, session string) ([]byte, error) {
	convs, err := s.List(ctx, session)
	if err != nil {
		return nil, err
	}
	for _, c := range convs {
		sel, err := s.selected(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.SelectedChoices = sel
	}
	return json.MarshalIndent(Export{Version: ExportVersion, Conversations: convs}, "", "  ")
}

// ValidateExport checks data against the export schema.
func ValidateExport(data []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(exportSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidImport, strings.Join(msgs, "; "))
	}
	return nil
}

// Import adds the conversations of an export document to a session. Every
// imported conversation gets a fresh id. It returns how many were added.
func (s *Store) Import(ctx context.Context, session string, data []byte) (int, error) {
	if session == "" {
		return 0, ErrSessionRequired
	}
	if err := ValidateExport(data); err != nil {
		return 0, err
	}
	var doc Export
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.millis()
	for _, c := range doc.Conversations {
		created, updated := now, now
		if !c.CreatedAt.IsZero() {
			created = c.CreatedAt.UnixMilli()
		}
		if !c.UpdatedAt.IsZero() {
			updated = c.UpdatedAt.UnixMilli()
		}
		id := uuid.NewString()
		_, err := tx.ExecContext(ctx, s.q(`INSERT INTO conversations (id, title, initial_prompt, user_session, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`), id, c.Title, c.InitialPrompt, session, created, updated)
		if err != nil {
			return 0, fmt.Errorf("import conversation %q: %w", c.Title, err)
		}
		if err := s.appendSegments(ctx, tx, id, c.Segments, updated); err != nil {
			return 0, err
		}
		if err := s.replaceChoices(ctx, tx, id, c.Choices, updated); err != nil {
			return 0, err
		}
		if err := s.appendSelected(ctx, tx, id, c.SelectedChoices, updated); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	s.logger.Info("conversations imported", "count", len(doc.Conversations))
	return len(doc.Conversations), nil
}
