package engine

import (
	"context"
	"io"

	"github.com/nathoo/vnplayer/engine/router"
	"github.com/nathoo/vnplayer/engine/state"
)

// Source delivers the markup for a choice. An empty choiceID asks for the
// intro. before is the session progress prior to the choice; the source
// must not assume it will be kept.
type Source interface {
	Open(ctx context.Context, choiceID string, before state.Progress) (io.ReadCloser, error)
}

// LocalSource serves fragments straight from a router, streamed through a
// chunker.
type LocalSource struct {
	router  *router.Router
	chunker *Chunker
}

// NewLocalSource returns a source backed by r. A nil chunker delivers each
// fragment in a single read.
func NewLocalSource(r *router.Router, c *Chunker) *LocalSource {
	if c == nil {
		c = NewChunker(NewRNG(0), 0)
	}
	return &LocalSource{router: r, chunker: c}
}

// Open implements Source.
func (s *LocalSource) Open(ctx context.Context, choiceID string, before state.Progress) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := s.router.Story().Intro
	if choiceID != "" {
		text = s.router.Route(choiceID, before).Fragment
	}
	return io.NopCloser(s.chunker.Reader(text)), nil
}
