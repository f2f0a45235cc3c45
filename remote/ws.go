package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/nathoo/vnplayer/engine"
	"github.com/nathoo/vnplayer/engine/state"
)

type wsMessage struct {
	Type  string `json:"type"`
	Data  string `json:"data"`
	Key   string `json:"key"`
	Error string `json:"error"`
}

// WSSource keeps one websocket open to /api/story/ws and sends every
// request over it. Only one fragment may be open at a time.
type WSSource struct {
	url  string
	mu   sync.Mutex
	conn *websocket.Conn
	busy bool
}

var _ engine.Source = (*WSSource)(nil)

// ErrBusy is returned when Open is called before the previous fragment
// was closed.
var ErrBusy = errors.New("websocket source: previous fragment still open")

// NewWSSource returns a source for the server at baseURL (http or ws
// scheme). The connection is dialled on first use.
func NewWSSource(baseURL string) *WSSource {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return &WSSource{url: u + "/api/story/ws"}
}

// Open implements engine.Source.
func (s *WSSource) Open(ctx context.Context, choiceID string, before state.Progress) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return nil, ErrBusy
	}
	if s.conn == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			return nil, fmt.Errorf("dialing %s: %w", s.url, err)
		}
		s.conn = conn
	}

	req := Request{Type: "choice", Choice: choiceID, Wire: before.ToWire()}
	if choiceID == "" {
		req.Type = "intro"
	}
	if err := s.conn.WriteJSON(req); err != nil {
		s.dropLocked()
		return nil, fmt.Errorf("sending request: %w", err)
	}
	s.busy = true
	return &wsReader{src: s}, nil
}

// Close closes the connection.
func (s *WSSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *WSSource) dropLocked() {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.busy = false
}

// wsReader turns chunk messages into a byte stream ending at the end
// message.
type wsReader struct {
	src    *WSSource
	cur    string
	done   bool
	broken bool // the connection can no longer be trusted
	err    error
}

func (r *wsReader) next() {
	var msg wsMessage
	if err := r.src.conn.ReadJSON(&msg); err != nil {
		r.err = fmt.Errorf("reading fragment: %w", err)
		r.done, r.broken = true, true
		return
	}
	switch msg.Type {
	case "chunk":
		r.cur = msg.Data
	case "end":
		r.done = true
	case "error":
		r.err = fmt.Errorf("server error: %s", msg.Error)
		r.done = true
	default:
		r.err = fmt.Errorf("unexpected message type %q", msg.Type)
		r.done, r.broken = true, true
	}
}

func (r *wsReader) Read(p []byte) (int, error) {
	for r.cur == "" {
		if r.done {
			if r.err != nil {
				return 0, r.err
			}
			return 0, io.EOF
		}
		r.next()
	}
	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

// Close drains what is left of the fragment so the connection is ready
// for the next request. A broken connection is dropped and redialled on
// the next Open.
func (r *wsReader) Close() error {
	for !r.done {
		r.cur = ""
		r.next()
	}
	r.src.mu.Lock()
	defer r.src.mu.Unlock()
	if r.broken {
		r.src.dropLocked()
		return nil
	}
	r.src.busy = false
	return nil
}
