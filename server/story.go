package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nathoo/vnplayer/engine/state"
)

// StoryRequest is the body of POST /api/story and of websocket requests.
type StoryRequest struct {
	Type   string `json:"type,omitempty"` // websocket only: "intro" or "choice"
	Choice string `json:"choice"`
	state.Wire
}

// WSMessage is a server-to-client websocket message.
type WSMessage struct {
	Type  string `json:"type"` // chunk, end or error
	Data  string `json:"data,omitempty"`
	Key   string `json:"key,omitempty"`
	Error string `json:"error,omitempty"`
}

const (
	headerKey  = "X-Story-Key"
	headerMove = "X-Story-Move"
)

func (s *Server) intro(c *gin.Context) {
	c.Header(headerKey, "INTRO")
	s.stream(c, s.story.Intro)
}

func (s *Server) choose(c *gin.Context) {
	var req StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Choice == "" {
		writeError(c, http.StatusBadRequest, "Choice is required")
		return
	}
	res := s.router.Route(req.Choice, state.FromWire(req.Wire))
	s.logger.Debug("routed", "choice", req.Choice, "move", res.Move.Kind.String(), "key", string(res.Key))
	c.Header(headerKey, string(res.Key))
	c.Header(headerMove, res.Move.Kind.String())
	s.stream(c, res.Fragment)
}

// stream writes text in chunks, flushing after each one.
func (s *Server) stream(c *gin.Context, text string) {
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Status(http.StatusOK)
	ctx := c.Request.Context()
	for i, chunk := range s.chunker().Split(text) {
		if i > 0 && !s.pause(ctx) {
			return
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			s.logger.Debug("client went away", "error", err)
			return
		}
		c.Writer.Flush()
	}
}

func (s *Server) pause(ctx context.Context) bool {
	if s.delay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// storySocket serves any number of requests over one connection. Each
// request gets its fragment as chunk messages followed by an end message.
func (s *Server) storySocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	ctx := c.Request.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read", "error", err)
			}
			return
		}

		var req StoryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if conn.WriteJSON(WSMessage{Type: "error", Error: "Invalid request body"}) != nil {
				return
			}
			continue
		}

		text, key := s.story.Intro, "INTRO"
		if req.Type != "intro" {
			if req.Choice == "" {
				if conn.WriteJSON(WSMessage{Type: "error", Error: "Choice is required"}) != nil {
					return
				}
				continue
			}
			res := s.router.Route(req.Choice, state.FromWire(req.Wire))
			text, key = res.Fragment, string(res.Key)
		}

		for i, chunk := range s.chunker().Split(text) {
			if i > 0 && !s.pause(ctx) {
				return
			}
			if err := conn.WriteJSON(WSMessage{Type: "chunk", Data: chunk}); err != nil {
				return
			}
		}
		if err := conn.WriteJSON(WSMessage{Type: "end", Key: key}); err != nil {
			return
		}
	}
}
