// Package remote fetches story fragments from a vnplayer server. Both
// sources hand the network stream to the engine as it arrives, so the
// parser sees real chunk boundaries.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nathoo/vnplayer/engine"
	"github.com/nathoo/vnplayer/engine/state"
)

// Request is the JSON body sent for a choice.
type Request struct {
	Type   string `json:"type,omitempty"`
	Choice string `json:"choice"`
	state.Wire
}

// HTTPSource requests fragments with GET and POST /api/story.
type HTTPSource struct {
	base   string
	client *http.Client
}

var _ engine.Source = (*HTTPSource)(nil)

// NewHTTPSource returns a source for the server at baseURL. A nil client
// uses one with a generous timeout.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPSource{base: strings.TrimRight(baseURL, "/"), client: client}
}

// Open implements engine.Source.
func (s *HTTPSource) Open(ctx context.Context, choiceID string, before state.Progress) (io.ReadCloser, error) {
	var req *http.Request
	var err error
	if choiceID == "" {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/api/story", nil)
	} else {
		body, merr := json.Marshal(Request{Choice: choiceID, Wire: before.ToWire()})
		if merr != nil {
			return nil, merr
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, s.base+"/api/story", bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting fragment: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp.Body, nil
}

// StatusError is a non-200 response from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}
