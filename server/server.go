// Package server exposes a story over HTTP. Fragments are streamed as
// plain text, or as websocket messages, in the same chunked form the
// player's parser consumes. When a storage.Store is attached the server
// also keeps conversation history per user session.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nathoo/vnplayer/engine"
	"github.com/nathoo/vnplayer/engine/router"
	"github.com/nathoo/vnplayer/storage"
	"github.com/nathoo/vnplayer/story"
)

// Option configures a Server.
type Option func(*Server)

// WithStore enables the conversation endpoints.
func WithStore(st *storage.Store) Option { return func(s *Server) { s.store = st } }

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// WithChunking sets the maximum chunk size and the seed chunk sizes are
// drawn from. A max of zero sends each fragment whole.
func WithChunking(max int, seed int64) Option {
	return func(s *Server) {
		s.chunkMax = max
		s.seed = seed
	}
}

// WithChunkDelay pauses between chunks.
func WithChunkDelay(d time.Duration) Option { return func(s *Server) { s.delay = d } }

// Server serves one story.
type Server struct {
	story    *story.Story
	router   *router.Router
	store    *storage.Store
	logger   *slog.Logger
	chunkMax int
	seed     int64
	delay    time.Duration
	requests atomic.Int64
	engine   *gin.Engine
}

// New builds the server and its routes.
func New(st *story.Story, opts ...Option) *Server {
	s := &Server{
		story:    st,
		router:   router.New(st),
		logger:   slog.New(slog.DiscardHandler),
		chunkMax: 24,
		seed:     1,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/readyz", s.ready)

	api := r.Group("/api")
	api.GET("/story", s.intro)
	api.POST("/story", s.choose)
	api.GET("/story/ws", s.storySocket)

	conv := api.Group("/conversations", s.requireStore)
	conv.GET("", s.listConversations)
	conv.POST("", s.createConversation)
	conv.GET("/export", s.exportConversations)
	conv.POST("/import", s.importConversations)
	conv.GET("/:id", s.getConversation)
	conv.PUT("/:id", s.updateConversation)
	conv.DELETE("/:id", s.deleteConversation)
	conv.GET("/:id/context", s.conversationContext)

	s.engine = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr, "story", s.story.Title)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) ready(c *gin.Context) {
	if s.store != nil {
		if err := s.store.Ping(c.Request.Context()); err != nil {
			c.String(http.StatusServiceUnavailable, "db not ready")
			return
		}
	}
	c.String(http.StatusOK, "ready")
}

// chunker returns a fresh chunker per request; chunkers are not safe for
// concurrent use.
func (s *Server) chunker() *engine.Chunker {
	n := s.requests.Add(1)
	return engine.NewChunker(engine.NewRNG(s.seed+n-1), s.chunkMax)
}

func writeError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
