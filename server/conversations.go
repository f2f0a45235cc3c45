package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nathoo/vnplayer/storage"
)

type createRequest struct {
	Title         string `json:"title"`
	InitialPrompt string `json:"initialPrompt"`
	UserSession   string `json:"userSession"`
}

func (s *Server) requireStore(c *gin.Context) {
	if s.store == nil {
		writeError(c, http.StatusServiceUnavailable, "Conversation storage is not configured")
		return
	}
	c.Next()
}

// storeError maps storage errors onto responses; failed describes the
// operation for 500s.
func (s *Server) storeError(c *gin.Context, err error, failed string) {
	switch {
	case errors.Is(err, storage.ErrSessionRequired):
		writeError(c, http.StatusBadRequest, "User session is required")
	case errors.Is(err, storage.ErrNotFound):
		writeError(c, http.StatusNotFound, "Conversation not found")
	case errors.Is(err, storage.ErrInvalidImport):
		writeError(c, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error(failed, "error", err, "path", c.Request.URL.Path)
		writeError(c, http.StatusInternalServerError, failed)
	}
}

func (s *Server) listConversations(c *gin.Context) {
	convs, err := s.store.List(c.Request.Context(), c.Query("userSession"))
	if err != nil {
		s.storeError(c, err, "Failed to fetch conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

func (s *Server) createConversation(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.InitialPrompt == "" || req.UserSession == "" {
		writeError(c, http.StatusBadRequest, "Title, initial prompt, and user session are required")
		return
	}
	conv, err := s.store.Create(c.Request.Context(), req.UserSession, req.Title, req.InitialPrompt)
	if err != nil {
		s.storeError(c, err, "Failed to create conversation")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"conversation": conv})
}

func (s *Server) getConversation(c *gin.Context) {
	conv, err := s.store.Get(c.Request.Context(), c.Query("userSession"), c.Param("id"))
	if err != nil {
		s.storeError(c, err, "Failed to fetch conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (s *Server) updateConversation(c *gin.Context) {
	var u storage.Update
	if err := c.ShouldBindJSON(&u); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	conv, err := s.store.Update(c.Request.Context(), c.Query("userSession"), c.Param("id"), u)
	if err != nil {
		s.storeError(c, err, "Failed to update conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (s *Server) deleteConversation(c *gin.Context) {
	if err := s.store.Delete(c.Request.Context(), c.Query("userSession"), c.Param("id")); err != nil {
		s.storeError(c, err, "Failed to delete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) conversationContext(c *gin.Context) {
	n := 0
	if v := c.Query("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(c, http.StatusBadRequest, "n must be a number")
			return
		}
		n = parsed
	}
	segs, err := s.store.Context(c.Request.Context(), c.Query("userSession"), c.Param("id"), n)
	if err != nil {
		s.storeError(c, err, "Failed to fetch conversation context")
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": segs})
}

func (s *Server) exportConversations(c *gin.Context) {
	data, err := s.store.Export(c.Request.Context(), c.Query("userSession"))
	if err != nil {
		s.storeError(c, err, "Failed to export conversations")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="conversations.json"`)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (s *Server) importConversations(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, 8<<20))
	if err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	n, err := s.store.Import(c.Request.Context(), c.Query("userSession"), data)
	if err != nil {
		s.storeError(c, err, "Failed to import conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}
