package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/utils/logging"
)

// RememberRequest is the body of POST /remember
type RememberRequest struct {
	Text string `json:"text"`
}

// RememberResponse is returned by POST /remember
type RememberResponse struct {
	OK        bool           `json:"ok"`
	ID        model.MemoryID `json:"id"`
	Tags      []string       `json:"tags"`
	CreatedAt time.Time      `json:"created_at"`
}

// QuestionRequest is the body of POST /remind and POST /delete
type QuestionRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleHello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "hello"})
}

func (s *Server) handleRemember(c *gin.Context) {
	var req RememberRequest
	if !bindJSON(c, &req) {
		return
	}

	m, err := s.uc.Remember(c.Request.Context(), req.Text)
	if err != nil {
		if errors.Is(err, model.ErrEmptyText) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
			return
		}
		s.fail(c, "remember", err)
		return
	}

	c.JSON(http.StatusOK, RememberResponse{
		OK:        true,
		ID:        m.ID,
		Tags:      m.Tags,
		CreatedAt: m.CreatedAt,
	})
}

func (s *Server) handleRemind(c *gin.Context) {
	var req QuestionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.uc.Recall(c.Request.Context(), req.Question)
	if err != nil {
		s.fail(c, "remind", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDelete(c *gin.Context) {
	var req QuestionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.uc.Forget(c.Request.Context(), req.Question)
	if err != nil {
		s.fail(c, "delete", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleList(c *gin.Context) {
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
		return
	}
	limit, err := queryInt(c, "limit", defaultListLimit)
	if err != nil || limit == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}

	result, err := s.uc.List(c.Request.Context(), offset, limit)
	if err != nil {
		s.fail(c, "list", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) fail(c *gin.Context, route string, err error) {
	logging.From(c.Request.Context()).Error("workflow failed", "route", route, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func bindJSON(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	if err := c.ShouldBindJSON(v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
