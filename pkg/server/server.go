package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/m-mizutani/raven/pkg/model"
	"github.com/m-mizutani/raven/pkg/usecase/memory"
	"github.com/m-mizutani/raven/pkg/utils/logging"
)

const (
	// SecretHeader carries the shared secret on every request
	SecretHeader = "x-server-secret"
	// RequestIDHeader echoes the id assigned to a request
	RequestIDHeader = "x-request-id"

	defaultListLimit = 20
	maxBodySize      = 1 << 20
)

// UseCase is the set of memory workflows served over HTTP
type UseCase interface {
	Remember(ctx context.Context, text string) (*model.Memory, error)
	Recall(ctx context.Context, question string) (*memory.RecallResult, error)
	Forget(ctx context.Context, question string) (*memory.ForgetResult, error)
	List(ctx context.Context, offset, limit int) (*memory.ListResult, error)
}

// Server exposes the memory workflows as a JSON API guarded by a shared secret
type Server struct {
	uc     UseCase
	secret string
	router *gin.Engine
}

// New creates a new Server. secret must not be empty.
func New(uc UseCase, secret string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		uc:     uc,
		secret: secret,
		router: router,
	}

	router.Use(s.withRequestID, gin.CustomRecovery(s.recover), s.authenticate)

	router.GET("/", s.handleHello)
	router.POST("/remember", s.handleRemember)
	router.POST("/remind", s.handleRemind)
	router.POST("/delete", s.handleDelete)
	router.GET("/memories", s.handleList)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is canceled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logging.From(ctx).Info("server started", "addr", addr)

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) withRequestID(c *gin.Context) {
	reqID := uuid.NewString()
	c.Header(RequestIDHeader, reqID)

	ctx := c.Request.Context()
	logger := logging.From(ctx).With("request_id", reqID)
	c.Request = c.Request.WithContext(logging.With(ctx, logger))

	started := time.Now()
	c.Next()

	logger.Debug("request handled",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(started),
	)
}

func (s *Server) authenticate(c *gin.Context) {
	got := c.GetHeader(SecretHeader)
	if got == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing x-server-secret header"})
		return
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) recover(c *gin.Context, v any) {
	logging.From(c.Request.Context()).Error("panic in handler", "panic", v, "path", c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
