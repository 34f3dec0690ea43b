package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/songzhibin97/memeflux/internal/data"
	"github.com/songzhibin97/memeflux/internal/models"
	"github.com/songzhibin97/memeflux/internal/risk"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	shutdownTimeout     = 5 * time.Second
)

// Server exposes the mint history and the rolling quota over HTTP. It never mints.
type Server struct {
	addr    string
	store   data.HistoryStore
	guard   *risk.Guard
	backend string
	logger  *slog.Logger
	started time.Time
}

func NewServer(addr, backend string, store data.HistoryStore, guard *risk.Guard, logger *slog.Logger) *Server {
	return &Server{
		addr:    addr,
		store:   store,
		guard:   guard,
		backend: backend,
		logger:  logger,
		started: time.Now(),
	}
}

// Handler 构建路由
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", s.health)
	r.GET("/history", s.history)
	r.GET("/quota", s.quota)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status api listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": s.backend,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

type historyResponse struct {
	Total   int                   `json:"total"`
	Entries []models.HistoryEntry `json:"entries"`
}

// history 返回最近的铸造记录，最新的在前
func (s *Server) history(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	limit = min(limit, maxHistoryLimit)

	h, err := s.store.Load(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to load history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, historyResponse{
		Total:   h.Len(),
		Entries: Latest(h, limit),
	})
}

func (s *Server) quota(c *gin.Context) {
	h, err := s.store.Load(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to load history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quota":  s.guard.Quota(h),
		"limits": s.guard.Limits(),
	})
}

// Latest returns up to n entries, most recent first.
func Latest(h models.HistoryData, n int) []models.HistoryEntry {
	n = max(0, min(n, len(h.Entries)))
	out := make([]models.HistoryEntry, 0, n)
	for i := len(h.Entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.Entries[i])
	}
	return out
}
