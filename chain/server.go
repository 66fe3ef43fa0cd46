package chain

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type resetRequest struct {
	Mode int `json:"mode"`
}

type actRequest struct {
	Action *int `json:"action" binding:"required"`
}

// Server exposes a ChainEnv over HTTP so that an external driver can train on it.
// Calls are serialized, the environment is never accessed concurrently.
type Server struct {
	Addr   string
	ctx    context.Context
	server *http.Server
	logger *slog.Logger

	lock *sync.Mutex
	env  *ChainEnv
}

func NewServer(ctx context.Context, addr string, env *ChainEnv, logger *slog.Logger) *Server {
	s := &Server{
		Addr:   addr,
		ctx:    ctx,
		logger: logger,
		lock:   new(sync.Mutex),
		env:    env,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/reset", s.handleReset)
	r.POST("/act", s.handleAct)
	r.GET("/observe", s.handleObserve)
	r.GET("/info", s.handleInfo)
	r.POST("/summary", s.handleSummary)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// Handler serving the environment routes
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleReset(c *gin.Context) {
	req := resetRequest{Mode: ModeTraining}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
			return
		}
	}
	s.lock.Lock()
	obs := s.env.Reset(req.Mode)
	s.lock.Unlock()

	c.JSON(http.StatusOK, gin.H{"observation": obs})
}

func (s *Server) handleAct(c *gin.Context) {
	req := actRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	s.lock.Lock()
	reward, err := s.env.Act(*req.Action)
	obs := s.env.Observe()
	s.lock.Unlock()

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "observation": obs})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reward": reward, "observation": obs})
}

func (s *Server) handleObserve(c *gin.Context) {
	s.lock.Lock()
	obs := s.env.Observe()
	s.lock.Unlock()

	c.JSON(http.StatusOK, gin.H{"observation": obs})
}

func (s *Server) handleInfo(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"input_dimensions": s.env.InputDimensions(),
		"n_actions":        s.env.NActions(),
		"terminal":         s.env.InTerminalState(),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	data := make(map[string]interface{})
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}
	s.lock.Lock()
	s.env.SummarizePerformance(data)
	s.lock.Unlock()

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// Start listens in the background, the server shuts down when the context is done
func (s *Server) Start() {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("chain server stopped", "addr", s.Addr, "error", err)
		}
	}()

	go func() {
		<-s.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}()
}
