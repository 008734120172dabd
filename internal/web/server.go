// Package web serves a read-only JSON view of a project's pipeline state.
package web

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lucasnoah/axpipe/internal/checkpoint"
	appctx "github.com/lucasnoah/axpipe/internal/context"
	"github.com/lucasnoah/axpipe/internal/db"
	"github.com/lucasnoah/axpipe/internal/pipeline"
	"github.com/lucasnoah/axpipe/internal/stage"
)

// Deps are the engine components the API reads from.
type Deps struct {
	Registry    *stage.Registry
	Progress    *pipeline.Store
	Validator   *stage.Validator
	Checkpoints *checkpoint.Manager
	Context     *appctx.Tracker
	Journal     db.Journal // nil serves an empty event list
	Version     string
}

// Server is the read-only API server.
type Server struct {
	deps   Deps
	addr   string
	engine *gin.Engine
}

// NewServer creates a Server listening on addr (e.g. "127.0.0.1:8420").
func NewServer(deps Deps, addr string) *Server {
	if deps.Journal == nil {
		deps.Journal = db.Discard
	}
	s := &Server{deps: deps, addr: addr}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler with every route registered.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens until the server fails.
func (s *Server) Start() error {
	log.Printf("ax API: http://%s/api/health", s.addr)
	if err := s.engine.Run(s.addr); err != nil {
		return fmt.Errorf("serve %s: %w", s.addr, err)
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stages", s.handleStages)
	api.GET("/stages/:id", s.handleStage)
	api.GET("/progress", s.handleProgress)
	api.GET("/summary", s.handleSummary)
	api.GET("/checkpoints", s.handleCheckpoints)
	api.GET("/checkpoints/:id", s.handleCheckpoint)
	api.GET("/context", s.handleContext)
	api.GET("/context/actions", s.handleContextActions)
	api.GET("/snapshots", s.handleSnapshots)
	api.GET("/events", s.handleEvents)
	api.GET("/transitions/:from/:to", s.handleTransition)
	return r
}
