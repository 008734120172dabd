package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lucasnoah/axpipe/internal/checkpoint"
	appctx "github.com/lucasnoah/axpipe/internal/context"
	"github.com/lucasnoah/axpipe/internal/db"
	"github.com/lucasnoah/axpipe/internal/pipeline"
)

type errorBody struct {
	Error string `json:"error"`
}

func fail(c *gin.Context, code int, err error) {
	c.JSON(code, errorBody{Error: err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.deps.Version})
}

func (s *Server) handleStages(c *gin.Context) {
	source := s.deps.Registry.Source()
	if source == "" {
		source = "builtin"
	}
	c.JSON(http.StatusOK, gin.H{"source": source, "stages": s.deps.Registry.List()})
}

func (s *Server) handleStage(c *gin.Context) {
	def, err := s.deps.Registry.Require(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, err)
		return
	}
	sp, _, err := s.deps.Progress.StageProgress(def.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage": def, "progress": sp})
}

func (s *Server) handleProgress(c *gin.Context) {
	p, err := s.deps.Progress.Load()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SummaryView is the /api/summary payload.
type SummaryView struct {
	pipeline.Summary
	Percent int `json:"percent"`
}

func (s *Server) handleSummary(c *gin.Context) {
	p, err := s.deps.Progress.Load()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	sum := pipeline.Summarize(p, s.deps.Registry.IDs())
	c.JSON(http.StatusOK, SummaryView{Summary: sum, Percent: sum.Percent()})
}

func (s *Server) handleCheckpoints(c *gin.Context) {
	var (
		list []checkpoint.Checkpoint
		err  error
	)
	if id := c.Query("stage"); id != "" {
		if _, err := s.deps.Registry.Require(id); err != nil {
			fail(c, http.StatusNotFound, err)
			return
		}
		list, err = s.deps.Checkpoints.ListForStage(id)
	} else {
		list, err = s.deps.Checkpoints.List()
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []checkpoint.Checkpoint{}
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) handleCheckpoint(c *gin.Context) {
	cp, err := s.deps.Checkpoints.Require(c.Param("id"))
	if errors.Is(err, checkpoint.ErrCheckpointNotFound) {
		fail(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// ContextView is the /api/context payload. State is null before the first update.
type ContextView struct {
	State     *appctx.State `json:"state"`
	Remaining float64       `json:"remaining"`
	Status    string        `json:"status"`
}

func (s *Server) handleContext(c *gin.Context) {
	st, err := s.deps.Context.Get()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	v := ContextView{State: st, Remaining: 100, Status: appctx.FormatState(st)}
	if st != nil {
		v.Remaining = st.Remaining()
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) handleContextActions(c *gin.Context) {
	actions, err := s.deps.Context.RecommendedActions()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if actions == nil {
		actions = []appctx.Action{}
	}
	c.JSON(http.StatusOK, actions)
}

func (s *Server) handleSnapshots(c *gin.Context) {
	snaps, err := s.deps.Context.ListSnapshots()
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if snaps == nil {
		snaps = []appctx.Snapshot{}
	}
	c.JSON(http.StatusOK, snaps)
}

func (s *Server) handleEvents(c *gin.Context) {
	f := db.Filter{
		Kind:    db.Kind(c.Query("kind")),
		StageID: c.Query("stage"),
		Limit:   50,
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "limit must be a non-negative integer"})
			return
		}
		f.Limit = n
	}
	events, err := s.deps.Journal.Events(c.Request.Context(), f)
	if err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	if events == nil {
		events = []db.Event{}
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) handleTransition(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Validator.Validate(c.Param("from"), c.Param("to")))
}
