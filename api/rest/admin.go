// Package rest serves the read-only admin API.
package rest

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kasuganosora/subwars/game/agent"
	"github.com/kasuganosora/subwars/game/world"
	"github.com/kasuganosora/subwars/journal"
	"github.com/kasuganosora/subwars/scheduler"
)

// staleAfter is how old the last board publish may be before /health
// reports the world as stalled.
const staleAfter = 2 * time.Second

// AdminHandler serves agent status from the status board so that requests
// never lock a running agent.
type AdminHandler struct {
	board   *world.Board
	wm      *world.Manager
	sched   *scheduler.Scheduler
	journal *journal.Service
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler. journal may be nil.
func NewAdminHandler(
	board *world.Board,
	wm *world.Manager,
	sched *scheduler.Scheduler,
	js *journal.Service,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{board: board, wm: wm, sched: sched, journal: js, logger: logger}
}

// Routes mounts the admin endpoints on g.
func (h *AdminHandler) Routes(g *gin.RouterGroup) {
	g.GET("/agents", h.ListAgents)
	g.GET("/agents/:id", h.GetAgent)
	g.GET("/agents/:id/transitions", h.Transitions)
	g.GET("/scheduler", h.ListSchedulerTasks)
}

// Health reports whether the world loop is publishing.
// GET /health
func (h *AdminHandler) Health(c *gin.Context) {
	last := h.board.LastHeartbeat(c.Request.Context())
	status := "ok"
	code := http.StatusOK
	if h.wm.Len() > 0 && (last.IsZero() || time.Since(last) > staleAfter) {
		status = "stalled"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       status,
		"agents":       h.wm.Len(),
		"ticks":        h.wm.Ticks(),
		"last_publish": last,
		"profiles":     agent.Profiles(),
	})
}

// ListAgents returns the latest snapshot of every agent.
// GET /api/admin/agents
func (h *AdminHandler) ListAgents(c *gin.Context) {
	snaps, err := h.board.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list agents", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status board unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": snaps, "count": len(snaps)})
}

// GetAgent returns one snapshot and its recent transitions.
// GET /api/admin/agents/:id
func (h *AdminHandler) GetAgent(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	snap, err := h.board.Get(ctx, id)
	if errors.Is(err, world.ErrAgentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent not found"})
		return
	}
	if err != nil {
		h.logger.Error("get agent", zap.String("agent", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status board unavailable"})
		return
	}
	history, err := h.board.History(ctx, id, 20)
	if err != nil {
		h.logger.Warn("agent history", zap.String("agent", id), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"agent": snap, "history": history})
}

// Transitions returns the journaled transitions of an agent.
// GET /api/admin/agents/:id/transitions?limit=n
func (h *AdminHandler) Transitions(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal disabled"})
		return
	}
	limit := 50
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	logs, err := h.journal.Recent(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.logger.Error("journal query", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitions": logs, "count": len(logs)})
}

// ListSchedulerTasks returns the run statistics of the periodic tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Stats()})
}

// AdminAuth checks the X-Admin-Key header. With an empty adminKey every
// admin endpoint answers 503.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set security.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
