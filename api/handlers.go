package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"vescollector/database"
	"vescollector/internal/command"
	"vescollector/internal/pending"
	prom "vescollector/prometheus"

	"github.com/SOLUCIONESSYCOM/scribe"
	"github.com/gin-gonic/gin"
)

// EventReader lists journaled events, newest first.
type EventReader interface {
	ListEvents(ctx context.Context, limit int) ([]database.EventRecord, error)
}

// StatsSource reports journal writer statistics.
type StatsSource interface {
	GetStats() map[string]interface{}
}

// APIHandler serves the admin endpoints.
type APIHandler struct {
	Name    string
	Version string
	Store   pending.Store
	Journal EventReader
	Stats   StatsSource
	Metrics *prom.Metrics
	Logger  *scribe.Scribe

	started time.Time
	timeout time.Duration
}

// NewAPIHandler creates a new APIHandler instance. journal and stats may be
// nil when the journal is disabled.
func NewAPIHandler(name, version string, store pending.Store, journal EventReader, stats StatsSource, metrics *prom.Metrics, logger *scribe.Scribe) *APIHandler {
	return &APIHandler{
		Name:    name,
		Version: version,
		Store:   store,
		Journal: journal,
		Stats:   stats,
		Metrics: metrics,
		Logger:  logger,
		started: time.Now(),
		timeout: 10 * time.Second,
	}
}

// GetEvents handles GET /api/events?limit=N
func (h *APIHandler) GetEvents(c *gin.Context) {
	if h.Journal == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(database.ErrJournalDisabled, http.StatusServiceUnavailable))
		return
	}

	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxEventLimit {
			c.JSON(http.StatusBadRequest, NewErrorResponse(ErrInvalidLimit, http.StatusBadRequest,
				"limit must be between 1 and "+strconv.Itoa(maxEventLimit)))
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	records, err := h.Journal.ListEvents(ctx, limit)
	if err != nil {
		if errors.Is(err, database.ErrJournalDisabled) {
			c.JSON(http.StatusServiceUnavailable, NewErrorResponse(err, http.StatusServiceUnavailable))
			return
		}
		h.Logger.Error().AnErr("error", err).Msg("Failed to retrieve events from journal")
		c.JSON(http.StatusInternalServerError, NewErrorResponse(err, http.StatusInternalServerError, "Error retrieving events"))
		return
	}

	views := make([]EventView, 0, len(records))
	for _, record := range records {
		views = append(views, ToEventView(record))
	}

	h.Logger.Debug().Int("count", len(views)).Msg("Retrieved events from journal")
	c.JSON(http.StatusOK, NewSuccessResponse(views))
}

// GetPending handles GET /api/pending
func (h *APIHandler) GetPending(c *gin.Context) {
	list, err := h.Store.Peek(c.Request.Context())
	if err != nil {
		h.Logger.Error().AnErr("error", err).Msg("Failed to read pending command list")
		c.JSON(http.StatusInternalServerError, NewErrorResponse(ErrStore, http.StatusInternalServerError))
		return
	}

	view := PendingView{Pending: list != nil}
	if list != nil {
		view.CommandList = list
		view.Summary = command.Summarize(list)
	}
	c.JSON(http.StatusOK, NewSuccessResponse(view))
}

// ClearPending handles DELETE /api/pending
func (h *APIHandler) ClearPending(c *gin.Context) {
	if err := h.Store.Set(c.Request.Context(), nil); err != nil {
		h.Logger.Error().AnErr("error", err).Msg("Failed to clear pending command list")
		c.JSON(http.StatusInternalServerError, NewErrorResponse(ErrStore, http.StatusInternalServerError))
		return
	}

	h.Logger.Info().Msg("Pending command list cleared from admin API")
	c.JSON(http.StatusOK, NewSuccessResponse(PendingView{}, "Pending command list cleared"))
}

// LoadPreset handles POST /api/pending/presets/:name
func (h *APIHandler) LoadPreset(c *gin.Context) {
	name := c.Param("name")

	list, ok := command.Preset(name)
	if !ok {
		c.JSON(http.StatusNotFound, NewErrorResponse(ErrUnknownPreset, http.StatusNotFound, "Unknown command preset: "+name))
		return
	}

	raw, err := list.Marshal()
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(err, http.StatusInternalServerError))
		return
	}

	if err := h.Store.Set(c.Request.Context(), raw); err != nil {
		h.Logger.Error().AnErr("error", err).Msg("Failed to store preset command list")
		c.JSON(http.StatusInternalServerError, NewErrorResponse(ErrStore, http.StatusInternalServerError))
		return
	}

	if h.Metrics != nil {
		h.Metrics.TestControlUpdates.WithLabelValues("preset").Inc()
	}

	summary := command.Summarize(raw)
	h.Logger.Info().
		Str("preset", name).
		Str("commands", summary).
		Msg("Pending command list loaded from preset")

	c.JSON(http.StatusOK, NewSuccessResponse(PendingView{
		Pending:     true,
		CommandList: raw,
		Summary:     summary,
	}, "Preset "+name+" loaded"))
}

// ListPresets handles GET /api/presets
func (h *APIHandler) ListPresets(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccessResponse(command.PresetNames()))
}

// GetStats handles GET /api/stats
func (h *APIHandler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"name":           h.Name,
		"version":        h.Version,
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}

	if list, err := h.Store.Peek(c.Request.Context()); err == nil {
		stats["pending"] = list != nil
	}

	if h.Stats != nil {
		stats["journal"] = h.Stats.GetStats()
	} else {
		stats["journal"] = map[string]interface{}{"enabled": false}
	}

	c.JSON(http.StatusOK, NewSuccessResponse(stats))
}

// Health handles GET /api/health
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, NewSuccessResponse(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}, "Service is healthy"))
}
