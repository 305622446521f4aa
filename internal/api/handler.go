package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"parking-backend/internal/engine"
	"parking-backend/internal/export"
	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

// timeFormat is used for all timestamps in API responses.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	engine  *engine.Engine
	exports *export.WorkerPool
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, e *engine.Engine, exports *export.WorkerPool, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		engine:  e,
		exports: exports,
		webpush: webpushOptions,
	}
}

// requester resolves the calling user from the X-User-ID header.
// Authentication happens upstream; this service only needs the
// identity, passed explicitly on every request.
func (h *Handler) requester(c *gin.Context) (*model.User, bool) {
	raw := c.GetHeader("X-User-ID")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header is required"})
		return nil, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-User-ID must be a positive integer"})
		return nil, false
	}

	user, err := h.store.FindUser(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return user, true
}

// fail maps an error from the store or engine onto an HTTP status.
// Expected conditions are 4xx; anything else means the durable store
// failed and is surfaced as-is.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyActive),
		errors.Is(err, engine.ErrNoCapacity),
		errors.Is(err, engine.ErrCapacityConflict),
		errors.Is(err, engine.ErrHasOccupiedSpots),
		errors.Is(err, engine.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
