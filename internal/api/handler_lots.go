package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/engine"
)

type lotRequest struct {
	Name         string   `json:"name" binding:"required"`
	Address      string   `json:"address"`
	PinCode      string   `json:"pin_code"`
	PricePerHour *float64 `json:"price_per_hour" binding:"required"`
	SpotCount    *int     `json:"spot_count" binding:"required"`
	IsActive     *bool    `json:"is_active"`
}

func (r lotRequest) params() engine.LotParams {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return engine.LotParams{
		Name:         r.Name,
		Address:      r.Address,
		PinCode:      r.PinCode,
		PricePerHour: *r.PricePerHour,
		SpotCount:    *r.SpotCount,
		IsActive:     active,
	}
}

// GetLotSummaries handles GET /api/parking-lots: the per-lot occupancy
// view shown to users. Only active lots are listed.
func (h *Handler) GetLotSummaries(c *gin.Context) {
	summaries, err := h.store.LotSummaries(c.Request.Context(), false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": summaries})
}

// GetAdminLotSummaries handles GET /api/admin/parking-lots/summary,
// which includes inactive lots.
func (h *Handler) GetAdminLotSummaries(c *gin.Context) {
	summaries, err := h.store.LotSummaries(c.Request.Context(), true)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": summaries})
}

// ListLots handles GET /api/admin/parking-lots.
func (h *Handler) ListLots(c *gin.Context) {
	lots, err := h.store.ListLots(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

// CreateLot handles POST /api/admin/parking-lots.
func (h *Handler) CreateLot(c *gin.Context) {
	var req lotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.engine.CreateLot(c.Request.Context(), req.params())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

// UpdateLot handles PUT /api/admin/parking-lots/:lot_id. Changing
// spot_count resizes the lot; a shrink is refused when any spot above
// the new bound is occupied.
func (h *Handler) UpdateLot(c *gin.Context) {
	lotID, ok := pathID(c, "lot_id")
	if !ok {
		return
	}

	var req lotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := h.engine.UpdateLot(c.Request.Context(), lotID, req.params())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// DeleteLot handles DELETE /api/admin/parking-lots/:lot_id.
func (h *Handler) DeleteLot(c *gin.Context) {
	lotID, ok := pathID(c, "lot_id")
	if !ok {
		return
	}

	if err := h.engine.DeleteLot(c.Request.Context(), lotID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "parking lot removed"})
}

// GetLotSpots handles GET /api/admin/parking-lots/:lot_id/spots,
// listing every spot with the holder of its active reservation.
func (h *Handler) GetLotSpots(c *gin.Context) {
	lotID, ok := pathID(c, "lot_id")
	if !ok {
		return
	}

	spots, err := h.store.SpotDetails(c.Request.Context(), lotID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spots": spots})
}

// GetDashboard handles GET /api/admin/dashboard-summary.
func (h *Handler) GetDashboard(c *gin.Context) {
	summary, err := h.store.Dashboard(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
