package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/model"
	"parking-backend/internal/store"
)

type claimRequest struct {
	LotID int64 `json:"lot_id" binding:"required"`
}

// claimResponse flattens the new reservation with its spot ordinal.
type claimResponse struct {
	ID         int64                   `json:"id"`
	LotID      int64                   `json:"lot_id"`
	SpotID     int64                   `json:"spot_id"`
	SpotNumber int                     `json:"spot_number"`
	StartedAt  string                  `json:"started_at"`
	Status     model.ReservationStatus `json:"status"`
}

// CreateReservation handles POST /api/reservations: claim the free
// spot with the lowest ordinal in the requested lot.
func (h *Handler) CreateReservation(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservation, spot, err := h.engine.Claim(c.Request.Context(), user.ID, req.LotID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, claimResponse{
		ID:         reservation.ID,
		LotID:      reservation.LotID,
		SpotID:     reservation.SpotID,
		SpotNumber: spot.SpotNumber,
		StartedAt:  reservation.StartedAt.Format(timeFormat),
		Status:     reservation.Status,
	})
}

// ReleaseReservation handles PUT /api/reservations/:reservation_id/release.
func (h *Handler) ReleaseReservation(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}
	reservationID, ok := pathID(c, "reservation_id")
	if !ok {
		return
	}

	reservation, err := h.engine.Release(c.Request.Context(), user.ID, reservationID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       reservation.ID,
		"ended_at": reservation.EndedAt.Format(timeFormat),
		"cost":     *reservation.Cost,
		"status":   reservation.Status,
	})
}

// GetCurrentReservation handles GET /api/reservations/current.
func (h *Handler) GetCurrentReservation(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	reservation, err := h.store.CurrentReservation(c.Request.Context(), user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"reservation": nil})
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservation": reservation})
}

// GetReservationHistory handles GET /api/reservations/history,
// newest first.
func (h *Handler) GetReservationHistory(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	history, err := h.store.ReservationHistory(c.Request.Context(), user.ID, false)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": history})
}
