package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-backend/internal/model"
)

// CreateExport handles POST /api/exports. The job row is the durable
// work item; the channel dispatch only wakes a worker.
func (h *Handler) CreateExport(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}

	job := model.ExportJob{
		UserID: user.ID,
		Status: model.ExportPending,
	}
	if err := h.store.CreateExportJob(c.Request.Context(), &job); err != nil {
		fail(c, err)
		return
	}

	h.exports.Dispatch(job.ID)

	c.JSON(http.StatusAccepted, gin.H{
		"export_id": job.ID,
		"status":    "processing",
	})
}

// GetExport handles GET /api/exports/:export_id.
func (h *Handler) GetExport(c *gin.Context) {
	user, ok := h.requester(c)
	if !ok {
		return
	}
	exportID, ok := pathID(c, "export_id")
	if !ok {
		return
	}

	job, err := h.store.FindExportJob(c.Request.Context(), user.ID, exportID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
