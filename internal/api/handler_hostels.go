package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/apperr"
)

// ListHostels handles GET /api/public/hostels.
func (h *Handler) ListHostels(c *gin.Context) {
	summaries, err := h.svc.HostelSummaries(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summaries)
}

// CreateHostel handles POST /api/admin/hostels.
func (h *Handler) CreateHostel(c *gin.Context) {
	var req allocation.HostelInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	hostel, err := h.svc.CreateHostel(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, hostel)
}

// DeleteHostel handles DELETE /api/admin/hostels/:hostel_id.
func (h *Handler) DeleteHostel(c *gin.Context) {
	id, ok := paramID(c, "hostel_id")
	if !ok {
		return
	}
	if err := h.svc.DeleteHostel(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hostel deleted successfully"})
}

// GetHostelRooms handles GET /hostels/:hostel_id/rooms for admins and wardens.
func (h *Handler) GetHostelRooms(c *gin.Context) {
	id, ok := paramID(c, "hostel_id")
	if !ok {
		return
	}
	sc, ok := h.callerScope(c)
	if !ok {
		return
	}
	if !sc.allows(id) {
		writeError(c, apperr.NotFound("Hostel not found"))
		return
	}

	rooms, err := h.svc.HostelRooms(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}
