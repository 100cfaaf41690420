package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/allocation"
)

// CreateRoom handles POST /api/admin/rooms.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req allocation.RoomInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	room, err := h.svc.CreateRoom(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// UpdateRoom handles PUT /rooms/:room_id for admins and wardens.
func (h *Handler) UpdateRoom(c *gin.Context) {
	id, ok := paramID(c, "room_id")
	if !ok {
		return
	}
	var req allocation.RoomUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !h.requireRoom(c, id) {
		return
	}

	res, err := h.svc.UpdateRoomCapacity(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteRoom handles DELETE /api/admin/rooms/:room_id.
func (h *Handler) DeleteRoom(c *gin.Context) {
	id, ok := paramID(c, "room_id")
	if !ok {
		return
	}
	if err := h.svc.DeleteRoom(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}
