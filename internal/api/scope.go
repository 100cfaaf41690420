package api

import (
	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/mw"
)

// scope is the set of hostels the caller may act on. Admins act on all.
type scope struct {
	all     bool
	hostels map[int64]bool
}

func (s scope) allows(hostelID int64) bool {
	return s.all || s.hostels[hostelID]
}

// callerScope resolves the caller's hostels. Wardens only see hostels they
// are assigned to while approved.
func (h *Handler) callerScope(c *gin.Context) (scope, bool) {
	if mw.Role(c) == model.RoleAdmin {
		return scope{all: true}, true
	}

	ids, err := h.store.WardenHostelIDs(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeError(c, apperr.Internal("Failed to load assigned hostels", err))
		return scope{}, false
	}
	s := scope{hostels: make(map[int64]bool, len(ids))}
	for _, id := range ids {
		s.hostels[id] = true
	}
	return s, true
}

// requireRoom answers 404 unless the room belongs to a hostel in scope.
func (h *Handler) requireRoom(c *gin.Context, roomID int64) bool {
	sc, ok := h.callerScope(c)
	if !ok {
		return false
	}
	if sc.all {
		return true
	}
	hostelID, err := h.svc.RoomHostelID(c.Request.Context(), roomID)
	if err != nil {
		writeError(c, err)
		return false
	}
	if !sc.allows(hostelID) {
		writeError(c, apperr.NotFound("Room not found"))
		return false
	}
	return true
}

// requireStudent answers 404 unless the student holds a seat in a hostel in
// scope.
func (h *Handler) requireStudent(c *gin.Context, studentID int64) bool {
	sc, ok := h.callerScope(c)
	if !ok {
		return false
	}
	if sc.all {
		return true
	}
	hostelID, err := h.svc.StudentHostelID(c.Request.Context(), studentID)
	if err != nil {
		writeError(c, err)
		return false
	}
	if !sc.allows(hostelID) {
		writeError(c, apperr.NotFound("Student not found in your assigned hostels"))
		return false
	}
	return true
}
