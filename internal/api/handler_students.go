package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/mw"
)

// AllocateRoom returns the handler for POST /students/allocate-room. The
// warden route charges the hostel fee; the admin route does not.
func (h *Handler) AllocateRoom(opts allocation.AllocateOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req allocation.AllocateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		sc, ok := h.callerScope(c)
		if !ok {
			return
		}
		o := opts
		if !sc.all {
			o.InScope = sc.allows
		}

		res, err := h.svc.AllocateRoom(c.Request.Context(), req, o)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, res)
	}
}

// ApplyHostel handles POST /api/students/apply-hostel. The caller is placed in
// the first vacant seat of a hostel matching their gender.
func (h *Handler) ApplyHostel(c *gin.Context) {
	res, err := h.svc.Apply(c.Request.Context(), mw.UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Hostel application submitted successfully", "result": res})
}

// BulkAllocate handles POST /api/admin/hostels/allocate. Partial failures are
// part of the report, not an error.
func (h *Handler) BulkAllocate(c *gin.Context) {
	report, err := h.svc.AllocateUnallocatedBulk(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RemoveFromHostel handles DELETE /api/admin/students/:student_id/hostel.
func (h *Handler) RemoveFromHostel(c *gin.Context) {
	id, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	alloc, err := h.svc.Deallocate(c.Request.Context(), id, allocation.ModeRemove)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student removed from hostel successfully", "allocation": alloc})
}

// DeallocateRoom handles DELETE /students/:student_id/room for admins and wardens.
func (h *Handler) DeallocateRoom(c *gin.Context) {
	id, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	if !h.requireStudent(c, id) {
		return
	}

	alloc, err := h.svc.Deallocate(c.Request.Context(), id, allocation.ModeDeallocate)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room deallocated successfully", "allocation": alloc})
}

// DeleteStudent handles DELETE /students/:student_id for admins and wardens.
func (h *Handler) DeleteStudent(c *gin.Context) {
	id, ok := paramID(c, "student_id")
	if !ok {
		return
	}
	if !h.requireStudent(c, id) {
		return
	}

	if err := h.svc.DeleteStudent(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted successfully"})
}
