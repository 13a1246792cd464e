package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/model"
)

// GetStudentAssignments handles GET /api/students/:student_id/assignments,
// newest first.
func (h *Handler) GetStudentAssignments(c *gin.Context) {
	id, ok := pathID(c, "student_id")
	if !ok {
		return
	}
	student, err := h.store.GetStudent(c.Request.Context(), id)
	if err != nil {
		h.abortWithStoreError(c, err, "student_not_found")
		return
	}
	rows, err := h.store.StudentHistory(c.Request.Context(), id)
	if err != nil {
		h.abortWithStoreError(c, err, "student_not_found")
		return
	}
	if rows == nil {
		rows = []model.Assignment{}
	}
	c.JSON(http.StatusOK, gin.H{"student": student, "assignments": rows})
}
