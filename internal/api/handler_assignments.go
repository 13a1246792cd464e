package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/allocation"
	"dorm-allocation-backend/internal/mw"
	"dorm-allocation-backend/internal/notification"
)

const dateLayout = "2006-01-02"

type assignRequest struct {
	StudentID  int64  `json:"student_id" binding:"required"`
	RoomID     int64  `json:"room_id" binding:"required"`
	BedNumber  int    `json:"bed_number"`
	MoveInDate string `json:"move_in_date" binding:"required"`
}

type batchAssignRequest struct {
	StudentIDs []int64 `json:"student_ids" binding:"required"`
	MoveInDate string  `json:"move_in_date" binding:"required"`
}

func actorOf(c *gin.Context) allocation.Actor {
	return allocation.Actor{
		ID:        mw.ActorIDFrom(c),
		RequestID: mw.RequestIDFrom(c),
		IP:        c.ClientIP(),
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func moveInDate(c *gin.Context, raw string) (time.Time, bool) {
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		badRequest(c, "move_in_date must be formatted as YYYY-MM-DD")
		return time.Time{}, false
	}
	return d, true
}

// CreateAssignment handles POST /api/assignments.
func (h *Handler) CreateAssignment(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, ok := moveInDate(c, req.MoveInDate)
	if !ok {
		return
	}

	row, err := h.engine.AssignSingle(c.Request.Context(), allocation.AssignSingleRequest{
		StudentID:  req.StudentID,
		RoomID:     req.RoomID,
		BedNumber:  req.BedNumber,
		MoveInDate: date,
		Actor:      actorOf(c),
	})
	if err != nil {
		h.abortWithEngineError(c, err)
		return
	}

	h.committed(notification.EventAssigned, row.RoomID)
	c.JSON(http.StatusCreated, gin.H{"assignment": row})
}

// BatchAssign handles POST /api/rooms/:room_id/assignments/batch.
func (h *Handler) BatchAssign(c *gin.Context) {
	roomID, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	var req batchAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, ok := moveInDate(c, req.MoveInDate)
	if !ok {
		return
	}

	result, err := h.engine.AssignBatch(c.Request.Context(), allocation.AssignBatchRequest{
		RoomID:     roomID,
		StudentIDs: req.StudentIDs,
		MoveInDate: date,
		Actor:      actorOf(c),
	})
	if err != nil {
		h.abortWithEngineError(c, err)
		return
	}

	if result.AssignedCount > 0 {
		h.committed(notification.EventAssigned, roomID)
	}
	c.JSON(http.StatusOK, gin.H{
		"assigned_count": result.AssignedCount,
		"skipped":        result.Skipped,
		"outcomes":       result.Outcomes,
		"occupancy":      result.Occupancy,
	})
}

// MoveOut handles POST /api/assignments/:assignment_id/move-out.
func (h *Handler) MoveOut(c *gin.Context) {
	id, ok := pathID(c, "assignment_id")
	if !ok {
		return
	}

	row, err := h.engine.MoveOut(c.Request.Context(), allocation.MoveOutRequest{
		AssignmentID: id,
		Actor:        actorOf(c),
	})
	if err != nil {
		h.abortWithEngineError(c, err)
		return
	}

	h.committed(notification.EventMovedOut, row.RoomID)
	c.JSON(http.StatusOK, gin.H{"assignment": row})
}

// Reconcile handles POST /api/reconcile.
func (h *Handler) Reconcile(c *gin.Context) {
	drifts, err := h.engine.Reconcile(c.Request.Context(), actorOf(c))
	if err != nil {
		h.abortWithEngineError(c, err)
		return
	}
	if len(drifts) > 0 && h.cache != nil {
		h.cache.Flush()
	}
	if drifts == nil {
		drifts = []allocation.Drift{}
	}
	c.JSON(http.StatusOK, gin.H{"drifts": drifts})
}
