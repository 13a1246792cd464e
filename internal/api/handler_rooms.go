package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/parse"
	"dorm-allocation-backend/internal/store"
)

// RoomDetailResponse is a room together with the students holding its beds.
type RoomDetailResponse struct {
	Room      *model.Room      `json:"room"`
	FreeBeds  int              `json:"freeBeds"`
	Occupants []store.Occupant `json:"occupants"`
}

// GetAvailableRooms handles GET /api/rooms/available.
func (h *Handler) GetAvailableRooms(c *gin.Context) {
	var filter store.RoomFilter
	if raw := c.Query("building_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid building_id")
			return
		}
		filter.BuildingID = id
	}
	if raw := c.Query("gender_type"); raw != "" {
		v, err := strconv.Atoi(raw)
		gt := model.GenderType(v)
		if err != nil || (gt != model.GenderTypeAny && gt != model.GenderTypeMale && gt != model.GenderTypeFemale) {
			badRequest(c, "invalid gender_type")
			return
		}
		filter.GenderType = &gt
	}

	rooms, err := h.store.AvailableRooms(c.Request.Context(), filter)
	if err != nil {
		h.abortWithStoreError(c, err, "room_not_found")
		return
	}
	if rooms == nil {
		rooms = []store.RoomAvailability{}
	}
	c.JSON(http.StatusOK, rooms)
}

// GetRoom handles GET /api/rooms/:room_id.
func (h *Handler) GetRoom(c *gin.Context) {
	id, ok := pathID(c, "room_id")
	if !ok {
		return
	}
	room, err := h.store.GetRoom(c.Request.Context(), id)
	if err != nil {
		h.abortWithStoreError(c, err, "room_not_found")
		return
	}
	h.respondRoomDetail(c, room)
}

// LookupRoom handles GET /api/rooms/lookup?label=A-0302.
func (h *Handler) LookupRoom(c *gin.Context) {
	label, err := parse.ParseRoomLabel(c.Query("label"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	room, err := h.store.FindRoomByLabel(c.Request.Context(), label.Building, label.RoomNumber)
	if err != nil {
		h.abortWithStoreError(c, err, "room_not_found")
		return
	}
	h.respondRoomDetail(c, room)
}

func (h *Handler) respondRoomDetail(c *gin.Context, room *model.Room) {
	occupants, err := h.store.RoomOccupants(c.Request.Context(), room.ID)
	if err != nil {
		h.abortWithStoreError(c, err, "room_not_found")
		return
	}
	if occupants == nil {
		occupants = []store.Occupant{}
	}
	c.JSON(http.StatusOK, RoomDetailResponse{
		Room:      room,
		FreeBeds:  room.FreeBeds(),
		Occupants: occupants,
	})
}
