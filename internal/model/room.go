package model

import "time"

// RoomStatus is the service state of a room.
type RoomStatus int

const (
	RoomStatusNormal      RoomStatus = 1
	RoomStatusMaintenance RoomStatus = 2
	RoomStatusDisabled    RoomStatus = 3
)

// GenderType restricts which students a room or building accepts.
type GenderType int

const (
	GenderTypeAny    GenderType = 0
	GenderTypeMale   GenderType = 1
	GenderTypeFemale GenderType = 2
)

// Accepts reports whether a student of gender g may live under this restriction.
func (t GenderType) Accepts(g Gender) bool {
	switch t {
	case GenderTypeMale:
		return g == GenderMale
	case GenderTypeFemale:
		return g == GenderFemale
	default:
		return true
	}
}

// Room is one dormitory room. CurrentOccupancy caches the number of active
// assignments referencing the room and is only written by the allocation engine.
type Room struct {
	ID               int64      `gorm:"primaryKey" json:"id"`
	BuildingID       int64      `gorm:"not null;uniqueIndex:idx_rooms_building_number" json:"buildingId"`
	Floor            int        `gorm:"not null" json:"floor"`
	RoomNumber       string     `gorm:"size:32;not null;uniqueIndex:idx_rooms_building_number" json:"roomNumber"`
	BedCount         int        `gorm:"not null" json:"bedCount"`
	CurrentOccupancy int        `gorm:"not null;default:0" json:"currentOccupancy"`
	GenderType       GenderType `gorm:"not null;default:0" json:"genderType"`
	Status           RoomStatus `gorm:"not null;default:1" json:"status"`
	CreatedAt        time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"not null" json:"updatedAt"`

	// Associations
	Building *Building `gorm:"constraint:OnDelete:RESTRICT" json:"building,omitempty"`
}

// FreeBeds returns the number of beds not covered by the cached occupancy.
func (r Room) FreeBeds() int {
	if free := r.BedCount - r.CurrentOccupancy; free > 0 {
		return free
	}
	return 0
}
