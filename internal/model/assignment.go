package model

import "time"

// AssignmentStatus is the lifecycle state of a ledger row.
type AssignmentStatus int

const (
	AssignmentActive AssignmentStatus = 1
	AssignmentEnded  AssignmentStatus = 2
)

func (s AssignmentStatus) String() string {
	switch s {
	case AssignmentActive:
		return "active"
	case AssignmentEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Assignment is one student-to-bed ledger row. Rows are never deleted; a
// move-out only ends them.
type Assignment struct {
	ID          int64            `gorm:"primaryKey" json:"id"`
	StudentID   int64            `gorm:"not null;index" json:"studentId"`
	RoomID      int64            `gorm:"not null;index:idx_room_assignments_room_status" json:"roomId"`
	BedNumber   int              `gorm:"not null" json:"bedNumber"`
	Status      AssignmentStatus `gorm:"not null;index:idx_room_assignments_room_status" json:"status"`
	MoveInDate  time.Time        `gorm:"type:date;not null" json:"moveInDate"`
	MoveOutDate *time.Time       `gorm:"type:date" json:"moveOutDate,omitempty"`
	CreatedBy   int64            `gorm:"not null" json:"createdBy"`
	CreatedAt   time.Time        `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time        `gorm:"not null" json:"updatedAt"`
}

// TableName keeps the ledger table name used by the existing database.
func (Assignment) TableName() string {
	return "room_assignments"
}

// IsActive reports whether the student still occupies the bed.
func (a Assignment) IsActive() bool {
	return a.Status == AssignmentActive
}
