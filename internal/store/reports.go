package store

import (
	"context"
	"fmt"
	"time"

	"dorm-allocation-backend/internal/model"
)

// Reports are read-only queries for presentation. They never mutate.
type Reports interface {
	AvailableRooms(ctx context.Context, filter RoomFilter) ([]RoomAvailability, error)
	RoomOccupants(ctx context.Context, roomID int64) ([]Occupant, error)
	FindRoomByLabel(ctx context.Context, buildingCode, roomNumber string) (*model.Room, error)
	StudentHistory(ctx context.Context, studentID int64) ([]model.Assignment, error)
}

// RoomFilter narrows AvailableRooms. Zero values match everything.
type RoomFilter struct {
	BuildingID int64
	GenderType *model.GenderType
}

// RoomAvailability is an in-service room that still has free beds.
type RoomAvailability struct {
	model.Room
	BuildingName  string `json:"buildingName"`
	AvailableBeds int    `json:"availableBeds"`
}

// Occupant is a student currently holding a bed.
type Occupant struct {
	AssignmentID int64     `json:"assignmentId"`
	StudentID    int64     `json:"studentId"`
	StudentNo    string    `json:"studentNo"`
	RealName     string    `json:"realName"`
	BedNumber    int       `json:"bedNumber"`
	MoveInDate   time.Time `json:"moveInDate"`
}

func (s *gormStore) AvailableRooms(ctx context.Context, filter RoomFilter) ([]RoomAvailability, error) {
	q := s.db.WithContext(ctx).
		Table("rooms AS r").
		Select("r.*, b.name AS building_name, (r.bed_count - r.current_occupancy) AS available_beds").
		Joins("LEFT JOIN buildings b ON b.id = r.building_id").
		Where("r.status = ? AND r.current_occupancy < r.bed_count", model.RoomStatusNormal)

	if filter.BuildingID > 0 {
		q = q.Where("r.building_id = ?", filter.BuildingID)
	}
	if filter.GenderType != nil {
		q = q.Where("r.gender_type = ?", *filter.GenderType)
	}

	var rooms []RoomAvailability
	if err := q.Order("available_beds DESC").Order("r.id").Scan(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list available rooms: %w", err)
	}
	return rooms, nil
}

func (s *gormStore) RoomOccupants(ctx context.Context, roomID int64) ([]Occupant, error) {
	var occupants []Occupant
	if err := s.db.WithContext(ctx).
		Table("room_assignments AS ra").
		Select("ra.id AS assignment_id, ra.student_id, s.student_no, s.real_name, ra.bed_number, ra.move_in_date").
		Joins("JOIN students s ON s.id = ra.student_id").
		Where("ra.room_id = ? AND ra.status = ?", roomID, model.AssignmentActive).
		Order("ra.bed_number").
		Scan(&occupants).Error; err != nil {
		return nil, fmt.Errorf("failed to list occupants of room %d: %w", roomID, err)
	}
	return occupants, nil
}

func (s *gormStore) FindRoomByLabel(ctx context.Context, buildingCode, roomNumber string) (*model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).
		Joins("JOIN buildings ON buildings.id = rooms.building_id").
		Where("buildings.code = ? AND rooms.room_number = ?", buildingCode, roomNumber).
		First(&room).Error
	if err != nil {
		return nil, notFound(err, "room %s-%s", buildingCode, roomNumber)
	}
	return &room, nil
}

func (s *gormStore) StudentHistory(ctx context.Context, studentID int64) ([]model.Assignment, error) {
	var rows []model.Assignment
	if err := s.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("move_in_date DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch assignment history for student %d: %w", studentID, err)
	}
	return rows, nil
}
