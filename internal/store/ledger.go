package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dorm-allocation-backend/internal/model"
)

func (s *gormStore) GetAssignment(ctx context.Context, id int64) (*model.Assignment, error) {
	var row model.Assignment
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "assignment %d", id)
	}
	return &row, nil
}

func (s *gormStore) LockAssignment(ctx context.Context, id int64) (*model.Assignment, error) {
	var row model.Assignment
	if err := s.db.WithContext(ctx).Clauses(lockingForUpdate).First(&row, id).Error; err != nil {
		return nil, notFound(err, "assignment %d", id)
	}
	return &row, nil
}

// FindActiveByStudent returns the student's active row, or nil if none.
func (s *gormStore) FindActiveByStudent(ctx context.Context, studentID int64) (*model.Assignment, error) {
	return s.findActive(ctx, "student_id = ? AND status = ?", studentID, model.AssignmentActive)
}

// FindActiveByRoomAndBed returns the active row holding the bed, or nil if the bed is free.
func (s *gormStore) FindActiveByRoomAndBed(ctx context.Context, roomID int64, bed int) (*model.Assignment, error) {
	return s.findActive(ctx, "room_id = ? AND bed_number = ? AND status = ?", roomID, bed, model.AssignmentActive)
}

func (s *gormStore) findActive(ctx context.Context, query string, args ...any) (*model.Assignment, error) {
	var row model.Assignment
	err := s.db.WithContext(ctx).Where(query, args...).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active assignment: %w", err)
	}
	return &row, nil
}

func (s *gormStore) CountActiveByRoom(ctx context.Context, roomID int64) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("room_id = ? AND status = ?", roomID, model.AssignmentActive).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count active assignments for room %d: %w", roomID, err)
	}
	return int(n), nil
}

func (s *gormStore) ActiveBedsByRoom(ctx context.Context, roomID int64) ([]int, error) {
	var beds []int
	if err := s.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("room_id = ? AND status = ?", roomID, model.AssignmentActive).
		Order("bed_number").
		Pluck("bed_number", &beds).Error; err != nil {
		return nil, fmt.Errorf("failed to list active beds for room %d: %w", roomID, err)
	}
	return beds, nil
}

func (s *gormStore) Insert(ctx context.Context, row *model.Assignment) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to insert assignment for student %d: %w", row.StudentID, err)
	}
	return nil
}

func (s *gormStore) EndAssignment(ctx context.Context, id int64, endDate time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Where("id = ? AND status = ?", id, model.AssignmentActive).
		Updates(map[string]any{
			"status":        model.AssignmentEnded,
			"move_out_date": endDate,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to end assignment %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
