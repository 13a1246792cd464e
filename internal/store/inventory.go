package store

import (
	"context"
	"fmt"

	"dorm-allocation-backend/internal/model"
)

func (s *gormStore) GetRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		return nil, notFound(err, "room %d", id)
	}
	return &room, nil
}

func (s *gormStore) LockRoom(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	if err := s.db.WithContext(ctx).Clauses(lockingForUpdate).First(&room, id).Error; err != nil {
		return nil, notFound(err, "room %d", id)
	}
	return &room, nil
}

func (s *gormStore) SetOccupancy(ctx context.Context, id int64, n int) error {
	res := s.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ?", id).
		UpdateColumn("current_occupancy", n)
	if res.Error != nil {
		return fmt.Errorf("failed to set occupancy for room %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("room %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *gormStore) ListRoomIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.WithContext(ctx).Model(&model.Room{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return ids, nil
}
