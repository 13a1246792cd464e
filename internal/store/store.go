package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dorm-allocation-backend/internal/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = fmt.Errorf("record not found: %w", gorm.ErrRecordNotFound)

// Inventory is the room inventory. It validates nothing beyond existence.
type Inventory interface {
	GetRoom(ctx context.Context, id int64) (*model.Room, error)
	// LockRoom reads the room and holds a row lock on it until the
	// surrounding transaction ends.
	LockRoom(ctx context.Context, id int64) (*model.Room, error)
	SetOccupancy(ctx context.Context, id int64, n int) error
	ListRoomIDs(ctx context.Context) ([]int64, error)
}

// Ledger is the append-style assignment store. It enforces no business rules.
type Ledger interface {
	GetAssignment(ctx context.Context, id int64) (*model.Assignment, error)
	LockAssignment(ctx context.Context, id int64) (*model.Assignment, error)
	FindActiveByStudent(ctx context.Context, studentID int64) (*model.Assignment, error)
	FindActiveByRoomAndBed(ctx context.Context, roomID int64, bed int) (*model.Assignment, error)
	CountActiveByRoom(ctx context.Context, roomID int64) (int, error)
	ActiveBedsByRoom(ctx context.Context, roomID int64) ([]int, error)
	Insert(ctx context.Context, row *model.Assignment) error
	// EndAssignment ends the row if it is still active and reports whether it did.
	EndAssignment(ctx context.Context, id int64, endDate time.Time) (bool, error)
}

// Students reads student records owned by student management.
type Students interface {
	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	GetStudents(ctx context.Context, ids []int64) (map[int64]model.Student, error)
}

// Audit appends to the operation log.
type Audit interface {
	AppendLog(ctx context.Context, entry *model.OperationLog) error
}

// Store defines the interface for all database operations.
type Store interface {
	Inventory
	Ledger
	Students
	Audit
	Reports

	// Transaction runs fn against a Store bound to one database transaction.
	// A non-nil error from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) AppendLog(ctx context.Context, entry *model.OperationLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append operation log: %w", err)
	}
	return nil
}

func (s *gormStore) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	var student model.Student
	if err := s.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return nil, notFound(err, "student %d", id)
	}
	return &student, nil
}

func (s *gormStore) GetStudents(ctx context.Context, ids []int64) (map[int64]model.Student, error) {
	students := make(map[int64]model.Student, len(ids))
	if len(ids) == 0 {
		return students, nil
	}
	var rows []model.Student
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch students: %w", err)
	}
	for _, st := range rows {
		students[st.ID] = st
	}
	return students, nil
}

// lockingForUpdate is ignored by the sqlite dialect, which locks the whole
// database for a write transaction instead.
var lockingForUpdate = clause.Locking{Strength: "UPDATE"}

// notFound maps gorm.ErrRecordNotFound to ErrNotFound and wraps anything else.
func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to fetch %s: %w", what, err)
}
