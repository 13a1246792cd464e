// Package allocation assigns students to beds and moves them out again.
//
// Every mutating operation runs in one database transaction that starts by
// locking the room row, and ends by recomputing the room's occupancy from the
// ledger instead of adjusting it incrementally.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dorm-allocation-backend/config"
	"dorm-allocation-backend/internal/model"
	"dorm-allocation-backend/internal/store"
)

const (
	opAssignSingle = "assign_single"
	opAssignBatch  = "assign_batch"
	opMoveOut      = "move_out"
	opReconcile    = "reconcile"

	auditModule = "assignment"
)

// Recorder observes finished engine operations.
type Recorder interface {
	ObserveOperation(op, code string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}

// Engine validates and executes allocation requests.
type Engine struct {
	store    store.Store
	cfg      config.AllocationConfig
	log      *zap.Logger
	locks    *roomLocks
	recorder Recorder
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRecorder reports every operation outcome to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock replaces time.Now, which stamps move-out dates and audit entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an allocation engine over s.
func NewEngine(s store.Store, cfg config.AllocationConfig, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:    s,
		cfg:      cfg,
		log:      log,
		locks:    newRoomLocks(),
		recorder: nopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OutcomeStatus is what happened to one batch member.
type OutcomeStatus string

const (
	OutcomeAssigned        OutcomeStatus = "assigned"
	OutcomeAlreadyAssigned OutcomeStatus = "already_assigned"
	OutcomeNotFound        OutcomeStatus = "not_found"
	OutcomeInactive        OutcomeStatus = "inactive"
	OutcomeGenderMismatch  OutcomeStatus = "gender_mismatch"
)

// StudentOutcome reports one member of a batch.
type StudentOutcome struct {
	StudentID    int64         `json:"studentId"`
	Status       OutcomeStatus `json:"status"`
	AssignmentID int64         `json:"assignmentId,omitempty"`
	BedNumber    int           `json:"bedNumber,omitempty"`
}

// BatchResult summarizes a committed batch.
type BatchResult struct {
	RoomID        int64            `json:"roomId"`
	AssignedCount int              `json:"assignedCount"`
	Skipped       []int64          `json:"skipped"`
	Outcomes      []StudentOutcome `json:"outcomes"`
	Occupancy     int              `json:"occupancy"`
}

// Drift is a room whose cached occupancy disagreed with the ledger.
type Drift struct {
	RoomID int64 `json:"roomId"`
	Cached int   `json:"cached"`
	Actual int   `json:"actual"`
}

// AssignSingle places one student on one bed.
//
// Checks run in this order: room exists and is in service, bed in range,
// student exists and is active, student has no active assignment, gender
// matches, bed is free, room is below capacity.
func (e *Engine) AssignSingle(ctx context.Context, req AssignSingleRequest) (row *model.Assignment, err error) {
	defer e.observe(opAssignSingle, time.Now(), &err)

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	err = e.inRoom(ctx, req.RoomID, func(ctx context.Context, tx store.Store) error {
		room, err := lockRoom(ctx, tx, req.RoomID)
		if err != nil {
			return err
		}
		if err := requireInService(room); err != nil {
			return err
		}
		if req.BedNumber < 1 || req.BedNumber > room.BedCount {
			return fmt.Errorf("%w: bed %d not in [1, %d] for room %d", ErrInvalidBed, req.BedNumber, room.BedCount, room.ID)
		}

		student, err := tx.GetStudent(ctx, req.StudentID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %d", ErrStudentNotFound, req.StudentID)
		}
		if err != nil {
			return err
		}
		if student.Status != model.StudentStatusActive {
			return fmt.Errorf("%w: student %s has status %d", ErrStudentInactive, student.StudentNo, student.Status)
		}

		existing, err := tx.FindActiveByStudent(ctx, student.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: student %s holds bed %d in room %d", ErrAlreadyAssigned, student.StudentNo, existing.BedNumber, existing.RoomID)
		}
		if e.cfg.GenderEnforced() && !room.GenderType.Accepts(student.Gender) {
			return fmt.Errorf("%w: student %s, room %d", ErrGenderMismatch, student.StudentNo, room.ID)
		}

		holder, err := tx.FindActiveByRoomAndBed(ctx, room.ID, req.BedNumber)
		if err != nil {
			return err
		}
		if holder != nil {
			return fmt.Errorf("%w: room %d bed %d", ErrBedTaken, room.ID, req.BedNumber)
		}

		active, err := tx.CountActiveByRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		if active >= room.BedCount {
			return fmt.Errorf("%w: room %d has %d of %d beds occupied", ErrRoomFull, room.ID, active, room.BedCount)
		}

		row = &model.Assignment{
			StudentID:  student.ID,
			RoomID:     room.ID,
			BedNumber:  req.BedNumber,
			Status:     model.AssignmentActive,
			MoveInDate: dateOf(req.MoveInDate),
			CreatedBy:  req.Actor.ID,
			CreatedAt:  e.now(),
		}
		if err := tx.Insert(ctx, row); err != nil {
			return err
		}
		occupancy, err := recomputeOccupancy(ctx, tx, room.ID)
		if err != nil {
			return err
		}

		content := fmt.Sprintf("assign student %s (%s) to room %s (id %d) bed %d, occupancy %d/%d",
			student.StudentNo, student.RealName, room.RoomNumber, room.ID, row.BedNumber, occupancy, room.BedCount)
		return e.audit(ctx, tx, req.Actor, "assign", content)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("student assigned",
		zap.Int64("assignment_id", row.ID),
		zap.Int64("student_id", row.StudentID),
		zap.Int64("room_id", row.RoomID),
		zap.Int("bed", row.BedNumber),
		zap.Int64("actor_id", req.Actor.ID))
	return row, nil
}

// AssignBatch places the listed students in one room. The list must fit in
// the room's free beds as counted when the call starts; students that cannot
// be placed for a per-student reason are skipped, not failed.
func (e *Engine) AssignBatch(ctx context.Context, req AssignBatchRequest) (result *BatchResult, err error) {
	defer e.observe(opAssignBatch, time.Now(), &err)

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	err = e.inRoom(ctx, req.RoomID, func(ctx context.Context, tx store.Store) error {
		room, err := lockRoom(ctx, tx, req.RoomID)
		if err != nil {
			return err
		}
		if err := requireInService(room); err != nil {
			return err
		}

		active, err := tx.CountActiveByRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		available := room.BedCount - active
		if available < 0 {
			available = 0
		}
		if len(req.StudentIDs) > available {
			return &InsufficientBedsError{RoomID: room.ID, Requested: len(req.StudentIDs), Available: available}
		}

		takenBeds, err := tx.ActiveBedsByRoom(ctx, room.ID)
		if err != nil {
			return err
		}
		students, err := tx.GetStudents(ctx, req.StudentIDs)
		if err != nil {
			return err
		}

		beds := newBedAllocator(e.cfg.BatchBedPolicy, room.BedCount, active, takenBeds)
		moveIn := dateOf(req.MoveInDate)
		result = &BatchResult{
			RoomID:   room.ID,
			Skipped:  []int64{},
			Outcomes: make([]StudentOutcome, 0, len(req.StudentIDs)),
		}

		for position, studentID := range req.StudentIDs {
			outcome := StudentOutcome{StudentID: studentID}

			status, err := e.batchEligibility(ctx, tx, room, students, studentID)
			if err != nil {
				return err
			}
			if status != OutcomeAssigned {
				outcome.Status = status
				result.Outcomes = append(result.Outcomes, outcome)
				result.Skipped = append(result.Skipped, studentID)
				continue
			}

			bed, err := beds.next(position)
			if err != nil {
				return err
			}
			row := &model.Assignment{
				StudentID:  studentID,
				RoomID:     room.ID,
				BedNumber:  bed,
				Status:     model.AssignmentActive,
				MoveInDate: moveIn,
				CreatedBy:  req.Actor.ID,
				CreatedAt:  e.now(),
			}
			if err := tx.Insert(ctx, row); err != nil {
				return err
			}

			outcome.Status = OutcomeAssigned
			outcome.AssignmentID = row.ID
			outcome.BedNumber = bed
			result.Outcomes = append(result.Outcomes, outcome)
			result.AssignedCount++
		}

		result.Occupancy, err = recomputeOccupancy(ctx, tx, room.ID)
		if err != nil {
			return err
		}

		content := fmt.Sprintf("batch assign %d of %d students to room %s (id %d), occupancy %d/%d",
			result.AssignedCount, len(req.StudentIDs), room.RoomNumber, room.ID, result.Occupancy, room.BedCount)
		return e.audit(ctx, tx, req.Actor, "batch_assign", content)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("batch assigned",
		zap.Int64("room_id", result.RoomID),
		zap.Int("assigned", result.AssignedCount),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int64("actor_id", req.Actor.ID))
	return result, nil
}

// batchEligibility decides whether one batch member can be placed.
func (e *Engine) batchEligibility(ctx context.Context, tx store.Store, room *model.Room, students map[int64]model.Student, studentID int64) (OutcomeStatus, error) {
	student, ok := students[studentID]
	if !ok {
		return OutcomeNotFound, nil
	}
	if student.Status != model.StudentStatusActive {
		return OutcomeInactive, nil
	}
	existing, err := tx.FindActiveByStudent(ctx, studentID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return OutcomeAlreadyAssigned, nil
	}
	if e.cfg.GenderEnforced() && !room.GenderType.Accepts(student.Gender) {
		return OutcomeGenderMismatch, nil
	}
	return OutcomeAssigned, nil
}

// MoveOut ends an active assignment with today's date. A second call on the
// same assignment fails with ErrNotActive and leaves the row untouched.
func (e *Engine) MoveOut(ctx context.Context, req MoveOutRequest) (row *model.Assignment, err error) {
	defer e.observe(opMoveOut, time.Now(), &err)

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	current, err := e.store.GetAssignment(ctx, req.AssignmentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrAssignmentNotFound, req.AssignmentID)
	}
	if err != nil {
		return nil, e.translate(err)
	}

	err = e.inRoom(ctx, current.RoomID, func(ctx context.Context, tx store.Store) error {
		room, err := lockRoom(ctx, tx, current.RoomID)
		if err != nil {
			return err
		}
		row, err = tx.LockAssignment(ctx, req.AssignmentID)
		if err != nil {
			return err
		}
		if !row.IsActive() {
			return fmt.Errorf("%w: assignment %d is %s", ErrNotActive, row.ID, row.Status)
		}

		today := dateOf(e.now())
		ended, err := tx.EndAssignment(ctx, row.ID, today)
		if err != nil {
			return err
		}
		if !ended {
			return fmt.Errorf("%w: assignment %d", ErrNotActive, row.ID)
		}
		row.Status = model.AssignmentEnded
		row.MoveOutDate = &today

		occupancy, err := recomputeOccupancy(ctx, tx, room.ID)
		if err != nil {
			return err
		}

		content := fmt.Sprintf("move out assignment %d (student %d) from room %s (id %d) bed %d, occupancy %d/%d",
			row.ID, row.StudentID, room.RoomNumber, room.ID, row.BedNumber, occupancy, room.BedCount)
		return e.audit(ctx, tx, req.Actor, "move_out", content)
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("student moved out",
		zap.Int64("assignment_id", row.ID),
		zap.Int64("room_id", row.RoomID),
		zap.Int64("actor_id", req.Actor.ID))
	return row, nil
}

// Reconcile recomputes occupancy for every room and returns the rooms whose
// cached value was wrong.
func (e *Engine) Reconcile(ctx context.Context, actor Actor) (drifts []Drift, err error) {
	defer e.observe(opReconcile, time.Now(), &err)

	ids, err := e.store.ListRoomIDs(ctx)
	if err != nil {
		return nil, e.translate(err)
	}

	for _, id := range ids {
		var drift *Drift
		err := e.inRoom(ctx, id, func(ctx context.Context, tx store.Store) error {
			drift = nil
			room, err := lockRoom(ctx, tx, id)
			if err != nil {
				return err
			}
			actual, err := recomputeOccupancy(ctx, tx, id)
			if err != nil {
				return err
			}
			if actual == room.CurrentOccupancy {
				return nil
			}
			drift = &Drift{RoomID: id, Cached: room.CurrentOccupancy, Actual: actual}
			content := fmt.Sprintf("reconcile room %s (id %d) occupancy %d -> %d", room.RoomNumber, id, room.CurrentOccupancy, actual)
			return e.audit(ctx, tx, actor, "reconcile", content)
		})
		if errors.Is(err, ErrRoomNotFound) {
			continue
		}
		if err != nil {
			return drifts, err
		}
		if drift != nil {
			drifts = append(drifts, *drift)
		}
	}

	if len(drifts) > 0 {
		e.log.Warn("room occupancy drift corrected", zap.Int("rooms", len(drifts)))
	}
	return drifts, nil
}

// inRoom runs fn in one transaction while holding the in-process lock for
// roomID, bounded by the configured operation timeout.
func (e *Engine) inRoom(ctx context.Context, roomID int64, fn func(ctx context.Context, tx store.Store) error) error {
	if e.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.OperationTimeout)
		defer cancel()
	}

	release, err := e.locks.acquire(ctx, roomID)
	if err != nil {
		return fmt.Errorf("%w: waiting for room %d: %v", ErrBusy, roomID, err)
	}
	defer release()

	err = e.store.Transaction(ctx, func(tx store.Store) error {
		return fn(ctx, tx)
	})
	return e.translate(err)
}

// translate keeps engine errors as they are and classifies storage failures.
func (e *Engine) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case KindOf(err) != KindInternal:
		return err
	case store.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrBusy, err)
	default:
		e.log.Error("allocation storage failure", zap.Error(err))
		return fmt.Errorf("allocation failed: %w", err)
	}
}

func (e *Engine) observe(op string, start time.Time, err *error) {
	e.recorder.ObserveOperation(op, Code(*err), time.Since(start))
}

func (e *Engine) audit(ctx context.Context, tx store.Store, actor Actor, action, content string) error {
	return tx.AppendLog(ctx, &model.OperationLog{
		UserID:    actor.ID,
		Module:    auditModule,
		Action:    action,
		Content:   content,
		RequestID: actor.RequestID,
		IPAddress: actor.IP,
		CreatedAt: e.now(),
	})
}

func lockRoom(ctx context.Context, tx store.Store, id int64) (*model.Room, error) {
	room, err := tx.LockRoom(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrRoomNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// requireInService rejects rooms under maintenance or disabled. Move-outs
// and reconciliation are allowed on them.
func requireInService(room *model.Room) error {
	if room.Status != model.RoomStatusNormal {
		return fmt.Errorf("%w: room %d has status %d", ErrRoomUnavailable, room.ID, room.Status)
	}
	return nil
}

// recomputeOccupancy writes count(active rows) to the room and returns it.
func recomputeOccupancy(ctx context.Context, tx store.Store, roomID int64) (int, error) {
	n, err := tx.CountActiveByRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if err := tx.SetOccupancy(ctx, roomID, n); err != nil {
		return 0, err
	}
	return n, nil
}
