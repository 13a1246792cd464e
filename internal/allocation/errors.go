package allocation

import (
	"errors"
	"fmt"
)

// Validation errors. Nothing has been read or written when these are returned.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidBed     = errors.New("bed number out of range")
)

// Not-found errors.
var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrStudentNotFound    = errors.New("student not found")
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// Conflict errors are expected, recoverable outcomes of a consistency check.
var (
	ErrAlreadyAssigned  = errors.New("student already has an active assignment")
	ErrBedTaken         = errors.New("bed is already taken")
	ErrRoomFull         = errors.New("room is full")
	ErrInsufficientBeds = errors.New("not enough free beds in room")
	ErrNotActive        = errors.New("assignment is not active")
	ErrStudentInactive  = errors.New("student is not active")
	ErrRoomUnavailable  = errors.New("room is not in service")
	ErrGenderMismatch   = errors.New("student gender does not match room")
	// ErrConflict is reported when the storage-level unique indexes reject a
	// write that passed the engine checks.
	ErrConflict = errors.New("allocation conflicted with a concurrent change, try again")
)

// ErrBusy is returned when the operation could not finish within its timeout.
var ErrBusy = errors.New("allocation timed out, try again")

// InsufficientBedsError reports the shortfall of a rejected batch.
type InsufficientBedsError struct {
	RoomID    int64
	Requested int
	Available int
}

func (e *InsufficientBedsError) Error() string {
	return fmt.Sprintf("room %d has %d free beds, cannot assign %d students", e.RoomID, e.Available, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientBeds) hold.
func (e *InsufficientBedsError) Is(target error) bool {
	return target == ErrInsufficientBeds
}

// Shortfall is the number of beds missing for the batch to fit.
func (e *InsufficientBedsError) Shortfall() int {
	return e.Requested - e.Available
}

// Kind classifies an error for callers that map it onto a transport.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindBusy
)

var kinds = []struct {
	err  error
	kind Kind
	code string
}{
	{ErrInvalidRequest, KindValidation, "invalid_request"},
	{ErrInvalidBed, KindValidation, "invalid_bed"},
	{ErrRoomNotFound, KindNotFound, "room_not_found"},
	{ErrStudentNotFound, KindNotFound, "student_not_found"},
	{ErrAssignmentNotFound, KindNotFound, "assignment_not_found"},
	{ErrAlreadyAssigned, KindConflict, "already_assigned"},
	{ErrBedTaken, KindConflict, "bed_taken"},
	{ErrRoomFull, KindConflict, "room_full"},
	{ErrInsufficientBeds, KindConflict, "insufficient_beds"},
	{ErrNotActive, KindConflict, "not_active"},
	{ErrStudentInactive, KindConflict, "student_inactive"},
	{ErrRoomUnavailable, KindConflict, "room_unavailable"},
	{ErrGenderMismatch, KindConflict, "gender_mismatch"},
	{ErrConflict, KindConflict, "conflict"},
	{ErrBusy, KindBusy, "busy"},
}

// KindOf returns the kind of err. Unrecognized errors are internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Code returns a stable machine-readable code for err; "ok" for nil.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.code
		}
	}
	return "internal"
}
