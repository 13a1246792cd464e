package allocation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Actor identifies who performs an operation, for the audit trail.
type Actor struct {
	ID        int64 `validate:"gt=0"`
	RequestID string
	IP        string
}

// AssignSingleRequest places one student on one bed. The bed range is checked
// against the room, not here.
type AssignSingleRequest struct {
	StudentID  int64     `validate:"gt=0"`
	RoomID     int64     `validate:"gt=0"`
	BedNumber  int
	MoveInDate time.Time `validate:"required"`
	Actor      Actor
}

// AssignBatchRequest places several students in one room, in list order.
type AssignBatchRequest struct {
	RoomID     int64     `validate:"gt=0"`
	StudentIDs []int64   `validate:"required,min=1,dive,gt=0"`
	MoveInDate time.Time `validate:"required"`
	Actor      Actor
}

// MoveOutRequest ends one active assignment.
type MoveOutRequest struct {
	AssignmentID int64 `validate:"gt=0"`
	Actor        Actor
}

func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields = append(fields, fmt.Sprintf("%s failed %q", ns, fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, "; "))
}

// dateOf truncates t to its calendar day.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
