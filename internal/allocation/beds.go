package allocation

import (
	"fmt"

	"dorm-allocation-backend/config"
)

// bedAllocator hands out bed numbers to the members of one batch.
type bedAllocator struct {
	policy   string
	capacity int
	// start is the active count of the room when the batch began.
	start int
	taken map[int]bool
}

func newBedAllocator(policy string, capacity, start int, taken []int) *bedAllocator {
	a := &bedAllocator{
		policy:   policy,
		capacity: capacity,
		start:    start,
		taken:    make(map[int]bool, len(taken)),
	}
	for _, b := range taken {
		a.taken[b] = true
	}
	return a
}

// next returns the bed for the student at position in the request list.
//
// The sequential policy computes start+position+1 without re-checking the
// bed; a collision with a bed left behind a move-out gap is caught by the
// active-bed unique index and the whole batch is rolled back.
func (a *bedAllocator) next(position int) (int, error) {
	var bed int
	switch a.policy {
	case config.BedPolicySequential:
		bed = a.start + position + 1
	default:
		for b := 1; b <= a.capacity; b++ {
			if !a.taken[b] {
				bed = b
				break
			}
		}
		if bed == 0 {
			return 0, fmt.Errorf("%w: no free bed left", ErrRoomFull)
		}
	}
	a.taken[bed] = true
	return bed, nil
}
