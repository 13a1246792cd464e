package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorm-allocation-backend/config"
)

func TestBedAllocator_LowestFree(t *testing.T) {
	a := newBedAllocator(config.BedPolicyLowestFree, 5, 2, []int{2, 4})

	var got []int
	for i := 0; i < 3; i++ {
		bed, err := a.next(i)
		require.NoError(t, err)
		got = append(got, bed)
	}
	assert.Equal(t, []int{1, 3, 5}, got)

	_, err := a.next(3)
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestBedAllocator_Sequential(t *testing.T) {
	a := newBedAllocator(config.BedPolicySequential, 6, 2, []int{1, 2})

	// Positions of skipped students still consume a number.
	bed, err := a.next(0)
	require.NoError(t, err)
	assert.Equal(t, 3, bed)

	bed, err = a.next(2)
	require.NoError(t, err)
	assert.Equal(t, 5, bed)
}
