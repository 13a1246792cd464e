package allocation

import (
	"context"
	"sync"
)

// roomLocks serializes in-process callers per room. The row lock taken in
// the database transaction still guards against other processes.
type roomLocks struct {
	mu    sync.Mutex
	rooms map[int64]*roomLock
}

type roomLock struct {
	sem  chan struct{}
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{rooms: make(map[int64]*roomLock)}
}

// acquire blocks until the room is free or ctx is done.
func (l *roomLocks) acquire(ctx context.Context, roomID int64) (func(), error) {
	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{sem: make(chan struct{}, 1)}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.sem <- struct{}{}:
	case <-ctx.Done():
		l.unref(roomID, rl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-rl.sem
			l.unref(roomID, rl)
		})
	}, nil
}

func (l *roomLocks) unref(roomID int64, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.rooms, roomID)
	}
}

// len returns the number of rooms with waiters or holders.
func (l *roomLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
