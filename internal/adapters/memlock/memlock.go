// Package memlock is the single-process RoomLocker used when Redis is not configured.
package memlock

import (
	"context"
	"sync"
)

type entry struct {
	ch   chan struct{} // holds one token while the room is locked
	refs int
}

type Locker struct {
	mu    sync.Mutex
	rooms map[int64]*entry
}

func New() *Locker {
	return &Locker{rooms: map[int64]*entry{}}
}

func (l *Locker) acquire(roomID int64) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.rooms[roomID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.rooms[roomID] = e
	}
	e.refs++
	return e
}

func (l *Locker) drop(roomID int64, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.refs--; e.refs == 0 {
		delete(l.rooms, roomID)
	}
}

// Lock blocks until the room is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, roomID int64) (func(), error) {
	e := l.acquire(roomID)
	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(roomID, e)
		return nil, ctx.Err()
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.drop(roomID, e)
		})
	}, nil
}

// held reports how many rooms have waiters or holders.
func (l *Locker) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
