package services

import (
	"context"
	"sync"
)

// RoomLocker serializes membership changes on one chat room.
type RoomLocker interface {
	Lock(ctx context.Context, groupID string) (unlock func(), err error)
}

type localRoomLocker struct {
	mu    sync.Mutex
	rooms map[string]*roomSlot
}

type roomSlot struct {
	ch   chan struct{}
	refs int
}

// NewLocalRoomLocker locks rooms within this process only.
func NewLocalRoomLocker() RoomLocker {
	return &localRoomLocker{rooms: map[string]*roomSlot{}}
}

func (l *localRoomLocker) Lock(ctx context.Context, groupID string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.rooms[groupID]
	if !ok {
		slot = &roomSlot{ch: make(chan struct{}, 1)}
		l.rooms[groupID] = slot
	}
	slot.refs++
	l.mu.Unlock()

	// an uncontended room is taken even when ctx is already done
	select {
	case slot.ch <- struct{}{}:
	default:
		select {
		case slot.ch <- struct{}{}:
		case <-ctx.Done():
			l.release(groupID, slot)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(groupID, slot)
		})
	}, nil
}

func (l *localRoomLocker) release(groupID string, slot *roomSlot) {
	l.mu.Lock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.rooms, groupID)
	}
	l.mu.Unlock()
}

type noopRoomLocker struct{}

func (noopRoomLocker) Lock(ctx context.Context, groupID string) (func(), error) {
	return func() {}, nil
}
