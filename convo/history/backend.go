package history

import (
	"context"
	"sync"
)

// Backend is the storage contract shared by the durable file store and the
// volatile redis store. Implementations must keep records in insertion
// order, serialize concurrent appends to the same session, and treat Clear
// on an absent session as a no-op. New backends add an implementation here,
// not a subclass anywhere else.
type Backend interface {
	Append(ctx context.Context, session Session, msg Message) error
	List(ctx context.Context, session Session) ([]Message, error)
	Clear(ctx context.Context, session Session) error
}

const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// sessionLocks hands out one mutex per session key so same-session appends
// serialize while different sessions proceed independently.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sync.Mutex)}
}

func (sl *sessionLocks) get(s Session) *sync.Mutex {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	l, ok := sl.locks[s.Key()]
	if !ok {
		l = &sync.Mutex{}
		sl.locks[s.Key()] = l
	}
	return l
}
