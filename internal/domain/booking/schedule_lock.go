package booking

import "sync"

// scheduleLocks hands out one mutex per schedule key and drops it when unused.
type scheduleLocks struct {
	mu    sync.Mutex
	locks map[string]*scheduleLock
}

type scheduleLock struct {
	sync.Mutex
	refs int
}

func newScheduleLocks() *scheduleLocks {
	return &scheduleLocks{locks: make(map[string]*scheduleLock)}
}

// lock blocks until key is free and returns its release func.
func (l *scheduleLocks) lock(key string) func() {
	l.mu.Lock()
	sl, ok := l.locks[key]
	if !ok {
		sl = &scheduleLock{}
		l.locks[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.Lock()

	return func() {
		sl.Unlock()

		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
