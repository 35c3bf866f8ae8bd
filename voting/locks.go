// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import "sync"

// CastLocks serializes vote casts per device and item across every engine
// that shares it. The zero value is ready to use.
type CastLocks struct {
	mu    sync.Mutex
	locks map[string]*castLock
}

type castLock struct {
	sync.Mutex
	refs int
}

// lock blocks until name is free and returns its release func. Entries
// are dropped once nobody holds or waits on them.
func (l *CastLocks) lock(name string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*castLock)
	}
	cl, ok := l.locks[name]
	if !ok {
		cl = &castLock{}
		l.locks[name] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.Lock()
	return func() {
		cl.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}

func (l *CastLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
