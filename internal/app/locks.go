package app

import "sync"

// conversationLocks serializes message appends per conversation so two
// concurrent turns cannot compute the same next sequence number. Turns on
// different conversations never contend. The lock is held only across the
// local read-and-append commit, never across an external network call.
type conversationLocks struct {
	mu sync.Map // conversation ID -> *sync.Mutex
}

func (l *conversationLocks) acquire(conversationID string) *sync.Mutex {
	v, _ := l.mu.LoadOrStore(conversationID, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m
}
