package store

import "sync"

// Listeners is an ordered set of change callbacks owned by a store.
// Callbacks are invoked synchronously, outside of any store lock.
type Listeners struct {
	mu    sync.Mutex
	seq   uint64
	items []listener
}

type listener struct {
	id uint64
	fn func()
}

// Add registers callback and returns function removing it. Removal is idempotent
// and safe to call from inside a callback.
func (l *Listeners) Add(fn func()) (remove func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	id := l.seq
	l.items = append(l.items, listener{id: id, fn: fn})
	return func() { l.remove(id) }
}

// Notify calls every registered callback in registration order. A callback removed
// during notification is not called afterwards.
func (l *Listeners) Notify() {
	l.mu.Lock()
	items := make([]listener, len(l.items))
	copy(items, l.items)
	l.mu.Unlock()

	for _, it := range items {
		if !l.has(it.id) {
			continue
		}
		it.fn()
	}
}

func (l *Listeners) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *Listeners) has(id uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range l.items {
		if it.id == id {
			return true
		}
	}
	return false
}

func (l *Listeners) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, it := range l.items {
		if it.id == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return
		}
	}
}
