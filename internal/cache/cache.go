package cache

import (
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo remembers lookup results for the lifetime of a single analysis run.
// Concurrent callers asking for the same key share one in-flight computation.
// Nothing is persisted; a new Memo starts empty.
type Memo struct {
	mu     sync.RWMutex
	values map[string]string
	group  singleflight.Group
}

// New creates an empty memo
func New() *Memo {
	return &Memo{values: make(map[string]string)}
}

// Key joins key parts into a single memo key
func Key(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Get retrieves a remembered value
func (m *Memo) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores a value
func (m *Memo) Set(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// Do returns the remembered value for key, computing it with fn at most once
// per key even under concurrent callers.
func (m *Memo) Do(key string, fn func() string) string {
	if v, ok := m.Get(key); ok {
		return v
	}
	v, _, _ := m.group.Do(key, func() (interface{}, error) {
		if v, ok := m.Get(key); ok {
			return v, nil
		}
		v := fn()
		m.Set(key, v)
		return v, nil
	})
	return v.(string)
}

// Len returns the number of remembered values
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
