package query

import (
	"maps"
	"net/url"
	"sync"
)

// Mode selects how a write affects navigation history.
type Mode int

const (
	// Shallow replaces the current history entry.
	Shallow Mode = iota
	// Deep pushes a new history entry.
	Deep
)

func (m Mode) String() string {
	if m == Deep {
		return "deep"
	}
	return "shallow"
}

// ParamStore is a flat string-keyed parameter store. Writing "" removes the key.
type ParamStore interface {
	Read(key string) (string, bool)
	Write(key, value string, mode Mode)
}

// BatchWriter is implemented by stores that can apply several keys as one
// navigation step.
type BatchWriter interface {
	WriteAll(values map[string]string, mode Mode)
}

// MemoryStore is an in-memory ParamStore with a navigable history.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []map[string]string
	cursor  int
}

// NewMemoryStore creates a store whose first history entry holds initial.
func NewMemoryStore(initial map[string]string) *MemoryStore {
	first := make(map[string]string, len(initial))
	for k, v := range initial {
		if v != "" {
			first[k] = v
		}
	}
	return &MemoryStore{entries: []map[string]string{first}}
}

// Read implements ParamStore.
func (s *MemoryStore) Read(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[s.cursor][key]
	return v, ok
}

// Write implements ParamStore.
func (s *MemoryStore) Write(key, value string, mode Mode) {
	s.WriteAll(map[string]string{key: value}, mode)
}

// WriteAll implements BatchWriter.
func (s *MemoryStore) WriteAll(values map[string]string, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.entries[s.cursor]
	if mode == Deep {
		current = maps.Clone(current)
		s.entries = append(s.entries[:s.cursor+1], current)
		s.cursor++
	}
	for k, v := range values {
		if v == "" {
			delete(current, k)
		} else {
			current[k] = v
		}
	}
}

// Back moves to the previous history entry. It reports whether it moved.
func (s *MemoryStore) Back() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == 0 {
		return false
	}
	s.cursor--
	return true
}

// Forward moves to the next history entry. It reports whether it moved.
func (s *MemoryStore) Forward() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor+1 >= len(s.entries) {
		return false
	}
	s.cursor++
	return true
}

// Len returns the number of history entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Entries returns a copy of every history entry, oldest first.
func (s *MemoryStore) Entries() []map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = maps.Clone(e)
	}
	return out
}

// Values returns a copy of the current entry.
func (s *MemoryStore) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.entries[s.cursor])
}

// Encode returns the current entry as a URL query string.
func (s *MemoryStore) Encode() string {
	q := url.Values{}
	for k, v := range s.Values() {
		q.Set(k, v)
	}
	return q.Encode()
}

// ValuesStore adapts url.Values. Navigation modes have no meaning for a
// single request, so both modes write in place.
type ValuesStore struct {
	values url.Values
}

// NewValuesStore wraps values. A nil map starts empty.
func NewValuesStore(values url.Values) *ValuesStore {
	if values == nil {
		values = url.Values{}
	}
	return &ValuesStore{values: values}
}

// Read implements ParamStore. Only the first value of a key is used.
func (s *ValuesStore) Read(key string) (string, bool) {
	if !s.values.Has(key) {
		return "", false
	}
	return s.values.Get(key), true
}

// Write implements ParamStore.
func (s *ValuesStore) Write(key, value string, _ Mode) {
	if value == "" {
		s.values.Del(key)
		return
	}
	s.values.Set(key, value)
}

// Values returns the underlying map.
func (s *ValuesStore) Values() url.Values {
	return s.values
}

// Encode returns the values as a URL query string.
func (s *ValuesStore) Encode() string {
	return s.values.Encode()
}
