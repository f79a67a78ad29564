// Package console holds the preview's console output: one entry per log
// call, in emission order.
package console

import (
	"strings"
	"sync"
)

// Store is an append-only ordered list of console entries.
// It has no bound, no deduplication and no clear operation.
type Store struct {
	mu          sync.RWMutex
	entries     []string
	subscribers map[uint64]chan string
	nextID      uint64
}

// NewStore creates an empty console store
func NewStore() *Store {
	return &Store{
		entries:     []string{},
		subscribers: make(map[uint64]chan string),
	}
}

// Append joins args with a single space, records the entry and returns it
func (s *Store) Append(args []string) string {
	entry := strings.Join(args, " ")

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	for id, ch := range s.subscribers {
		select {
		case ch <- entry:
		default:
			// Lagging subscriber: end its stream so it resubscribes.
			delete(s.subscribers, id)
			close(ch)
		}
	}
	return entry
}

// Entries returns a copy of all entries in order
func (s *Store) Entries() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.entries...)
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Subscribe streams entries appended after the call. The returned snapshot
// holds every entry recorded before it, so snapshot plus stream never
// skips or repeats an entry while the stream stays open.
//
// A subscriber that falls more than buffer entries behind has its stream
// closed. Entries are append-only, so it can Subscribe again and resume
// from the snapshot at the number of entries it already received.
// cancel is idempotent and safe after such a close.
func (s *Store) Subscribe(buffer int) (snapshot []string, stream <-chan string, cancel func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan string, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch
	snapshot = append([]string{}, s.entries...)
	s.mu.Unlock()

	cancel = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}
	return snapshot, ch, cancel
}
