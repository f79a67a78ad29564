// Package source holds the three editable sources of the playground and
// persists every change.
package source

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ChangeFunc is called after a field has been persisted.
type ChangeFunc func(field Field, value string)

// Store is the source state store. Mutations are serialized: each Set,
// including the change callbacks it triggers, completes before the next
// one starts.
type Store struct {
	backend Backend
	logger  *zap.Logger

	setMu sync.Mutex

	mu  sync.RWMutex
	doc Document

	listenersMu sync.RWMutex
	listeners   map[uint64]ChangeFunc
	order       []uint64
	nextID      uint64
}

// NewStore loads every field from backend, using defaults for fields
// that were never stored.
func NewStore(ctx context.Context, backend Backend, defaults Document, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		backend:   backend,
		logger:    logger,
		listeners: make(map[uint64]ChangeFunc),
	}

	for _, f := range Fields {
		value, ok, err := backend.Load(ctx, f.Key())
		if err != nil {
			return nil, fmt.Errorf("failed to load source store: %w", err)
		}
		if !ok {
			value = defaults.Get(f)
		}
		s.doc.set(f, value)
	}

	return s, nil
}

// Get returns the current value of field.
func (s *Store) Get(field Field) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Get(field)
}

// Document returns a snapshot of all fields.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

// Set persists value verbatim and then notifies change listeners.
// Nothing changes when persisting fails.
func (s *Store) Set(ctx context.Context, field Field, value string) error {
	if !field.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}

	s.setMu.Lock()
	defer s.setMu.Unlock()

	if err := s.backend.Save(ctx, field.Key(), value); err != nil {
		s.logger.Error("Failed to persist source field", zap.String("field", field.String()), zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.doc.set(field, value)
	s.mu.Unlock()

	s.logger.Debug("Source field updated", zap.String("field", field.String()), zap.Int("bytes", len(value)))

	for _, fn := range s.snapshotListeners() {
		fn(field, value)
	}
	return nil
}

// OnChange registers fn and returns a function that removes it.
func (s *Store) OnChange(fn ChangeFunc) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) snapshotListeners() []ChangeFunc {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()

	fns := make([]ChangeFunc, 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.listeners[id])
	}
	return fns
}
