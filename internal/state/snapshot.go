// Package state holds the per-service mutable tables: the live Settings and
// the Overwrite Table. Each table keeps the snapshot it was constructed with
// and a live copy, and exposes merge and reset as its only mutators.
package state

import "sync"

// snapshot 保存初始值与当前值；所有读写都经过 clone，调用方无法修改内部数据。
type snapshot[T any] struct {
	mu      sync.RWMutex
	initial T
	live    T
	clone   func(T) T
}

func newSnapshot[T any](initial T, clone func(T) T) *snapshot[T] {
	return &snapshot[T]{
		initial: clone(initial),
		live:    clone(initial),
		clone:   clone,
	}
}

func (s *snapshot[T]) load() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.live)
}

// update 在副本上执行 fn，成功后整体替换当前值。
func (s *snapshot[T]) update(fn func(next T) (T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.clone(s.live))
	if err != nil {
		return err
	}
	s.live = next
	return nil
}

func (s *snapshot[T]) reset() {
	s.mu.Lock()
	s.live = s.clone(s.initial)
	s.mu.Unlock()
}
