// internal/runutil/lru_set.go
package runutil

import "container/list"

// LRUSet is a size-bounded set with O(1) hit/insert. A hit refreshes the
// key; inserting past capacity evicts the least recently seen key. Not safe
// for concurrent use.
type LRUSet[K comparable] struct {
	cap int
	ll  *list.List
	m   map[K]*list.Element
}

// NewLRUSet returns a set holding at most capacity keys (default 4096).
func NewLRUSet[K comparable](capacity int) *LRUSet[K] {
	if capacity <= 0 {
		capacity = 4096
	}
	return &LRUSet[K]{cap: capacity, ll: list.New(), m: make(map[K]*list.Element, capacity)}
}

// Add inserts k; returns true if it was already present.
func (s *LRUSet[K]) Add(k K) bool {
	if e, ok := s.m[k]; ok {
		s.ll.MoveToFront(e)
		return true
	}
	s.m[k] = s.ll.PushFront(k)
	if s.ll.Len() > s.cap {
		tail := s.ll.Back()
		s.ll.Remove(tail)
		delete(s.m, tail.Value.(K))
	}
	return false
}

// Remove forgets k so a later Add reports it as new.
func (s *LRUSet[K]) Remove(k K) {
	if e, ok := s.m[k]; ok {
		s.ll.Remove(e)
		delete(s.m, k)
	}
}

// Len is the number of keys held.
func (s *LRUSet[K]) Len() int { return s.ll.Len() }
