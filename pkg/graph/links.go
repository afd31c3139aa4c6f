package graph

import (
	"maps"
	"slices"
)

// LinkStore holds a graph's links. Workflows store links either as an
// indexable collection or as an associative map depending on where they come
// from; traversal only ever goes through this interface.
type LinkStore interface {
	// Get returns the link with the given id. Unknown and negative ids
	// return false.
	Get(id LinkID) (*Link, bool)
	Put(l *Link)
	Delete(id LinkID)
	// All returns the links ordered by id.
	All() []*Link
	Len() int
}

// LinkList is an array-like LinkStore kept sorted by link id.
type LinkList struct {
	links []*Link
}

// NewLinkList returns an empty array-like store.
func NewLinkList() *LinkList { return &LinkList{} }

func (s *LinkList) search(id LinkID) (int, bool) {
	return slices.BinarySearchFunc(s.links, id, func(l *Link, id LinkID) int {
		return int(l.ID) - int(id)
	})
}

func (s *LinkList) Get(id LinkID) (*Link, bool) {
	if id <= 0 {
		return nil, false
	}
	i, ok := s.search(id)
	if !ok {
		return nil, false
	}
	return s.links[i], true
}

func (s *LinkList) Put(l *Link) {
	i, ok := s.search(l.ID)
	if ok {
		s.links[i] = l
		return
	}
	s.links = slices.Insert(s.links, i, l)
}

func (s *LinkList) Delete(id LinkID) {
	if i, ok := s.search(id); ok {
		s.links = slices.Delete(s.links, i, i+1)
	}
}

func (s *LinkList) All() []*Link { return slices.Clone(s.links) }

func (s *LinkList) Len() int { return len(s.links) }

// LinkMap is an associative LinkStore.
type LinkMap map[LinkID]*Link

// NewLinkMap returns an empty associative store.
func NewLinkMap() LinkMap { return LinkMap{} }

func (m LinkMap) Get(id LinkID) (*Link, bool) {
	l, ok := m[id]
	return l, ok
}

func (m LinkMap) Put(l *Link) { m[l.ID] = l }

func (m LinkMap) Delete(id LinkID) { delete(m, id) }

func (m LinkMap) All() []*Link {
	out := make([]*Link, 0, len(m))
	for _, id := range slices.Sorted(maps.Keys(m)) {
		out = append(out, m[id])
	}
	return out
}

func (m LinkMap) Len() int { return len(m) }

var (
	_ LinkStore = (*LinkList)(nil)
	_ LinkStore = LinkMap(nil)
)
