package collage

import (
	"fmt"
	"sort"
	"sync"
)

// Store holds the working set of photos. Stacking orders are kept as a
// permutation of 1..N: every mutation renormalizes, so there are never
// ties or gaps.
type Store struct {
	mu     sync.RWMutex
	photos []*Photo
}

func NewStore() *Store {
	return &Store{}
}

// Add appends a photo to the front of the stack. A zero scale is
// normalized to 1.
func (s *Store) Add(p *Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Scale <= 0 {
		p.Scale = 1.0
	}
	p.Order = len(s.photos) + 1
	s.photos = append(s.photos, p)
}

// Remove deletes a photo by id and renormalizes stacking orders.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.photos {
		if p.ID == id {
			s.photos = append(s.photos[:i], s.photos[i+1:]...)
			s.renormalize()
			return true
		}
	}
	return false
}

// Reorder moves a photo to the given stacking rank (1..N, clamped) and
// shifts the rest accordingly.
func (s *Store) Reorder(id string, order int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, p := range s.photos {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("фото %q не найдено", id)
	}

	if order < 1 {
		order = 1
	}
	if order > len(s.photos) {
		order = len(s.photos)
	}

	s.photos[idx].Order = order
	// Сдвигаем остальных: стабильная сортировка по старому порядку,
	// перемещённое фото выигрывает спорный ранг.
	moved := s.photos[idx]
	sort.SliceStable(s.photos, func(i, j int) bool {
		if s.photos[i].Order == s.photos[j].Order {
			return s.photos[j] == moved
		}
		return s.photos[i].Order < s.photos[j].Order
	})
	s.renormalize()
	return nil
}

// Get returns the photo with the given id.
func (s *Store) Get(id string) (*Photo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.photos {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// Photos returns a snapshot of the set ordered back-to-front.
func (s *Store) Photos() []Photo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Photo, len(s.photos))
	for i, p := range s.photos {
		out[i] = *p
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Len returns the number of photos.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

// renormalize rewrites orders as 1..N preserving relative ranking.
// Caller must hold the lock.
func (s *Store) renormalize() {
	sort.SliceStable(s.photos, func(i, j int) bool {
		return s.photos[i].Order < s.photos[j].Order
	})
	for i, p := range s.photos {
		p.Order = i + 1
	}
}
