package settlement

import "github.com/google/uuid"

// wagerSet remembers the most recent settled wager IDs, evicting the oldest
// once full. Postgres also refuses a second history row per wager_id.
type wagerSet struct {
	ids  map[uuid.UUID]struct{}
	ring []uuid.UUID
	next int
}

func newWagerSet(capacity int) *wagerSet {
	return &wagerSet{
		ids:  make(map[uuid.UUID]struct{}, capacity),
		ring: make([]uuid.UUID, 0, capacity),
	}
}

func (s *wagerSet) Has(id uuid.UUID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *wagerSet) Add(id uuid.UUID) {
	if s.Has(id) {
		return
	}
	if len(s.ring) < cap(s.ring) {
		s.ring = append(s.ring, id)
	} else {
		delete(s.ids, s.ring[s.next])
		s.ring[s.next] = id
		s.next = (s.next + 1) % len(s.ring)
	}
	s.ids[id] = struct{}{}
}

func (s *wagerSet) Len() int {
	return len(s.ids)
}
