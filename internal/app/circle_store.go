package app

import (
	"sync"

	"github.com/dkeye/Circles/internal/domain"
	"github.com/rs/zerolog/log"
)

// circleEntry serializes every mutation of one circle.
type circleEntry struct {
	mu     sync.Mutex
	circle *domain.Circle
	ended  bool
}

// CircleStore maps codes to live circles. Entries are only mutated by the
// Orchestrator while it holds the entry lock.
type CircleStore struct {
	mu      sync.RWMutex
	circles map[domain.CircleCode]*circleEntry
	codes   *CodeGenerator
}

func NewCircleStore(codes *CodeGenerator) *CircleStore {
	return &CircleStore{
		circles: make(map[domain.CircleCode]*circleEntry),
		codes:   codes,
	}
}

// create inserts a circle founded by founder under a fresh code.
// The entry is returned locked; the caller must unlock it.
func (s *CircleStore) create(founder *domain.Member) (*circleEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, err := s.codes.Generate(func(c domain.CircleCode) bool {
		_, ok := s.circles[c]
		return ok
	})
	if err != nil {
		return nil, err
	}
	e := &circleEntry{circle: domain.NewCircle(code, founder)}
	e.mu.Lock()
	s.circles[code] = e
	log.Info().Str("module", "app.store").Str("circle", string(code)).Msg("circle created")
	return e, nil
}

// acquire returns the locked entry for code, or false when no active circle exists.
func (s *CircleStore) acquire(code domain.CircleCode) (*circleEntry, bool) {
	s.mu.RLock()
	e, ok := s.circles[code]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	if e.ended {
		e.mu.Unlock()
		return nil, false
	}
	return e, true
}

// remove deletes a circle. e.mu must be held.
func (s *CircleStore) remove(e *circleEntry) {
	e.ended = true
	s.mu.Lock()
	delete(s.circles, e.circle.Code)
	s.mu.Unlock()
	log.Info().Str("module", "app.store").Str("circle", string(e.circle.Code)).Msg("circle removed")
}

func (s *CircleStore) Exists(code domain.CircleCode) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.circles[code]
	return ok
}

// Snapshot returns the current state of code.
func (s *CircleStore) Snapshot(code domain.CircleCode) (domain.Snapshot, bool) {
	e, ok := s.acquire(code)
	if !ok {
		return domain.Snapshot{}, false
	}
	defer e.mu.Unlock()
	return e.circle.Snapshot(), true
}

func (s *CircleStore) Codes() []domain.CircleCode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CircleCode, 0, len(s.circles))
	for code := range s.circles {
		out = append(out, code)
	}
	return out
}

type StoreStats struct {
	Circles int `json:"circles"`
	Members int `json:"members"`
}

func (s *CircleStore) Stats() StoreStats {
	s.mu.RLock()
	entries := make([]*circleEntry, 0, len(s.circles))
	for _, e := range s.circles {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	// Entry locks are taken after the store lock is released to keep lock order.
	var st StoreStats
	for _, e := range entries {
		e.mu.Lock()
		if !e.ended {
			st.Circles++
			st.Members += e.circle.MemberCount()
		}
		e.mu.Unlock()
	}
	return st
}
