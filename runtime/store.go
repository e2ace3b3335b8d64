// Package runtime hosts the session engine: the party store, the setup
// flow, the membership synchronizer and the lifecycle reaper. It
// orchestrates state without rendering opinions or platform specifics.
package runtime

import (
	"sync"
	"time"

	"party-lab/domain"
	"party-lab/errors"
)

// PartyStore is the single source of truth for live parties, keyed by
// anchor voice channel. Each entry carries its own mutex: every
// mutation+render sequence for one party runs under that per-key lock,
// so a slow render can never overwrite a newer roster with stale data.
// Scheduled tasks (thread grace deletion, reap checks) are owned by the
// entry and cancelled when the party is popped.
type PartyStore struct {
	mu      sync.RWMutex
	parties map[domain.ChannelID]*partyEntry
	cards   map[domain.MessageID]domain.ChannelID
}

type partyEntry struct {
	mu    sync.Mutex
	party *domain.Party
	tasks []*time.Timer
}

func NewPartyStore() *PartyStore {
	return &PartyStore{
		parties: make(map[domain.ChannelID]*partyEntry),
		cards:   make(map[domain.MessageID]domain.ChannelID),
	}
}

func (s *PartyStore) Register(p *domain.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parties[p.Anchor]; ok {
		return errors.ErrPartyExists
	}
	s.parties[p.Anchor] = &partyEntry{party: p}
	return nil
}

func (s *PartyStore) Contains(anchor domain.ChannelID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.parties[anchor]
	return ok
}

func (s *PartyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.parties)
}

// Update runs fn under the party's per-key lock. Interleavings can only
// ever observe the party fully consistent or absent: once Pop has
// committed, Update reports ErrStaleSession instead of resurrecting the
// record.
func (s *PartyStore) Update(anchor domain.ChannelID, fn func(p *domain.Party) error) error {
	e, ok := s.entry(anchor)
	if !ok {
		return errors.ErrStaleSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	// Re-check after acquiring the entry lock: a Pop may have won the
	// race while this caller was waiting.
	if cur, ok := s.entry(anchor); !ok || cur != e {
		return errors.ErrStaleSession
	}
	return fn(e.party)
}

// View is Update for read-only callers.
func (s *PartyStore) View(anchor domain.ChannelID, fn func(p *domain.Party)) error {
	return s.Update(anchor, func(p *domain.Party) error {
		fn(p)
		return nil
	})
}

// Pop atomically removes the party and cancels its scheduled tasks.
// This is the single commit point for teardown: exactly one caller wins.
func (s *PartyStore) Pop(anchor domain.ChannelID) (*domain.Party, bool) {
	e, ok := s.entry(anchor)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s.mu.Lock()
	if cur, ok := s.parties[anchor]; !ok || cur != e {
		s.mu.Unlock()
		return nil, false
	}
	delete(s.parties, anchor)
	if e.party.Card != "" {
		delete(s.cards, e.party.Card)
	}
	s.mu.Unlock()
	for _, t := range e.tasks {
		t.Stop()
	}
	return e.party, true
}

// Schedule attaches a delayed task to the party. The timer dies with the
// party: Pop stops anything still pending. Reports false when the party
// is already gone.
func (s *PartyStore) Schedule(anchor domain.ChannelID, d time.Duration, fn func()) bool {
	e, ok := s.entry(anchor)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := s.entry(anchor); !ok || cur != e {
		return false
	}
	e.tasks = append(e.tasks, time.AfterFunc(d, fn))
	return true
}

// BindCard indexes a published card message back to its anchor so button
// presses can find the party. Stale cards (no binding) are detected by a
// failed lookup.
func (s *PartyStore) BindCard(msg domain.MessageID, anchor domain.ChannelID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[msg] = anchor
}

func (s *PartyStore) AnchorByCard(msg domain.MessageID) (domain.ChannelID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	anchor, ok := s.cards[msg]
	return anchor, ok
}

func (s *PartyStore) entry(anchor domain.ChannelID) (*partyEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.parties[anchor]
	return e, ok
}
