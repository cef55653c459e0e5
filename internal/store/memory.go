package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robe-lope/bookbuddy-swapper/internal/models"
	"github.com/robe-lope/bookbuddy-swapper/internal/utils"
)

// MemoryStore is an in-process Store used by the CLI dry runs and tests.
// A single mutex makes every operation atomic.
type MemoryStore struct {
	mu        sync.Mutex
	matches   map[utils.SixID]*models.Match
	byPairKey map[string]utils.SixID
	messages  map[utils.SixID][]*models.Message
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matches:   make(map[utils.SixID]*models.Match),
		byPairKey: make(map[string]utils.SixID),
		messages:  make(map[utils.SixID][]*models.Message),
	}
}

func copyMatch(m *models.Match) *models.Match {
	c := *m
	c.Messages = nil
	return &c
}

func (s *MemoryStore) InsertMatch(_ context.Context, m *models.Match) (*models.Match, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byPairKey[m.PairKey]; ok {
		return copyMatch(s.matches[id]), false, nil
	}
	for m.ID.IsZero() || s.matches[m.ID] != nil {
		m.GenID()
	}
	stored := copyMatch(m)
	s.matches[stored.ID] = stored
	s.byPairKey[stored.PairKey] = stored.ID
	return copyMatch(stored), true, nil
}

func (s *MemoryStore) FindMatchByID(_ context.Context, id utils.SixID) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMatch(m), nil
}

func (s *MemoryStore) ListMatchesByUser(_ context.Context, userID utils.SixID) ([]models.Match, error) {
	return s.listMatches(func(m *models.Match) bool { return m.UserA == userID || m.UserB == userID }), nil
}

// ListAllMatches returns every match, newest first.
func (s *MemoryStore) ListAllMatches(_ context.Context) ([]models.Match, error) {
	return s.listMatches(func(*models.Match) bool { return true }), nil
}

func (s *MemoryStore) listMatches(keep func(*models.Match) bool) []models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Match{}
	for _, m := range s.matches {
		if keep(m) {
			out = append(out, *copyMatch(m))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (s *MemoryStore) CompareAndSetStatus(_ context.Context, id utils.SixID, from, to models.MatchStatus, at time.Time) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.Status != from {
		return nil, ErrStatusConflict
	}
	m.Status = to
	m.UpdatedAt = at
	return copyMatch(m), nil
}

func (s *MemoryStore) ReserveMessageSeq(_ context.Context, id utils.SixID) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.Status.AllowsMessages() {
		return nil, ErrMatchClosed
	}
	m.MessageSeq++
	return copyMatch(m), nil
}

func (s *MemoryStore) InsertMessage(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.GenIDIfEmpty()
	stored := *msg
	list := append(s.messages[msg.MatchID], &stored)
	// Appends can land out of seq order when two senders race between
	// reserving a slot and inserting.
	sort.SliceStable(list, func(i, j int) bool { return list[i].Seq < list[j].Seq })
	s.messages[msg.MatchID] = list
	return nil
}

func (s *MemoryStore) ListMessages(_ context.Context, matchID utils.SixID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, 0, len(s.messages[matchID]))
	for _, msg := range s.messages[matchID] {
		out = append(out, *msg)
	}
	return out, nil
}

func (s *MemoryStore) MarkMessagesRead(_ context.Context, matchID, readerID utils.SixID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, msg := range s.messages[matchID] {
		if msg.SenderID != readerID && !msg.Read {
			msg.Read = true
			n++
		}
	}
	return n, nil
}
