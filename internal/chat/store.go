// Package chat manages per-user conversation history and prompt assembly.
package chat

import (
	"sync"
	"time"

	"github.com/safarlabs/safar/internal/domain"
)

// Store is a per-user append-only history of conversation turns.
type Store interface {
	// Append records a completed turn for a user. Turns are never mutated
	// after append.
	Append(userID string, turn domain.Turn)

	// Recent returns up to n most recent turns for a user, oldest first.
	// n <= 0 returns all turns.
	Recent(userID string, n int) []domain.Turn

	// Users returns all known user identifiers.
	Users() []string
}

// MemoryStore is an in-memory Store. Sessions are created lazily on first
// append and live for the process lifetime.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*domain.Session)}
}

func (s *MemoryStore) Append(userID string, turn domain.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		sess = &domain.Session{UserID: userID, CreatedAt: time.Now()}
		s.sessions[userID] = sess
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	sess.Turns = append(sess.Turns, turn)
	sess.UpdatedAt = time.Now()
}

func (s *MemoryStore) Recent(userID string, n int) []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	turns := sess.Turns
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	return out
}

func (s *MemoryStore) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}
