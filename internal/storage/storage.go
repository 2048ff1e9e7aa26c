package storage

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/markedit-studio/markedit/internal/session"
)

type SessionStore struct {
	sessions     map[string]*session.Session
	historyLimit int
	mu           sync.RWMutex
}

func New(historyLimit int) *SessionStore {
	return &SessionStore{
		sessions:     make(map[string]*session.Session),
		historyLimit: historyLimit,
	}
}

// Create registers a fresh idle session under a new id
func (s *SessionStore) Create() *session.Session {
	sess := session.New(uuid.NewString(), s.historyLimit)
	s.Set(sess.ID, sess)
	return sess
}

func (s *SessionStore) Get(sessionID string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, exists := s.sessions[sessionID]
	return sess, exists
}

func (s *SessionStore) Set(sessionID string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = sess
}

// GetAll returns every session, oldest first
func (s *SessionStore) GetAll() []*session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*session.Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
