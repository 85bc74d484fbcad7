package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medbot/medbot/internal/platform/metrics"
)

const (
	DefaultIdleTTL = 30 * time.Minute

	// MaxSessionsPerPatient bounds the live sessions of one patient; starting
	// another evicts their least recently used session.
	MaxSessionsPerPatient = 5
)

type storedSession struct {
	session  *Session
	lastUsed time.Time
}

// Store holds the live chat sessions in memory. Sessions idle for longer
// than the store's TTL are dropped: lazily on Get, and in a sweep on every
// Create.
type Store struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*storedSession
	idleTTL  time.Duration
	now      func() time.Time
}

// NewStore returns a store expiring sessions after idleTTL without use. A
// non-positive idleTTL means DefaultIdleTTL.
func NewStore(idleTTL time.Duration) *Store {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Store{
		sessions: make(map[uuid.UUID]*storedSession),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

func (s *Store) Create(patientID string) *Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.New(),
		PatientID: patientID,
		CreatedAt: now,
		UpdatedAt: now,
		state:     NewState(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.capLocked(patientID)
	s.sessions[sess.ID] = &storedSession{session: sess, lastUsed: now}
	metrics.ActiveSessions.Inc()
	return sess
}

// Get returns the session id if patientID owns it and refreshes its idle
// timer. Expired sessions are reported as not found.
func (s *Store) Get(id uuid.UUID, patientID string) (*Session, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.expired(entry, now) {
		s.removeLocked(id)
		return nil, ErrSessionNotFound
	}
	if entry.session.PatientID != patientID {
		return nil, ErrSessionForbidden
	}
	entry.lastUsed = now
	return entry.session, nil
}

func (s *Store) Delete(id uuid.UUID, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if entry.session.PatientID != patientID {
		return ErrSessionForbidden
	}
	s.removeLocked(id)
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expired(entry *storedSession, now time.Time) bool {
	return now.Sub(entry.lastUsed) > s.idleTTL
}

func (s *Store) sweepLocked(now time.Time) {
	for id, entry := range s.sessions {
		if s.expired(entry, now) {
			s.removeLocked(id)
		}
	}
}

// capLocked makes room for one more session of patientID.
func (s *Store) capLocked(patientID string) {
	for {
		var (
			oldestID uuid.UUID
			oldest   *storedSession
			count    int
		)
		for id, entry := range s.sessions {
			if entry.session.PatientID != patientID {
				continue
			}
			count++
			if oldest == nil || entry.lastUsed.Before(oldest.lastUsed) {
				oldestID, oldest = id, entry
			}
		}
		if count < MaxSessionsPerPatient {
			return
		}
		s.removeLocked(oldestID)
	}
}

func (s *Store) removeLocked(id uuid.UUID) {
	delete(s.sessions, id)
	metrics.ActiveSessions.Dec()
}
