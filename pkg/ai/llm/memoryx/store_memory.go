package memoryx

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/realtor/pkg/logx"
)

// InMemoryStore keeps session logs in process memory. Sessions expire after
// ttl of inactivity; ttl <= 0 keeps them until deleted.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*storedSession
	ttl      time.Duration
	now      func() time.Time
}

type storedSession struct {
	maxLength int
	turns     []Turn
	expiresAt time.Time
}

func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*storedSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *InMemoryStore) Load(ctx context.Context, key string) (*Log, bool, error) {
	s.mu.RLock()
	entry, ok := s.sessions[key]
	s.mu.RUnlock()

	if !ok || s.expired(entry, s.now()) {
		return nil, false, nil
	}
	return RestoreLog(entry.maxLength, entry.turns), true, nil
}

func (s *InMemoryStore) Save(ctx context.Context, key string, log *Log) error {
	entry := &storedSession{
		maxLength: log.MaxLength(),
		turns:     log.Turns(),
	}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.sessions[key] = entry
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
	return nil
}

// Len is the number of stored sessions, expired ones included
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (s *InMemoryStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.sessions {
		if s.expired(entry, now) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// Start sweeps expired sessions every interval until ctx is done
func (s *InMemoryStore) Start(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logx.Info("Session sweeper stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logx.Debugf("Swept %d expired sessions", n)
			}
		}
	}
}

func (s *InMemoryStore) expired(entry *storedSession, now time.Time) bool {
	return s.ttl > 0 && now.After(entry.expiresAt)
}
