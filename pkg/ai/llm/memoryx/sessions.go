package memoryx

import (
	"context"
	"sync"
)

// SessionStore keeps session logs between requests. Implementations hand
// out independent copies: mutating a loaded Log has no effect until Save.
type SessionStore interface {
	Load(ctx context.Context, key string) (*Log, bool, error)
	Save(ctx context.Context, key string, log *Log) error
	Delete(ctx context.Context, key string) error
}

// Locker is implemented by stores shared between processes. Sessions
// holds the store lock on top of its in-process one, so requests for the
// same key are serialised across replicas too.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Sessions gives each conversation exclusive ownership of its log for the
// duration of a request. Requests for the same key run one at a time;
// different keys run in parallel.
type Sessions struct {
	store     SessionStore
	maxLength int

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewSessions creates a session registry; new logs use maxLength
func NewSessions(store SessionStore, maxLength int) *Sessions {
	return &Sessions{
		store:     store,
		maxLength: maxLength,
		locks:     make(map[string]*keyLock),
	}
}

// With loads the session log, runs fn with exclusive access and saves the
// log if fn succeeds. A failed fn leaves the stored session untouched.
func (s *Sessions) With(ctx context.Context, key string, fn func(*Log) error) error {
	if key == "" {
		return ErrEmptySessionKey()
	}

	unlock, err := s.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	log, err := s.load(ctx, key)
	if err != nil {
		return err
	}

	if err := fn(log); err != nil {
		return err
	}

	if err := s.store.Save(ctx, key, log); err != nil {
		return ErrStoreFailed(err).WithDetail("session", key)
	}
	return nil
}

// Snapshot returns a copy of the session log, or an empty log if the
// session does not exist
func (s *Sessions) Snapshot(ctx context.Context, key string) (*Log, error) {
	if key == "" {
		return nil, ErrEmptySessionKey()
	}

	unlock, err := s.acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.load(ctx, key)
}

// End discards the session log
func (s *Sessions) End(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptySessionKey()
	}

	unlock, err := s.acquire(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.store.Delete(ctx, key); err != nil {
		return ErrStoreFailed(err).WithDetail("session", key)
	}
	return nil
}

func (s *Sessions) load(ctx context.Context, key string) (*Log, error) {
	log, ok, err := s.store.Load(ctx, key)
	if err != nil {
		return nil, ErrStoreFailed(err).WithDetail("session", key)
	}
	if !ok {
		return NewLog(s.maxLength), nil
	}
	return log, nil
}

// acquire takes the per-key lock, then the store lock when the store is
// shared, giving up when ctx is done
func (s *Sessions) acquire(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	kl, ok := s.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		s.locks[key] = kl
	}
	kl.refs++
	s.mu.Unlock()

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		s.release(key, kl)
		return nil, ctx.Err()
	}

	unlockLocal := func() {
		<-kl.ch
		s.release(key, kl)
	}

	locker, ok := s.store.(Locker)
	if !ok {
		return unlockLocal, nil
	}

	unlockStore, err := locker.Lock(ctx, key)
	if err != nil {
		unlockLocal()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, ErrStoreFailed(err).WithDetail("session", key)
	}

	return func() {
		unlockStore()
		unlockLocal()
	}, nil
}

func (s *Sessions) release(key string, kl *keyLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(s.locks, key)
	}
}
