package memoryxinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/realtor/pkg/ai/llm/memoryx"
	"github.com/Abraxas-365/realtor/pkg/logx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL   = 2 * time.Minute
	DefaultLockRetry = 50 * time.Millisecond
)

// releaseLock deletes the lock only while it still holds our token, so an
// expired holder cannot release a lock taken over by another replica.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore keeps session logs in Redis so several server replicas can
// share them. A session expires after ttl without a save.
//
// It implements memoryx.Locker with SET NX PX. A request that outlives
// the lock TTL loses exclusivity, so the TTL must exceed the slowest agent run.
type RedisStore struct {
	client    *redis.Client
	ttl       time.Duration
	prefix    string
	lockTTL   time.Duration
	lockRetry time.Duration
}

var _ memoryx.Locker = (*RedisStore)(nil)

type RedisStoreOption func(*RedisStore)

// WithLockTTL bounds how long a crashed replica can block a session
func WithLockTTL(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.lockTTL = d
		}
	}
}

// WithLockRetry sets the polling interval while waiting for a held lock
func WithLockRetry(d time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.lockRetry = d
		}
	}
}

type storedTurn struct {
	Role memoryx.Role `json:"role"`
	Text string       `json:"text"`
}

type storedLog struct {
	MaxLength int          `json:"max_length"`
	Turns     []storedTurn `json:"turns"`
}

// NewRedisStore creates a Redis backed session store
func NewRedisStore(client *redis.Client, ttl time.Duration, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		ttl:       ttl,
		prefix:    "conversation:",
		lockTTL:   DefaultLockTTL,
		lockRetry: DefaultLockRetry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(session string) string {
	return s.prefix + session
}

func (s *RedisStore) lockKey(session string) string {
	return "conversation-lock:" + session
}

// Lock waits until this process owns the session lock or ctx is done
func (s *RedisStore) Lock(ctx context.Context, session string) (func(), error) {
	key := s.lockKey(session)
	token := uuid.NewString()

	ticker := time.NewTicker(s.lockRetry)
	defer ticker.Stop()

	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to lock session: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := releaseLock.Run(rctx, s.client, []string{key}, token).Err(); err != nil {
			logx.WithFields(logx.Fields{
				"session": session,
				"error":   err.Error(),
			}).Warn("failed to release session lock")
		}
	}, nil
}

func (s *RedisStore) Load(ctx context.Context, session string) (*memoryx.Log, bool, error) {
	data, err := s.client.Get(ctx, s.key(session)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get session from Redis: %w", err)
	}

	var stored storedLog
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	turns := make([]memoryx.Turn, 0, len(stored.Turns))
	for _, t := range stored.Turns {
		turns = append(turns, memoryx.NewTurn(t.Role, t.Text))
	}

	return memoryx.RestoreLog(stored.MaxLength, turns), true, nil
}

func (s *RedisStore) Save(ctx context.Context, session string, log *memoryx.Log) error {
	stored := storedLog{MaxLength: log.MaxLength()}
	for _, t := range log.Turns() {
		stored.Turns = append(stored.Turns, storedTurn{Role: t.Role(), Text: t.Text()})
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, session string) error {
	if err := s.client.Del(ctx, s.key(session)).Err(); err != nil {
		return fmt.Errorf("failed to delete session from Redis: %w", err)
	}
	return nil
}
