package security

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayStore tracks consumed single-use token ids (jti claims).
type ReplayStore interface {
	// MarkIfUsed reports whether jti was already consumed; when it was not,
	// it is recorded atomically. ttl bounds how long the id must stay
	// recorded; replaying a token after its own exp is harmless.
	MarkIfUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error)
}

// DefaultReplayCap bounds the in-memory store. Exceeding it clears the
// whole set, which re-opens a replay window for old entries; multi-process
// deployments should run the redis store instead.
const DefaultReplayCap = 10000

type MemoryReplayStore struct {
	mu   sync.Mutex
	used map[string]struct{}
	cap  int
}

func NewMemoryReplayStore() *MemoryReplayStore {
	return &MemoryReplayStore{used: map[string]struct{}{}, cap: DefaultReplayCap}
}

func (s *MemoryReplayStore) MarkIfUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.used[jti]; ok {
		return true, nil
	}
	s.used[jti] = struct{}{}
	if len(s.used) > s.cap {
		s.used = map[string]struct{}{}
	}
	return false, nil
}

// RedisReplayStore shares replay state across processes. Each jti lives
// exactly as long as the token it came from could still validate.
type RedisReplayStore struct {
	cli    *redis.Client
	prefix string
}

func NewRedisReplayStore(cli *redis.Client) *RedisReplayStore {
	return &RedisReplayStore{cli: cli, prefix: "chatguard:jti:"}
}

func (s *RedisReplayStore) MarkIfUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	fresh, err := s.cli.SetNX(ctx, s.prefix+jti, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return !fresh, nil
}
