package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLinkNotFound is returned when a login link token is unknown, used or expired.
var ErrLinkNotFound = errors.New("login link not found")

// LinkStore keeps one-time login tokens until they are taken or expire.
type LinkStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	// Take returns the user id for token and deletes it.
	Take(ctx context.Context, token string) (string, error)
}

const linkKeyPrefix = "campusrx:login_link:"

type cmdable interface {
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	GetDel(context.Context, string) *redis.StringCmd
}

// RedisLinkStore keeps login tokens in Redis with a TTL.
type RedisLinkStore struct {
	store cmdable
}

// NewRedisLinkStore connects to url and verifies it with PING.
func NewRedisLinkStore(ctx context.Context, url string) (*RedisLinkStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisLinkStore{store: client}, nil
}

func (s *RedisLinkStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := s.store.Set(ctx, linkKeyPrefix+token, userID, ttl).Err(); err != nil {
		return fmt.Errorf("storing login link: %w", err)
	}
	return nil
}

func (s *RedisLinkStore) Take(ctx context.Context, token string) (string, error) {
	userID, err := s.store.GetDel(ctx, linkKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrLinkNotFound
	}
	if err != nil {
		return "", fmt.Errorf("taking login link: %w", err)
	}
	return userID, nil
}

// MemoryLinkStore is the single-process fallback used when no Redis is configured.
type MemoryLinkStore struct {
	mu    sync.Mutex
	now   func() time.Time
	links map[string]memoryLink
}

type memoryLink struct {
	userID  string
	expires time.Time
}

func NewMemoryLinkStore() *MemoryLinkStore {
	return &MemoryLinkStore{now: time.Now, links: map[string]memoryLink{}}
}

func (s *MemoryLinkStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, l := range s.links {
		if !now.Before(l.expires) {
			delete(s.links, k)
		}
	}
	s.links[token] = memoryLink{userID: userID, expires: now.Add(ttl)}
	return nil
}

func (s *MemoryLinkStore) Take(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[token]
	if !ok {
		return "", ErrLinkNotFound
	}
	delete(s.links, token)
	if !s.now().Before(l.expires) {
		return "", ErrLinkNotFound
	}
	return l.userID, nil
}
