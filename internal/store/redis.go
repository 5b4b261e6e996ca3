package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/kenobeee/mettta-space/internal/account"
	"github.com/kenobeee/mettta-space/internal/meeting"
)

// RedisStore keeps each collection as a JSON string under <prefix><name>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore parses url and verifies the server answers a ping.
func NewRedisStore(ctx context.Context, url, prefix string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis: url is not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisStore{client: c, prefix: prefix}, nil
}

var _ Store = (*RedisStore)(nil)
var _ Store = (*FileStore)(nil)

func (s *RedisStore) LoadMeetings(ctx context.Context) ([]meeting.Meeting, error) {
	var out []meeting.Meeting
	if err := s.get(ctx, "meetings", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) SaveMeetings(ctx context.Context, meetings []meeting.Meeting) error {
	return s.set(ctx, "meetings", nonNil(meetings))
}

func (s *RedisStore) LoadUsers(ctx context.Context) ([]account.User, error) {
	var out []account.User
	if err := s.get(ctx, "users", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) SaveUsers(ctx context.Context, users []account.User) error {
	return s.set(ctx, "users", nonNil(users))
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) get(ctx context.Context, name string, v any) error {
	res, err := s.client.Get(ctx, s.prefix+name).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis: get %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(res), v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	return nil
}

func (s *RedisStore) set(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	if err := s.client.Set(ctx, s.prefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", name, err)
	}
	return nil
}
