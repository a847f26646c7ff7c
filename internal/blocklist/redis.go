package blocklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps entries in two Redis sets, "<key>:uploader" and "<key>:title",
// so they can be edited while the bot is running.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) setKey(kind Kind) string {
	return s.key + ":" + string(kind)
}

func (s *RedisStore) Entries(ctx context.Context) (Entries, error) {
	uploaders, err := s.client.SMembers(ctx, s.setKey(KindUploader)).Result()
	if err != nil {
		return Entries{}, fmt.Errorf("failed to read blocked uploaders: %w", err)
	}
	titles, err := s.client.SMembers(ctx, s.setKey(KindTitle)).Result()
	if err != nil {
		return Entries{}, fmt.Errorf("failed to read blocked titles: %w", err)
	}
	return Entries{Uploaders: normalize(uploaders), Titles: normalize(titles)}, nil
}

func (s *RedisStore) Add(ctx context.Context, kind Kind, value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fmt.Errorf("blocklist value must not be empty")
	}
	if _, err := s.client.SAdd(ctx, s.setKey(kind), value).Result(); err != nil {
		return fmt.Errorf("failed to add %s %q to blocklist: %w", kind, value, err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, kind Kind, value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, err := s.client.SRem(ctx, s.setKey(kind), value).Result(); err != nil {
		return fmt.Errorf("failed to remove %s %q from blocklist: %w", kind, value, err)
	}
	return nil
}

var _ Editor = (*RedisStore)(nil)
