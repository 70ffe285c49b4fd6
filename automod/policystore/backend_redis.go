package policystore

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

var redisPolicyKey = "sieve/policies"

// Persists the policy map as one JSON value under a single redis key.
type RedisBackend struct {
	Client *redis.Client
	Key    string
}

var _ Backend = (*RedisBackend)(nil)

func NewRedisBackend(redisURL string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return NewRedisBackendClient(rdb), nil
}

func NewRedisBackendClient(rdb *redis.Client) *RedisBackend {
	return &RedisBackend{
		Client: rdb,
		Key:    redisPolicyKey,
	}
}

func (b *RedisBackend) Load(ctx context.Context) (map[string]CommunityPolicy, error) {
	raw, err := b.Client.Get(ctx, b.Key).Bytes()
	if err == redis.Nil {
		return map[string]CommunityPolicy{}, nil
	} else if err != nil {
		return nil, err
	}
	var policies map[string]CommunityPolicy
	if err := json.Unmarshal(raw, &policies); err != nil {
		return nil, err
	}
	return policies, nil
}

// No expiration: policies live for the lifetime of the deployment.
func (b *RedisBackend) Save(ctx context.Context, policies map[string]CommunityPolicy) error {
	raw, err := json.Marshal(policies)
	if err != nil {
		return err
	}
	return b.Client.Set(ctx, b.Key, raw, 0).Err()
}
