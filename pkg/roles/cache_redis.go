package roles

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
)

const redisKeyPrefix = "bibliotech:role:"

const (
	redisDialTimeout = 3 * time.Second
	redisIOTimeout   = 2 * time.Second
)

// RedisCache shares resolved roles between API processes so that an
// invalidation on one process is seen by all of them.
type RedisCache struct {
	client *redis.Client
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = redisDialTimeout
	opts.ReadTimeout = redisIOTimeout
	opts.WriteTimeout = redisIOTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisIOTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "redis ping failed")
	}
	return client, nil
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func redisKey(userID int) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, userID)
}

func (rc *RedisCache) Get(ctx context.Context, userID int) (*Access, bool, error) {
	data, err := rc.client.Get(ctx, redisKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, errors.WithStack(err)
	}
	access := &Access{}
	if err := json.Unmarshal(data, access); err != nil {
		return nil, false, errors.WithStack(err)
	}
	return access, true, nil
}

func (rc *RedisCache) Set(ctx context.Context, userID int, access *Access, ttl time.Duration) error {
	data, err := json.Marshal(access)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(rc.client.Set(ctx, redisKey(userID), data, ttl).Err())
}

func (rc *RedisCache) Delete(ctx context.Context, userID int) error {
	return errors.WithStack(rc.client.Del(ctx, redisKey(userID)).Err())
}
