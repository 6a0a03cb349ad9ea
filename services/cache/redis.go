package cachesvc

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
)

const (
	keyPrefix = "mahudhurio:attendance:"
	allTag    = "_all" // entries spanning all classrooms
)

type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ attendance.Cache = (*RedisCache)(nil)

// NewRedisCache returns an attendance.Cache backed by Redis. Entries expire after ttl (0 means never).
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient connects to the configured Redis server.
func NewRedisClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func entryKey(key string) string {
	sum := sha1.Sum([]byte(key))
	return keyPrefix + "entry:" + hex.EncodeToString(sum[:])
}

func tagKey(classroomID string) string {
	if classroomID == "" {
		classroomID = allTag
	}
	return keyPrefix + "tag:" + classroomID
}

func genKey(classroomID string) string {
	if classroomID == "" {
		classroomID = allTag
	}
	return keyPrefix + "gen:" + classroomID
}

// Generation returns the number of invalidations of the classroom tag. Generations never expire.
func (c *RedisCache) Generation(ctx context.Context, classroomID string) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(classroomID)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, errors.Wrap(err, "getting cache generation")
	}
	return gen, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]attendance.Summary, bool, error) {
	data, err := c.client.Get(ctx, entryKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "getting cache entry")
	}

	var sums []attendance.Summary
	if err = json.Unmarshal(data, &sums); err != nil {
		return nil, false, errors.Wrap(err, "decoding cache entry")
	}
	return sums, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, classroomID string, summaries []attendance.Summary) error {
	if summaries == nil {
		summaries = []attendance.Summary{}
	}
	data, err := json.Marshal(summaries)
	if err != nil {
		return errors.Wrap(err, "encoding cache entry")
	}

	ek, tk := entryKey(key), tagKey(classroomID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, ek, data, c.ttl)
		pipe.SAdd(ctx, tk, ek)
		if c.ttl > 0 {
			pipe.Expire(ctx, tk, c.ttl)
		}
		return nil
	})
	return errors.Wrap(err, "setting cache entry")
}

// Invalidate bumps the generations of the classrooms and of the entries spanning all classrooms,
// then drops their entries.
func (c *RedisCache) Invalidate(ctx context.Context, classroomIDs ...string) error {
	ids := []string{""}
	for _, id := range classroomIDs {
		if id != "" {
			ids = append(ids, id)
		}
	}

	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, genKey(id))
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "bumping cache generations")
	}

	keys := make([]string, 0)
	for _, id := range ids {
		tk := tagKey(id)
		members, err := c.client.SMembers(ctx, tk).Result()
		if err != nil {
			return errors.Wrapf(err, "reading cache tag %s", tk)
		}
		keys = append(keys, members...)
		keys = append(keys, tk)
	}
	return errors.Wrap(c.client.Del(ctx, keys...).Err(), "deleting cache entries")
}
