package redis

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"offline-quiz-service/internal/app"
	"offline-quiz-service/internal/domain"
)

const versionKey = "questions:version"

// VersionCache caches the remote collection version in Redis so frequent sync
// checks do not each hit the question bank. Question reads pass straight through.
//
//	SET questions:version {version} EX {ttl+jitter}
type VersionCache struct {
	client *redis.Client
	source app.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewVersionCache(client *redis.Client, source app.QuestionSource, ttl time.Duration) *VersionCache {
	return &VersionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *VersionCache) FetchCollectionVersion(ctx context.Context) (int64, error) {
	if version, ok := c.cached(ctx); ok {
		return version, nil
	}

	result, err, _ := c.sf.Do(versionKey, func() (interface{}, error) {
		// Re-check in case another caller filled it.
		if version, ok := c.cached(ctx); ok {
			return version, nil
		}
		version, err := c.source.FetchCollectionVersion(ctx)
		if err != nil {
			return int64(0), err
		}
		// A zero ttl disables caching; a stale version must not live forever.
		if ttl := c.ttlWithJitter(); ttl > 0 {
			_ = c.client.Set(ctx, versionKey, version, ttl).Err()
		}
		return version, nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int64), nil
}

func (c *VersionCache) FetchAllQuestions(ctx context.Context) ([]domain.Question, error) {
	return c.source.FetchAllQuestions(ctx)
}

// Invalidate drops the cached version so the next version read hits the bank.
func (c *VersionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, versionKey).Err()
}

func (c *VersionCache) cached(ctx context.Context) (int64, bool) {
	raw, err := c.client.Get(ctx, versionKey).Result()
	if err != nil {
		return 0, false
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return version, true
}

func (c *VersionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// isMiss reports a plain cache miss as opposed to a connection failure.
func isMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}
