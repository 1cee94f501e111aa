package cache

import (
	"context"
	"time"

	"video-service/pkg/logger"
	"video-service/pkg/redisclient"
)

const decisionPrefix = "video:authz:"

// RedisAuthCache caches authorization decisions in redis with a short TTL so
// a burst of segment requests for one playback session costs one database
// lookup. Cache errors degrade to a miss.
type RedisAuthCache struct {
	client *redisclient.Client
	ttl    time.Duration
}

func NewRedisAuthCache(client *redisclient.Client, ttl time.Duration) *RedisAuthCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisAuthCache{client: client, ttl: ttl}
}

func decisionKey(userID, courseID string) string {
	return decisionPrefix + userID + ":" + courseID
}

func (c *RedisAuthCache) GetDecision(ctx context.Context, userID, courseID string) (bool, bool) {
	val, err := c.client.Raw().Get(ctx, decisionKey(userID, courseID)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (c *RedisAuthCache) SetDecision(ctx context.Context, userID, courseID string, allowed bool) {
	val := "0"
	if allowed {
		val = "1"
	}
	if err := c.client.Raw().Set(ctx, decisionKey(userID, courseID), val, c.ttl).Err(); err != nil {
		logger.Warnf("authz cache set failed user_id=%s error=%v", userID, err)
	}
}

// Invalidate drops the cached decision; callers use it when an enrollment
// changes out of band.
func (c *RedisAuthCache) Invalidate(ctx context.Context, userID, courseID string) {
	if err := c.client.Raw().Del(ctx, decisionKey(userID, courseID)).Err(); err != nil {
		logger.Warnf("authz cache invalidate failed user_id=%s error=%v", userID, err)
	}
}
