package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/puertonuevo/portal-api/internal/dto"
)

const feedGenerationKey = "activities:feed:generation"

// activityFeedCache keeps recent feed pages in redis. Writes bump a
// generation counter that is part of every key, so stale pages are never
// read again and simply expire.
type activityFeedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func newActivityFeedCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *activityFeedCache {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &activityFeedCache{client: client, ttl: ttl, logger: logger}
}

func (c *activityFeedCache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *activityFeedCache) key(ctx context.Context, sinceDays, limit int, ambientes []string) (string, error) {
	generation, err := c.client.Get(ctx, feedGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	sorted := append([]string(nil), ambientes...)
	sort.Strings(sorted)
	return fmt.Sprintf("activities:feed:v1:%d:%d:%d:%s", generation, sinceDays, limit, strings.Join(sorted, ",")), nil
}

func (c *activityFeedCache) get(ctx context.Context, key string) (dto.ActivityListResponse, bool) {
	if !c.enabled() || key == "" {
		return dto.ActivityListResponse{}, false
	}
	cached, err := c.client.Get(ctx, key).Result()
	if err != nil || cached == "" {
		return dto.ActivityListResponse{}, false
	}
	var response dto.ActivityListResponse
	if err := json.Unmarshal([]byte(cached), &response); err != nil {
		return dto.ActivityListResponse{}, false
	}
	return response, true
}

func (c *activityFeedCache) set(ctx context.Context, key string, response dto.ActivityListResponse) {
	if !c.enabled() || key == "" {
		return
	}
	payload, err := json.Marshal(response)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to write activity feed cache")
	}
}

func (c *activityFeedCache) invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, feedGenerationKey).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate activity feed cache")
	}
}
