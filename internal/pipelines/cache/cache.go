// Package cache provides a Redis-backed cache for derived pipeline aggregates.
// A cache entry lives until the next board mutation invalidates it or its TTL
// expires, whichever comes first.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pipeline_board_backend/internal/pipelines/transport"
	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SummaryCache caches pipeline summaries in Redis.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New connects to Redis using the configured URL.
func New(cfg config.CacheConfig, log *logger.Logger) (*SummaryCache, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig.InsecureSkipVerify = true
	}

	return NewWithClient(redis.NewClient(opt), cfg.GetSummaryCacheTTL(), log), nil
}

// NewWithClient wraps an existing Redis client; used by tests with miniredis.
func NewWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *SummaryCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SummaryCache{client: client, ttl: ttl, log: log}
}

// Close releases the underlying Redis connection.
func (c *SummaryCache) Close() error {
	return c.client.Close()
}

func summaryKey(organizationID, pipelineID uuid.UUID) string {
	return fmt.Sprintf("pipelines:summary:%s:%s", organizationID, pipelineID)
}

// GetSummary returns the cached summary if present. Cache errors degrade to a
// miss; the caller recomputes from the database.
func (c *SummaryCache) GetSummary(ctx context.Context, organizationID, pipelineID uuid.UUID) (transport.PipelineSummaryResponse, bool) {
	raw, err := c.client.Get(ctx, summaryKey(organizationID, pipelineID)).Bytes()
	if err != nil {
		if err != redis.Nil && c.log != nil {
			c.log.Warn("summary cache read failed", "pipelineId", pipelineID, "error", err.Error())
		}
		return transport.PipelineSummaryResponse{}, false
	}

	var summary transport.PipelineSummaryResponse
	if err := json.Unmarshal(raw, &summary); err != nil {
		return transport.PipelineSummaryResponse{}, false
	}
	return summary, true
}

// SetSummary stores the summary with the configured TTL.
func (c *SummaryCache) SetSummary(ctx context.Context, organizationID, pipelineID uuid.UUID, summary transport.PipelineSummaryResponse) {
	raw, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, summaryKey(organizationID, pipelineID), raw, c.ttl).Err(); err != nil && c.log != nil {
		c.log.Warn("summary cache write failed", "pipelineId", pipelineID, "error", err.Error())
	}
}

// Invalidate drops the cached summary after a board mutation.
func (c *SummaryCache) Invalidate(ctx context.Context, organizationID, pipelineID uuid.UUID) {
	if err := c.client.Del(ctx, summaryKey(organizationID, pipelineID)).Err(); err != nil && c.log != nil {
		c.log.Warn("summary cache invalidation failed", "pipelineId", pipelineID, "error", err.Error())
	}
}
