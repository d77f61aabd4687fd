package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	summaryCachePrefix = "tldr:"
	summaryCacheTTL    = 5 * time.Minute
)

// SummaryCache caches conversation summaries keyed by session, format and
// message count, so an unchanged conversation never pays for a second
// generation.
type SummaryCache struct {
	client *Client
}

// NewSummaryCache creates a new summary cache
func NewSummaryCache(client *Client) *SummaryCache {
	return &SummaryCache{client: client}
}

func summaryKey(sessionID, format string, messageCount int) string {
	return fmt.Sprintf("%s%s:%s:%d", summaryCachePrefix, sessionID, format, messageCount)
}

// Get retrieves a cached summary. A miss returns ("", false, nil).
func (c *SummaryCache) Get(ctx context.Context, sessionID, format string, messageCount int) (string, bool, error) {
	data, err := c.client.rdb.Get(ctx, summaryKey(sessionID, format, messageCount)).Result()
	if err != nil {
		return "", false, nil // cache miss
	}
	return data, true, nil
}

// Set caches a summary
func (c *SummaryCache) Set(ctx context.Context, sessionID, format string, messageCount int, summary string) error {
	return c.client.rdb.Set(ctx, summaryKey(sessionID, format, messageCount), summary, summaryCacheTTL).Err()
}

// Invalidate removes all cached summaries for a session
func (c *SummaryCache) Invalidate(ctx context.Context, sessionID string) error {
	pattern := fmt.Sprintf("%s%s:*", summaryCachePrefix, sessionID)
	var cursor uint64

	for {
		keys, nextCursor, err := c.client.rdb.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}
