package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"
)

// SummaryCache 每个 session 最新一条 summary
// key: <prefix><session_id>:latest
type SummaryCache struct {
	kv     KV
	prefix string
	ttl    time.Duration
}

func NewSummaryCache(kv KV, prefix string, ttl time.Duration) *SummaryCache {
	return &SummaryCache{kv: kv, prefix: prefix, ttl: ttl}
}

func (c *SummaryCache) key(sessionID string) string {
	return c.prefix + sessionID + ":latest"
}

// PutLatest 覆盖写入
func (c *SummaryCache) PutLatest(ctx context.Context, rec *models.SummaryRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal summary record: %w", err)
	}
	return c.kv.Set(ctx, c.key(rec.SessionID), string(b), c.ttl)
}

// GetLatest 未命中返回 ErrMiss
func (c *SummaryCache) GetLatest(ctx context.Context, sessionID string) (*models.SummaryRecord, error) {
	val, err := c.kv.Get(ctx, c.key(sessionID))
	if err != nil {
		return nil, err
	}
	var rec models.SummaryRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		// 脏数据按未命中处理
		_ = c.kv.Delete(ctx, c.key(sessionID))
		return nil, ErrMiss
	}
	rec.Summary.Normalize()
	return &rec, nil
}
