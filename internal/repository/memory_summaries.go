package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/google/uuid"
)

// MemorySummariesRepository DB 未启用时使用（进程内，重启丢失）
type MemorySummariesRepository struct {
	mu       sync.RWMutex
	sessions map[string][]*models.SummaryRecord // sessionID -> 按插入顺序
	now      func() time.Time
}

func NewMemorySummariesRepository() *MemorySummariesRepository {
	return &MemorySummariesRepository{
		sessions: map[string][]*models.SummaryRecord{},
		now:      time.Now,
	}
}

var _ SummariesRepository = (*MemorySummariesRepository)(nil)

func (r *MemorySummariesRepository) CreateSummary(_ context.Context, rec *models.SummaryRecord) (string, error) {
	if rec == nil || rec.SessionID == "" {
		return "", fmt.Errorf("session_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	cp := *rec
	r.sessions[rec.SessionID] = append(r.sessions[rec.SessionID], &cp)
	return rec.RecordID, nil
}

func (r *MemorySummariesRepository) GetLatestSummary(_ context.Context, sessionID string) (*models.SummaryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := r.sessions[sessionID]
	if len(recs) == 0 {
		return nil, ErrSummaryNotFound
	}
	cp := *recs[len(recs)-1]
	return &cp, nil
}

func (r *MemorySummariesRepository) ListSummaries(_ context.Context, sessionID string, page, size int) ([]*models.SummaryRecord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page, size = normalizePage(page, size)
	recs := r.sessions[sessionID]

	// 最新在前；CreatedAt 相同时保持后插入的在前
	all := make([]*models.SummaryRecord, len(recs))
	for i, rec := range recs {
		cp := *rec
		all[len(recs)-1-i] = &cp
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}
