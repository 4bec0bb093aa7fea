package repository

import (
	"context"
	"errors"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"
)

// ErrSummaryNotFound session 没有任何分析记录
var ErrSummaryNotFound = errors.New("summary not found")

// SummariesRepository care summary 历史
type SummariesRepository interface {
	// CreateSummary 保存一条记录，返回 record_id（rec.RecordID 为空时生成）
	CreateSummary(ctx context.Context, rec *models.SummaryRecord) (string, error)

	// GetLatestSummary session 最近一条记录；没有时返回 ErrSummaryNotFound
	GetLatestSummary(ctx context.Context, sessionID string) (*models.SummaryRecord, error)

	// ListSummaries 按 created_at 倒序分页
	ListSummaries(ctx context.Context, sessionID string, page, size int) ([]*models.SummaryRecord, int, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
