package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/metrics"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/repository"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sideEffectTimeout 持久化 / 缓存 / 通知的超时，独立于请求 ctx
const sideEffectTimeout = 3 * time.Second

// Router 远端/本地路由（ProviderRouter）
type Router interface {
	Route(ctx context.Context, payload models.CheckInPayload) models.CareSummaryOutput
}

// CheckInService /api/clinical/analyze 背后的服务
// 历史、缓存、通知均为可选，未设置时跳过
type CheckInService struct {
	analyzer Analyzer
	router   Router
	demoMode bool

	summariesRepo repository.SummariesRepository
	cache         *store.SummaryCache
	notifier      Notifier

	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewCheckInService demoMode 为 true 时不经过 router
func NewCheckInService(analyzer Analyzer, router Router, demoMode bool, logger *zap.Logger) *CheckInService {
	return &CheckInService{
		analyzer: analyzer,
		router:   router,
		demoMode: demoMode,
		logger:   logger,
	}
}

func (s *CheckInService) SetSummariesRepository(repo repository.SummariesRepository) {
	s.summariesRepo = repo
}

func (s *CheckInService) SetCache(cache *store.SummaryCache) {
	s.cache = cache
}

func (s *CheckInService) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *CheckInService) SetMetrics(c *metrics.Collector) {
	s.metrics = c
}

// DemoMode 当前是否为 demo 模式
func (s *CheckInService) DemoMode() bool {
	return s.demoMode
}

// Analyze 生成 care summary；分析本身不会失败，只有 ctx 已取消时返回错误
func (s *CheckInService) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.CareSummaryOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payload := req.Payload
	payload.Transcript = AppendFollowUps(payload.Transcript, req.FollowUpAnswers)
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	if strings.TrimSpace(payload.PriorDaySummary) == "" && req.SessionID != "" {
		payload.PriorDaySummary = s.priorSummary(ctx, req.SessionID)
	}

	var out models.CareSummaryOutput
	if s.demoMode {
		out = s.analyzer.Analyze(payload).WithSource(models.SourceDemo)
	} else {
		out = s.router.Route(ctx, payload)
	}
	out.Normalize()

	s.metrics.RecordAnalysis(string(out.ProviderSource), string(out.Triage.RiskLevel))
	s.logger.Info("Check-in analyzed",
		zap.String("session_id", req.SessionID),
		zap.String("checkin_id", payload.ID),
		zap.String("provider_source", string(out.ProviderSource)),
		zap.String("risk_level", string(out.Triage.RiskLevel)),
	)

	s.afterAnalyze(ctx, req.SessionID, payload.ID, out)
	return &out, nil
}

// afterAnalyze 失败只记录日志
func (s *CheckInService) afterAnalyze(ctx context.Context, sessionID, checkInID string, out models.CareSummaryOutput) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if sessionID != "" {
		rec := &models.SummaryRecord{
			SessionID:      sessionID,
			CheckInID:      checkInID,
			RiskLevel:      out.Triage.RiskLevel,
			ProviderSource: out.ProviderSource,
			Summary:        out,
			CreatedAt:      time.Now().UTC(),
		}
		if s.summariesRepo != nil {
			if _, err := s.summariesRepo.CreateSummary(bg, rec); err != nil {
				s.logger.Warn("Failed to persist clinical summary",
					zap.String("session_id", sessionID), zap.Error(err))
			}
		}
		if s.cache != nil {
			if err := s.cache.PutLatest(bg, rec); err != nil {
				s.logger.Warn("Failed to cache latest clinical summary",
					zap.String("session_id", sessionID), zap.Error(err))
			}
		}
	}

	if s.notifier != nil && ShouldNotify(out.Triage.RiskLevel) {
		if err := s.notifier.Notify(bg, NewTriageEvent(sessionID, checkInID, out)); err != nil {
			s.logger.Warn("Failed to notify caregiver",
				zap.String("session_id", sessionID),
				zap.String("risk_level", string(out.Triage.RiskLevel)),
				zap.Error(err))
		}
	}
}

// priorSummary session 最近一次分析的 one-liner，没有时为空
func (s *CheckInService) priorSummary(ctx context.Context, sessionID string) string {
	rec, err := s.GetLatest(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, repository.ErrSummaryNotFound) {
			s.logger.Debug("Prior summary lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return ""
	}
	return rec.Summary.PatientSummary.OneLiner
}

// GetLatest 先查缓存，再查历史；都没有时返回 repository.ErrSummaryNotFound
func (s *CheckInService) GetLatest(ctx context.Context, sessionID string) (*models.SummaryRecord, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}

	if s.cache != nil {
		rec, err := s.cache.GetLatest(ctx, sessionID)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Warn("Latest summary cache read failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	if s.summariesRepo == nil {
		return nil, repository.ErrSummaryNotFound
	}
	rec, err := s.summariesRepo.GetLatestSummary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.PutLatest(ctx, rec); err != nil {
			s.logger.Debug("Failed to backfill latest summary cache", zap.Error(err))
		}
	}
	return rec, nil
}

// ListHistory 分页历史，未配置历史存储时返回空列表
func (s *CheckInService) ListHistory(ctx context.Context, sessionID string, page, size int) ([]*models.SummaryRecord, int, error) {
	if sessionID == "" {
		return nil, 0, fmt.Errorf("session_id is required")
	}
	if s.summariesRepo == nil {
		return []*models.SummaryRecord{}, 0, nil
	}
	return s.summariesRepo.ListSummaries(ctx, sessionID, page, size)
}

// AppendFollowUps 把非空的追问回答追加到 transcript 末尾：
// "<transcript>\n\nFollow-up: k1: v1. k2: v2."（key 排序）
func AppendFollowUps(transcript string, answers map[string]string) string {
	keys := make([]string, 0, len(answers))
	for k, v := range answers {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return transcript
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s.", strings.TrimSpace(k), strings.TrimSpace(answers[k])))
	}
	block := "Follow-up: " + strings.Join(parts, " ")

	if strings.TrimSpace(transcript) == "" {
		return block
	}
	return transcript + "\n\n" + block
}
