package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/config"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/metrics"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"go.uber.org/zap"
)

// fallback 原因（日志 + 指标标签）
const (
	ReasonNoEndpoint      = "no_endpoint"
	ReasonTimeout         = "timeout"
	ReasonHTTPStatus      = "http_status"
	ReasonNetwork         = "network"
	ReasonInvalidResponse = "invalid_response"
)

// Analyzer 本地规则分析器（evaluator.RiskAnalyzer）
type Analyzer interface {
	Analyze(payload models.CheckInPayload) models.CareSummaryOutput
}

// ProviderConfig 路由配置，构造时传入
type ProviderConfig struct {
	// DemoMode 只由 CheckInService 读取（demo 模式下不调用 Route）；
	// Route 本身不看这个开关，是否请求远端只取决于 Endpoint
	DemoMode bool
	Endpoint string
	Timeout  time.Duration
}

// DefaultProviderConfig {DemoMode: true, Endpoint: "", Timeout: 20s}
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		DemoMode: true,
		Endpoint: "",
		Timeout:  config.DefaultMedGemmaTimeoutMS * time.Millisecond,
	}
}

// ProviderConfigFrom 从服务配置转换
func ProviderConfigFrom(c config.ClinicalConfig) ProviderConfig {
	return ProviderConfig{
		DemoMode: c.DemoMode,
		Endpoint: strings.TrimSpace(c.Endpoint),
		Timeout:  c.Timeout(),
	}
}

// ProviderRouter 在远端 MedGemma 与本地规则分析器之间选择
// 无状态，可并发调用；任何远端失败都回落到本地分析（demo-fallback），不向调用方返回错误。
// 没有重试、熔断和结果缓存。
type ProviderRouter struct {
	cfg      ProviderConfig
	analyzer Analyzer
	remote   RemoteAnalyzer
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewProviderRouter remote 为 nil 且配置了 endpoint 时使用 MedGemmaClient
func NewProviderRouter(cfg ProviderConfig, analyzer Analyzer, remote RemoteAnalyzer, collector *metrics.Collector, logger *zap.Logger) *ProviderRouter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultProviderConfig().Timeout
	}
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if remote == nil && cfg.Endpoint != "" {
		remote = NewMedGemmaClient(cfg.Endpoint, logger)
	}
	return &ProviderRouter{
		cfg:      cfg,
		analyzer: analyzer,
		remote:   remote,
		metrics:  collector,
		logger:   logger,
	}
}

// Config 当前路由配置
func (r *ProviderRouter) Config() ProviderConfig {
	return r.cfg
}

// Route 返回 medgemma-cloud 或 demo-fallback 结果
func (r *ProviderRouter) Route(ctx context.Context, payload models.CheckInPayload) models.CareSummaryOutput {
	// 未配置远端：不发请求，直接 fallback
	if r.cfg.Endpoint == "" || r.remote == nil {
		return r.fallback(payload, ReasonNoEndpoint, nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := r.callRemote(callCtx, payload)
	r.metrics.ObserveRemote(time.Since(start))
	if err != nil {
		return r.fallback(payload, classifyRemoteError(callCtx, err), err)
	}

	summary, err := decodeRemoteSummary(raw)
	if err != nil {
		return r.fallback(payload, ReasonInvalidResponse, err)
	}

	r.logger.Info("MedGemma analysis succeeded",
		zap.String("checkin_id", payload.ID),
		zap.String("risk_level", string(summary.Triage.RiskLevel)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return summary
}

// callRemote remote 实现中的 panic 同样按失败处理
func (r *ProviderRouter) callRemote(ctx context.Context, payload models.CheckInPayload) (raw []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			raw, err = nil, fmt.Errorf("remote analyzer panic: %v", p)
		}
	}()
	return r.remote.AnalyzeCheckIn(ctx, payload)
}

func (r *ProviderRouter) fallback(payload models.CheckInPayload, reason string, cause error) models.CareSummaryOutput {
	fields := []zap.Field{
		zap.String("checkin_id", payload.ID),
		zap.String("reason", reason),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
		r.logger.Warn("MedGemma unavailable, falling back to demo analyzer", fields...)
	} else {
		r.logger.Debug("No MedGemma endpoint configured, using demo analyzer", fields...)
	}
	r.metrics.RecordFallback(reason)

	return r.analyzer.Analyze(payload).WithSource(models.SourceDemoFallback)
}

func classifyRemoteError(ctx context.Context, err error) string {
	var statusErr *RemoteStatusError
	switch {
	case errors.As(err, &statusErr):
		return ReasonHTTPStatus
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonNetwork
	}
}

// decodeRemoteSummary 只做结构校验（五个 section + risk_level），返回值保留远端原文；
// 其它字段类型不符时只是本地读不到，不触发 fallback。来源标记由本地覆盖，不信任远端
func decodeRemoteSummary(raw []byte) (models.CareSummaryOutput, error) {
	var out models.CareSummaryOutput
	if err := models.ValidateSections(raw); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode remote summary: %w", err)
	}
	if !out.Triage.RiskLevel.Valid() {
		return out, fmt.Errorf("invalid risk_level %q", out.Triage.RiskLevel)
	}
	out.Normalize()
	return out.WithSource(models.SourceMedGemmaCloud), nil
}
