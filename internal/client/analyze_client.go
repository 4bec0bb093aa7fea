package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const analyzePath = "/api/clinical/analyze"

// ErrInvalidResponse 2xx 但响应缺少必需 section
var ErrInvalidResponse = errors.New("invalid analysis response")

// StatusError /api/clinical/analyze 返回非 2xx
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analyze request failed: status %d: %s", e.StatusCode, e.Body)
}

// AnalyzeClient digital-twin-api 调用方封装，不做 fallback
type AnalyzeClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewAnalyzeClient baseURL 如 http://localhost:8080
func NewAnalyzeClient(baseURL string, timeout time.Duration, logger *zap.Logger) *AnalyzeClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &AnalyzeClient{httpClient: client, logger: logger}
}

// Analyze 非 2xx 返回 *StatusError；缺少 section 返回包装了 ErrInvalidResponse 的错误
func (c *AnalyzeClient) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.CareSummaryOutput, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		Post(analyzePath)
	if err != nil {
		return nil, fmt.Errorf("analyze request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	raw := resp.Body()
	if err := models.ValidateCoreSections(raw); err != nil {
		return nil, fmt.Errorf("%w (status %d): %v: %s", ErrInvalidResponse, resp.StatusCode(), err, resp.String())
	}

	// 解码保留服务端原文，再次序列化时不丢字段
	var out models.CareSummaryOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w (status %d): %v", ErrInvalidResponse, resp.StatusCode(), err)
	}
	out.Normalize()

	c.logger.Debug("Analysis received",
		zap.String("session_id", req.SessionID),
		zap.String("provider_source", string(out.ProviderSource)),
		zap.String("risk_level", string(out.Triage.RiskLevel)),
	)
	return &out, nil
}
