package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const analyzeCheckInPath = "/analyze_checkin"

// maxErrorBodyLen 错误信息中保留的响应体长度
const maxErrorBodyLen = 512

// RemoteAnalyzer 远端分析服务
type RemoteAnalyzer interface {
	// AnalyzeCheckIn 返回远端原始 JSON；非 2xx 或网络错误返回 error
	AnalyzeCheckIn(ctx context.Context, payload models.CheckInPayload) ([]byte, error)
}

// RemoteStatusError 远端返回非 2xx
type RemoteStatusError struct {
	StatusCode int
	Body       string
}

func (e *RemoteStatusError) Error() string {
	return fmt.Sprintf("medgemma returned status %d: %s", e.StatusCode, e.Body)
}

// MedGemmaClient MedGemma 云端服务客户端
// 单次请求、不重试；超时由调用方 ctx 控制
type MedGemmaClient struct {
	httpClient *resty.Client
	endpoint   string
	logger     *zap.Logger
}

// NewMedGemmaClient endpoint 为服务根地址，请求发送到 <endpoint>/analyze_checkin
func NewMedGemmaClient(endpoint string, logger *zap.Logger) *MedGemmaClient {
	client := resty.New().
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &MedGemmaClient{
		httpClient: client,
		endpoint:   strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		logger:     logger,
	}
}

// URL 完整请求地址
func (c *MedGemmaClient) URL() string {
	return c.endpoint + analyzeCheckInPath
}

// AnalyzeCheckIn POST payload 到远端
func (c *MedGemmaClient) AnalyzeCheckIn(ctx context.Context, payload models.CheckInPayload) ([]byte, error) {
	c.logger.Debug("Calling MedGemma analyze_checkin",
		zap.String("url", c.URL()),
		zap.String("checkin_id", payload.ID),
	)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to call medgemma: %w", err)
	}

	if !resp.IsSuccess() {
		body := resp.String()
		if len(body) > maxErrorBodyLen {
			body = body[:maxErrorBodyLen]
		}
		return nil, &RemoteStatusError{StatusCode: resp.StatusCode(), Body: body}
	}

	return resp.Body(), nil
}
