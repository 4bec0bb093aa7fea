package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	commonredis "github.com/nikhilnt1234/Digital-Twin-sub001/common/redis"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/metrics"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 通知渠道（指标标签）
const (
	ChannelStream = "redis_stream"
	ChannelMQTT   = "mqtt"
)

// Publisher MQTT 发布（common/mqtt.Client 实现）
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// Notifier 分析完成后的 caregiver 通知
type Notifier interface {
	Notify(ctx context.Context, event TriageEvent) error
}

// TriageEvent 写入 Redis Stream / MQTT 的通知内容
type TriageEvent struct {
	EventID        string                `json:"event_id"`
	SessionID      string                `json:"session_id"`
	CheckInID      string                `json:"checkin_id"`
	RiskLevel      models.RiskLevel      `json:"risk_level"`
	RedFlags       []string              `json:"red_flags"`
	SMSText        string                `json:"sms_text"`
	ProviderSource models.ProviderSource `json:"provider_source"`
	CreatedAt      time.Time             `json:"created_at"`
}

// NewTriageEvent 从 summary 构造通知
func NewTriageEvent(sessionID, checkInID string, summary models.CareSummaryOutput) TriageEvent {
	return TriageEvent{
		EventID:        uuid.NewString(),
		SessionID:      sessionID,
		CheckInID:      checkInID,
		RiskLevel:      summary.Triage.RiskLevel,
		RedFlags:       append([]string{}, summary.Triage.RedFlags...),
		SMSText:        summary.CaregiverMessage.SMSText,
		ProviderSource: summary.ProviderSource,
		CreatedAt:      time.Now().UTC(),
	}
}

// ShouldNotify green 不通知
func ShouldNotify(level models.RiskLevel) bool {
	return level == models.RiskYellow || level == models.RiskRed
}

// TriageNotifier yellow/red 分析结果推送到 Redis Stream（下游消费）和 MQTT 短信网关
// 两个渠道都是可选的；任一渠道失败不影响另一个
type TriageNotifier struct {
	redisClient *redis.Client
	stream      string

	publisher Publisher
	topic     string
	qos       byte

	metrics *metrics.Collector
	logger  *zap.Logger
}

func NewTriageNotifier(logger *zap.Logger, collector *metrics.Collector) *TriageNotifier {
	return &TriageNotifier{logger: logger, metrics: collector}
}

// WithStream 启用 Redis Stream 渠道
func (n *TriageNotifier) WithStream(client *redis.Client, stream string) *TriageNotifier {
	n.redisClient = client
	n.stream = stream
	return n
}

// WithMQTT 启用 MQTT 渠道
func (n *TriageNotifier) WithMQTT(p Publisher, topic string, qos byte) *TriageNotifier {
	n.publisher = p
	n.topic = topic
	n.qos = qos
	return n
}

// Enabled 至少配置了一个渠道
func (n *TriageNotifier) Enabled() bool {
	return n.redisClient != nil || n.publisher != nil
}

// Notify green 直接跳过；返回所有渠道的错误（errors.Join）
func (n *TriageNotifier) Notify(ctx context.Context, event TriageEvent) error {
	if !ShouldNotify(event.RiskLevel) {
		return nil
	}

	var errs []error

	if n.redisClient != nil {
		_, err := commonredis.PublishJSONToStream(ctx, n.redisClient, n.stream, event)
		n.metrics.RecordNotification(ChannelStream, err == nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("stream %s: %w", n.stream, err))
		}
	}

	if n.publisher != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			err = n.publisher.Publish(n.topic, n.qos, false, payload)
		}
		n.metrics.RecordNotification(ChannelMQTT, err == nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("mqtt %s: %w", n.topic, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	n.logger.Info("Triage notification sent",
		zap.String("event_id", event.EventID),
		zap.String("session_id", event.SessionID),
		zap.String("risk_level", string(event.RiskLevel)),
	)
	return nil
}
