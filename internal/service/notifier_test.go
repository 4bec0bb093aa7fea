package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/metrics"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(topic string, qos byte, _ bool, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, payload: payload})
	return nil
}

func setupNotifier(t *testing.T) (*TriageNotifier, *redis.Client, *fakePublisher) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	pub := &fakePublisher{}
	n := NewTriageNotifier(zap.NewNop(), nil).
		WithStream(client, "clinical:triage:events").
		WithMQTT(pub, "digital-twin/caregiver/sms", 1)
	return n, client, pub
}

func summaryWithRisk(level models.RiskLevel) models.CareSummaryOutput {
	out := remoteSummary()
	out.Triage.RiskLevel = level
	return out.WithSource(models.SourceDemo)
}

func TestTriageNotifier_RedGoesToBothChannels(t *testing.T) {
	n, client, pub := setupNotifier(t)
	ctx := context.Background()

	event := NewTriageEvent("s1", "c1", summaryWithRisk(models.RiskRed))
	require.NoError(t, n.Notify(ctx, event))

	msgs, err := client.XRange(ctx, "clinical:triage:events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	var streamed TriageEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &streamed))
	assert.Equal(t, event.EventID, streamed.EventID)
	assert.Equal(t, models.RiskRed, streamed.RiskLevel)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "digital-twin/caregiver/sms", pub.msgs[0].topic)
	assert.Equal(t, byte(1), pub.msgs[0].qos)
	assert.Contains(t, string(pub.msgs[0].payload), `"sms_text"`)
}

func TestTriageNotifier_GreenIsSkipped(t *testing.T) {
	n, client, pub := setupNotifier(t)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, NewTriageEvent("s1", "c1", summaryWithRisk(models.RiskGreen))))

	n2, err := client.Exists(ctx, "clinical:triage:events").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), n2)
	assert.Empty(t, pub.msgs)
}

func TestTriageNotifier_ChannelFailureIsReported(t *testing.T) {
	collector := metrics.NewCollector("test")
	n, client, _ := setupNotifier(t)
	n.metrics = collector
	n.WithMQTT(&fakePublisher{err: errors.New("broker down")}, "t", 0)

	err := n.Notify(context.Background(), NewTriageEvent("s1", "c1", summaryWithRisk(models.RiskYellow)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	// stream 渠道仍然写入
	msgs, xerr := client.XRange(context.Background(), "clinical:triage:events", "-", "+").Result()
	require.NoError(t, xerr)
	assert.Len(t, msgs, 1)

	assert.Equal(t, 1.0, counterValue(t, collector, "triage_notifications_total", map[string]string{"channel": ChannelStream, "status": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, collector, "triage_notifications_total", map[string]string{"channel": ChannelMQTT, "status": "error"}))
}

func TestTriageNotifier_NoChannels(t *testing.T) {
	n := NewTriageNotifier(zap.NewNop(), nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), NewTriageEvent("", "", summaryWithRisk(models.RiskRed))))
}

// counterValue 从 Registry 读取带指定标签的 counter 值，不存在时为 0
func counterValue(t *testing.T, c *metrics.Collector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
