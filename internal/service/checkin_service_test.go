package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/evaluator"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/metrics"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/repository"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRouter struct {
	calls   int
	payload models.CheckInPayload
}

func (f *fakeRouter) Route(_ context.Context, payload models.CheckInPayload) models.CareSummaryOutput {
	f.calls++
	f.payload = payload
	return evaluator.NewRiskAnalyzer().Analyze(payload).WithSource(models.SourceDemoFallback)
}

type fakeNotifier struct {
	events []TriageEvent
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, e TriageEvent) error {
	f.events = append(f.events, e)
	return f.err
}

type failingRepo struct{ repository.SummariesRepository }

func (failingRepo) CreateSummary(context.Context, *models.SummaryRecord) (string, error) {
	return "", errors.New("db down")
}

func (failingRepo) GetLatestSummary(context.Context, string) (*models.SummaryRecord, error) {
	return nil, errors.New("db down")
}

func newTestService(demo bool) (*CheckInService, *fakeRouter) {
	router := &fakeRouter{}
	return NewCheckInService(evaluator.NewRiskAnalyzer(), router, demo, zap.NewNop()), router
}

func TestAppendFollowUps(t *testing.T) {
	cases := []struct {
		name       string
		transcript string
		answers    map[string]string
		want       string
	}{
		{"no answers", "I feel fine", nil, "I feel fine"},
		{"empty values dropped", "I feel fine", map[string]string{"sleep": " "}, "I feel fine"},
		{
			"sorted block",
			"I feel fine",
			map[string]string{"sleep": "6 hours", "appetite": "normal"},
			"I feel fine\n\nFollow-up: appetite: normal. sleep: 6 hours.",
		},
		{"empty transcript", "", map[string]string{"pain": "none"}, "Follow-up: pain: none."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AppendFollowUps(tc.transcript, tc.answers))
		})
	}
}

func TestCheckInService_DemoModeSkipsRouter(t *testing.T) {
	svc, router := newTestService(true)

	out, err := svc.Analyze(context.Background(), models.AnalyzeRequest{
		Payload: models.CheckInPayload{Transcript: "I have chest pain"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SourceDemo, out.ProviderSource)
	assert.Equal(t, models.RiskRed, out.Triage.RiskLevel)
	assert.Equal(t, 0, router.calls)
}

func TestCheckInService_RoutesWithFollowUps(t *testing.T) {
	svc, router := newTestService(false)

	out, err := svc.Analyze(context.Background(), models.AnalyzeRequest{
		SessionID:       "s1",
		Payload:         models.CheckInPayload{Transcript: "Slept poorly"},
		FollowUpAnswers: map[string]string{"dizziness": "a little dizzy"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, router.calls)
	assert.Equal(t, "Slept poorly\n\nFollow-up: dizziness: a little dizzy.", router.payload.Transcript)
	assert.NotEmpty(t, router.payload.ID)
	assert.Equal(t, models.SourceDemoFallback, out.ProviderSource)
	assert.Equal(t, models.RiskYellow, out.Triage.RiskLevel)
}

func TestCheckInService_KeepsCallerCheckInID(t *testing.T) {
	svc, router := newTestService(false)
	_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{Payload: models.CheckInPayload{ID: "checkin-42"}})
	require.NoError(t, err)
	assert.Equal(t, "checkin-42", router.payload.ID)
}

func TestCheckInService_PersistsAndFillsPriorSummary(t *testing.T) {
	svc, router := newTestService(false)
	repo := repository.NewMemorySummariesRepository()
	svc.SetSummariesRepository(repo)
	ctx := context.Background()

	first, err := svc.Analyze(ctx, models.AnalyzeRequest{SessionID: "s1", Payload: models.CheckInPayload{Transcript: "feeling dizzy"}})
	require.NoError(t, err)

	_, err = svc.Analyze(ctx, models.AnalyzeRequest{SessionID: "s1", Payload: models.CheckInPayload{Transcript: "better today"}})
	require.NoError(t, err)
	assert.Equal(t, first.PatientSummary.OneLiner, router.payload.PriorDaySummary)

	// 调用方给出的 prior summary 不覆盖
	_, err = svc.Analyze(ctx, models.AnalyzeRequest{SessionID: "s1", Payload: models.CheckInPayload{PriorDaySummary: "from caller"}})
	require.NoError(t, err)
	assert.Equal(t, "from caller", router.payload.PriorDaySummary)

	recs, total, err := svc.ListHistory(ctx, "s1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, recs, 3)
}

func TestCheckInService_NoSessionIsNotPersisted(t *testing.T) {
	svc, _ := newTestService(true)
	repo := repository.NewMemorySummariesRepository()
	svc.SetSummariesRepository(repo)

	_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{Payload: models.CheckInPayload{Transcript: "ok"}})
	require.NoError(t, err)

	_, err = svc.GetLatest(context.Background(), "")
	assert.Error(t, err)
}

func TestCheckInService_SideEffectFailuresDoNotFail(t *testing.T) {
	svc, _ := newTestService(true)
	svc.SetSummariesRepository(failingRepo{})
	notifier := &fakeNotifier{err: errors.New("stream down")}
	svc.SetNotifier(notifier)

	out, err := svc.Analyze(context.Background(), models.AnalyzeRequest{
		SessionID: "s1",
		Payload:   models.CheckInPayload{Transcript: "I fainted"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RiskRed, out.Triage.RiskLevel)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "s1", notifier.events[0].SessionID)
}

func TestCheckInService_NotifiesOnlyYellowAndRed(t *testing.T) {
	svc, _ := newTestService(true)
	notifier := &fakeNotifier{}
	svc.SetNotifier(notifier)
	ctx := context.Background()

	for _, transcript := range []string{"great day", "a bit of nausea", "slurred speech"} {
		_, err := svc.Analyze(ctx, models.AnalyzeRequest{SessionID: "s1", Payload: models.CheckInPayload{Transcript: transcript}})
		require.NoError(t, err)
	}
	require.Len(t, notifier.events, 2)
	assert.Equal(t, models.RiskYellow, notifier.events[0].RiskLevel)
	assert.Equal(t, models.RiskRed, notifier.events[1].RiskLevel)
}

func TestCheckInService_LatestFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc, _ := newTestService(true)
	repo := repository.NewMemorySummariesRepository()
	svc.SetSummariesRepository(repo)
	svc.SetCache(store.NewSummaryCache(store.NewRedisKV(client), "clinical:session:", time.Hour))
	ctx := context.Background()

	_, err := svc.GetLatest(ctx, "s1")
	assert.True(t, errors.Is(err, repository.ErrSummaryNotFound))

	_, err = svc.Analyze(ctx, models.AnalyzeRequest{SessionID: "s1", Payload: models.CheckInPayload{ID: "c1", Transcript: "cough"}})
	require.NoError(t, err)
	assert.True(t, mr.Exists("clinical:session:s1:latest"))

	rec, err := svc.GetLatest(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "c1", rec.CheckInID)

	// 缓存失效后从历史回填
	mr.FlushAll()
	rec, err = svc.GetLatest(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "c1", rec.CheckInID)
	assert.True(t, mr.Exists("clinical:session:s1:latest"))
}

func TestCheckInService_RecordsAnalysisMetric(t *testing.T) {
	svc, _ := newTestService(true)
	collector := metrics.NewCollector("test")
	svc.SetMetrics(collector)

	_, err := svc.Analyze(context.Background(), models.AnalyzeRequest{Payload: models.CheckInPayload{Transcript: "fever"}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, counterValue(t, collector, "checkin_analyses_total",
		map[string]string{"provider_source": "demo", "risk_level": "yellow"}))
}

func TestCheckInService_CanceledContext(t *testing.T) {
	svc, _ := newTestService(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Analyze(ctx, models.AnalyzeRequest{})
	assert.ErrorIs(t, err, context.Canceled)
}
