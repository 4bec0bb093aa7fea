package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMedGemmaClient_URL(t *testing.T) {
	c := NewMedGemmaClient(" https://medgemma.example.com/v1/ ", zap.NewNop())
	assert.Equal(t, "https://medgemma.example.com/v1/analyze_checkin", c.URL())
}

func TestMedGemmaClient_ReturnsRawBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hello":"world"}`))
	}))
	defer srv.Close()

	raw, err := NewMedGemmaClient(srv.URL, zap.NewNop()).AnalyzeCheckIn(context.Background(), models.CheckInPayload{ID: "c1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hello":"world"}`, string(raw))
}

func TestMedGemmaClient_StatusError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	_, err := NewMedGemmaClient(srv.URL, zap.NewNop()).AnalyzeCheckIn(context.Background(), models.CheckInPayload{})
	require.Error(t, err)

	var statusErr *RemoteStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Len(t, statusErr.Body, maxErrorBodyLen)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestMedGemmaClient_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMedGemmaClient(srv.URL, zap.NewNop()).AnalyzeCheckIn(ctx, models.CheckInPayload{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
