package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.RegisterClinicalRoutes(NewClinicalHandler(&fakeClinicalService{}, zap.NewNop()), RateLimit(0.001, 2))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doRequest(r, http.MethodPost, "/api/clinical/analyze", `{}`).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// 读接口不受限流影响
	w := doRequest(r, http.MethodGet, "/api/clinical/summaries?session_id=s1", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_DisabledWhenNonPositive(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.RegisterClinicalRoutes(NewClinicalHandler(&fakeClinicalService{}, zap.NewNop()), RateLimit(0, 0))

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, doRequest(r, http.MethodPost, "/api/clinical/analyze", `{}`).Code)
	}
}

func TestRateLimit_RetryAfterHeader(t *testing.T) {
	r := NewRouter(zap.NewNop())
	r.RegisterClinicalRoutes(NewClinicalHandler(&fakeClinicalService{}, zap.NewNop()), RateLimit(0.5, 1))

	doRequest(r, http.MethodPost, "/api/clinical/analyze", `{}`)
	w := doRequest(r, http.MethodPost, "/api/clinical/analyze", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
}
