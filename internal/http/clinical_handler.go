package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/models"
	"github.com/nikhilnt1234/Digital-Twin-sub001/internal/repository"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// exportLimit 单次导出的最大记录数
const exportLimit = 1000

// ClinicalService service.CheckInService 实现
type ClinicalService interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.CareSummaryOutput, error)
	GetLatest(ctx context.Context, sessionID string) (*models.SummaryRecord, error)
	ListHistory(ctx context.Context, sessionID string, page, size int) ([]*models.SummaryRecord, int, error)
}

// SummaryList 分页历史
type SummaryList struct {
	Items []*models.SummaryRecord `json:"items"`
	Total int                     `json:"total"`
	Page  int                     `json:"page"`
	Size  int                     `json:"size"`
}

type ClinicalHandler struct {
	svc    ClinicalService
	logger *zap.Logger
}

func NewClinicalHandler(svc ClinicalService, logger *zap.Logger) *ClinicalHandler {
	return &ClinicalHandler{svc: svc, logger: logger}
}

// Analyze POST /api/clinical/analyze
// 成功时直接返回 CareSummaryOutput（不包 Result）
func (h *ClinicalHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
		return
	}

	var req models.AnalyzeRequest
	if err := decodeAnalyzeBody(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("invalid JSON body: %v", err)))
		return
	}

	out, err := h.svc.Analyze(r.Context(), req)
	if err != nil {
		h.logger.Error("Check-in analysis failed", zap.String("session_id", req.SessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("analysis failed"))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// GetLatest GET /api/clinical/sessions/{id}/latest
func (h *ClinicalHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(mux.Vars(r)["id"])
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("session id is required"))
		return
	}

	rec, err := h.svc.GetLatest(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSummaryNotFound) {
			writeJSON(w, http.StatusNotFound, Fail("no summary for session"))
			return
		}
		h.logger.Error("Failed to load latest summary", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to load summary"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// ListSummaries GET /api/clinical/summaries?session_id=&page=&size=
func (h *ClinicalHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := strings.TrimSpace(q.Get("session_id"))
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("session_id is required"))
		return
	}
	page := positiveQueryInt(q, "page", 1)
	size := positiveQueryInt(q, "size", 20)

	items, total, err := h.svc.ListHistory(r.Context(), sessionID, page, size)
	if err != nil {
		h.logger.Error("Failed to list summaries", zap.String("session_id", sessionID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to list summaries"))
		return
	}
	if items == nil {
		items = []*models.SummaryRecord{}
	}
	writeJSON(w, http.StatusOK, Ok(SummaryList{Items: items, Total: total, Page: page, Size: size}))
}

// ExportSummaries GET /api/clinical/summaries/export?session_id=
func (h *ClinicalHandler) ExportSummaries(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("session_id is required"))
		return
	}

	var records []*models.SummaryRecord
	for page := 1; len(records) < exportLimit; page++ {
		items, total, err := h.svc.ListHistory(r.Context(), sessionID, page, 200)
		if err != nil {
			h.logger.Error("Failed to load summaries for export", zap.String("session_id", sessionID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to export summaries"))
			return
		}
		records = append(records, items...)
		if len(items) == 0 || len(records) >= total {
			break
		}
	}
	if len(records) > exportLimit {
		records = records[:exportLimit]
	}

	data, err := GenerateSummaryExport(records)
	if err != nil {
		h.logger.Error("Failed to generate summary export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to export summaries"))
		return
	}

	filename := fmt.Sprintf("care_summaries_%s_%s.xlsx", sanitizeFilename(sessionID), time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
