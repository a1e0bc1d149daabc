package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/laggard/backend/internal/contracts"
	"github.com/wonny/laggard/backend/internal/report"
	"github.com/wonny/laggard/backend/pkg/logger"
)

// ScreeningHandler serves stored screening runs
// ⭐ SSOT: 스크리닝 결과 API 핸들러는 이 구조체에서만
type ScreeningHandler struct {
	store  contracts.RunStore
	loc    *time.Location
	logger *logger.Logger
}

// NewScreeningHandler creates a new screening handler; dates are read in loc
func NewScreeningHandler(store contracts.RunStore, loc *time.Location, log *logger.Logger) *ScreeningHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ScreeningHandler{
		store:  store,
		loc:    loc,
		logger: log,
	}
}

// RunResponse is a run without its audit trail
type RunResponse struct {
	AsOf       string                      `json:"as_of"`
	StrategyID string                      `json:"strategy_id"`
	ConfigHash string                      `json:"config_hash"`
	Summary    contracts.RunSummary        `json:"summary"`
	Records    []contracts.CompositeRecord `json:"records"`
}

func newRunResponse(result *contracts.RunResult, disposition string) RunResponse {
	records := result.Records
	if disposition != "" {
		records = make([]contracts.CompositeRecord, 0)
		for _, rec := range result.Records {
			if strings.EqualFold(string(rec.Disposition), disposition) {
				records = append(records, rec)
			}
		}
	}
	return RunResponse{
		AsOf:       result.AsOf.Format("2006-01-02"),
		StrategyID: result.StrategyID,
		ConfigHash: result.ConfigHash,
		Summary:    result.Summary,
		Records:    records,
	}
}

// GetLatest returns the newest run
// GET /api/screening/latest?disposition=Recommend|Watch|Skip
func (h *ScreeningHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	asOf, err := h.store.LatestAsOf(ctx)
	if errors.Is(err, contracts.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "No screening run stored yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run date")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest run")
		return
	}

	result, ok := h.loadRun(w, r, asOf)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, newRunResponse(result, r.URL.Query().Get("disposition")))
}

// GetByDate returns the run of one as-of date
// GET /api/screening/{date}?disposition=Recommend|Watch|Skip
func (h *ScreeningHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	result, ok := h.loadRun(w, r, asOf)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, newRunResponse(result, r.URL.Query().Get("disposition")))
}

// GetAudit returns the audit trail of a run, optionally for one security
// GET /api/screening/{date}/audit?code=7203
func (h *ScreeningHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	result, ok := h.loadRun(w, r, asOf)
	if !ok {
		return
	}

	entries := result.Audit
	if code := r.URL.Query().Get("code"); code != "" {
		if _, found := result.Find(code); !found && len(result.AuditFor(code)) == 0 {
			respondError(w, http.StatusNotFound, "Security not found in run: "+code)
			return
		}
		entries = result.AuditFor(code)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"as_of":   result.AsOf.Format("2006-01-02"),
		"count":   len(entries),
		"entries": entries,
	})
}

// GetReport renders the Markdown report of a run
// GET /api/screening/{date}/report
func (h *ScreeningHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	asOf, ok := h.parseDate(w, r)
	if !ok {
		return
	}

	result, ok := h.loadRun(w, r, asOf)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := report.WriteMarkdown(w, result); err != nil {
		h.logger.WithError(err).Error("Failed to write report")
	}
}

func (h *ScreeningHandler) parseDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := mux.Vars(r)["date"]
	asOf, err := time.ParseInLocation("2006-01-02", raw, h.loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date (expected YYYY-MM-DD)")
		return time.Time{}, false
	}
	return asOf, true
}

func (h *ScreeningHandler) loadRun(w http.ResponseWriter, r *http.Request, asOf time.Time) (*contracts.RunResult, bool) {
	result, err := h.store.GetRun(r.Context(), asOf)
	if errors.Is(err, contracts.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "No screening run for "+asOf.Format("2006-01-02"))
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run")
		return nil, false
	}
	return result, true
}
