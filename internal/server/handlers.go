package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/internal/modules/risklimits"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "capital-governor",
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleAllocations serves the latest committed allocation document.
func (s *Server) handleAllocations(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.Allocations.Load()
	if err != nil {
		s.writeDocumentError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// handleAllocationHistory serves recent allocation audit entries.
func (s *Server) handleAllocationHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			s.writeError(w, http.StatusBadRequest, "limit must be an integer in [1, 500]")
			return
		}
		limit = parsed
	}

	entries, err := s.history.RecentAllocations(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load allocation history")
		s.writeError(w, http.StatusInternalServerError, "failed to load allocation history")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// handleRiskReport serves the latest risk report.
func (s *Server) handleRiskReport(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.RiskReport.Load()
	if err != nil {
		s.writeDocumentError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// handleBankrollPlan serves the latest bankroll plan.
func (s *Server) handleBankrollPlan(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.BankrollPlan.Load()
	if err != nil {
		s.writeDocumentError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// handleLimitViolations runs the exposure checks against the cached
// portfolio snapshot and serves current violations. Checks are stateless so
// the view is always derived fresh from the latest snapshot.
func (s *Server) handleLimitViolations(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.docs.Portfolio.Load()
	if err != nil {
		s.writeDocumentError(w, err)
		return
	}

	limits, err := risklimits.LoadLimits(s.limitsPath, s.log)
	if err != nil {
		s.log.Warn().Err(err).Msg("Falling back to default risk limits")
	}

	results := risklimits.CheckAll(snapshot, limits)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"violations": risklimits.Violations(results),
		"checks_run": len(results),
		"limits":     limits,
	})
}

// writeDocumentError maps document load failures onto HTTP statuses.
func (s *Server) writeDocumentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInputUnavailable):
		s.writeError(w, http.StatusNotFound, "document not yet published")
	case errors.Is(err, domain.ErrValidation):
		s.writeError(w, http.StatusInternalServerError, "document is corrupt")
	default:
		s.log.Error().Err(err).Msg("Failed to load document")
		s.writeError(w, http.StatusInternalServerError, "failed to load document")
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
