package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/capital-governor/internal/database"
	"github.com/aristath/capital-governor/internal/database/repositories"
	"github.com/aristath/capital-governor/internal/domain"
	"github.com/aristath/capital-governor/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Documents) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.New(filepath.Join(dir, "governor.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	docs := store.NewDocuments(dir, zerolog.Nop())
	srv := New(Config{
		Port:      0,
		Log:       zerolog.Nop(),
		Documents: docs,
		History:   repositories.NewHistory(db.Conn(), zerolog.Nop()),
		DevMode:   true,
	})
	return srv, docs
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAllocationsEndpoint(t *testing.T) {
	srv, docs := newTestServer(t)

	t.Run("missing document is 404", func(t *testing.T) {
		rec := get(t, srv, "/api/allocations")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("published document is served", func(t *testing.T) {
		require.NoError(t, docs.Allocations.Save(&domain.AllocationState{
			Allocations:      map[string]float64{"momentum": 0.6, "meanrev": 0.4},
			Source:           "capital_governor",
			Timestamp:        time.Now().UTC(),
			DeployedFraction: 0.8,
		}))

		rec := get(t, srv, "/api/allocations")
		require.Equal(t, http.StatusOK, rec.Code)

		var doc domain.AllocationState
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
		assert.InDelta(t, 0.6, doc.Allocations["momentum"], 1e-9)
		assert.InDelta(t, 0.8, doc.DeployedFraction, 1e-9)
	})
}

func TestRiskReportEndpoint(t *testing.T) {
	srv, docs := newTestServer(t)

	require.NoError(t, docs.RiskReport.Save(&domain.RiskReport{
		ID:         "report-1",
		VaR:        map[string]float64{"1d_95": 0.02},
		RiskScaler: 0.9,
		Timestamp:  time.Now().UTC(),
	}))

	rec := get(t, srv, "/api/risk/report")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc domain.RiskReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "report-1", doc.ID)
	assert.InDelta(t, 0.9, doc.RiskScaler, 1e-9)
}

func TestBankrollPlanEndpoint(t *testing.T) {
	srv, docs := newTestServer(t)

	require.NoError(t, docs.BankrollPlan.Save(&domain.BankrollPlan{
		ID:             "plan-1",
		Bankroll:       1000,
		TotalAllocated: 25,
	}))

	rec := get(t, srv, "/api/bankroll/plan")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc domain.BankrollPlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "plan-1", doc.ID)
}

func TestLimitViolationsEndpoint(t *testing.T) {
	srv, docs := newTestServer(t)

	t.Run("no snapshot is 404", func(t *testing.T) {
		rec := get(t, srv, "/api/limits/violations")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("violations derived from snapshot", func(t *testing.T) {
		require.NoError(t, docs.Portfolio.Save(&domain.PortfolioSnapshot{
			Equity: 100000,
			Positions: map[string]domain.PositionInfo{
				// 25% of equity against the default 20% limit.
				"AAPL": {Quantity: 250, Price: 100, Sector: "tech"},
			},
		}))

		rec := get(t, srv, "/api/limits/violations")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Violations []map[string]interface{} `json:"violations"`
			ChecksRun  int                      `json:"checks_run"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.Violations)
		assert.Greater(t, body.ChecksRun, 0)
	})
}

func TestAllocationHistoryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("empty history", func(t *testing.T) {
		rec := get(t, srv, "/api/allocations/history")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Entries []repositories.AuditEntry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Empty(t, body.Entries)
	})

	t.Run("records are returned newest first", func(t *testing.T) {
		first := map[string]float64{"momentum": 1.0}
		second := map[string]float64{"momentum": 0.6, "meanrev": 0.4}
		require.NoError(t, srv.history.RecordAllocation(first, 1.0, 1.0, false, time.Now().UTC()))
		require.NoError(t, srv.history.RecordAllocation(second, 0.8, 0.4, false, time.Now().UTC()))

		rec := get(t, srv, "/api/allocations/history?limit=10")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Entries []repositories.AuditEntry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Entries, 2)
		assert.InDelta(t, 0.4, body.Entries[0].Allocations["meanrev"], 1e-9)
	})

	t.Run("bad limit rejected", func(t *testing.T) {
		rec := get(t, srv, "/api/allocations/history?limit=0")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
