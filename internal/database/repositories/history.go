package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HistoryRepository persists the equity curve and the allocation audit
// trail. The equity series feeds the risk metrics engine; the audit trail
// records every committed reallocation.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistory creates a history repository.
func NewHistory(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// RecordEquity appends one equity sample.
func (r *HistoryRepository) RecordEquity(equity float64, at time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO equity_history (equity, recorded_at) VALUES (?, ?)`,
		equity, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record equity: %w", err)
	}
	return nil
}

// EquitySeries returns the most recent samples in chronological order.
func (r *HistoryRepository) EquitySeries(limit int) ([]float64, error) {
	rows, err := r.db.Query(
		`SELECT equity FROM (
			SELECT id, equity FROM equity_history ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity history: %w", err)
	}
	defer rows.Close()

	series := make([]float64, 0, limit)
	for rows.Next() {
		var equity float64
		if err := rows.Scan(&equity); err != nil {
			return nil, fmt.Errorf("failed to scan equity row: %w", err)
		}
		series = append(series, equity)
	}
	return series, rows.Err()
}

// RecordAllocation appends one committed reallocation to the audit trail.
func (r *HistoryRepository) RecordAllocation(
	allocations map[string]float64,
	deployedFraction, maxChange float64,
	degraded bool,
	at time.Time,
) error {
	encoded, err := json.Marshal(allocations)
	if err != nil {
		return fmt.Errorf("failed to encode allocations: %w", err)
	}

	_, err = r.db.Exec(
		`INSERT INTO allocation_audit
			(allocations, deployed_fraction, max_change, degraded, committed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(encoded), deployedFraction, maxChange, degraded, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record allocation: %w", err)
	}
	return nil
}

// AuditEntry is one row of the allocation audit trail.
type AuditEntry struct {
	Allocations      map[string]float64 `json:"allocations"`
	DeployedFraction float64            `json:"deployed_fraction"`
	MaxChange        float64            `json:"max_change"`
	Degraded         bool               `json:"degraded"`
	CommittedAt      time.Time          `json:"committed_at"`
}

// RecentAllocations returns the latest audit entries, newest first.
func (r *HistoryRepository) RecentAllocations(limit int) ([]AuditEntry, error) {
	rows, err := r.db.Query(
		`SELECT allocations, deployed_fraction, max_change, degraded, committed_at
		 FROM allocation_audit ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation audit: %w", err)
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0, limit)
	for rows.Next() {
		var entry AuditEntry
		var encoded string
		if err := rows.Scan(&encoded, &entry.DeployedFraction, &entry.MaxChange, &entry.Degraded, &entry.CommittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &entry.Allocations); err != nil {
			return nil, fmt.Errorf("failed to decode allocations: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
