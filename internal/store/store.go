// Package store persists the documents exchanged at the component boundary:
// allocation states, risk reports, bankroll plans, and the cached copies of
// upstream input feeds. Business logic never touches the backing files
// directly; it goes through a Repository so tests can substitute an
// in-memory fake.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/aristath/capital-governor/internal/domain"
)

// Repository loads and saves a single document type. There is exactly one
// writer per document; readers tolerate staleness between cycles.
type Repository[T any] interface {
	Load() (*T, error)
	Save(doc *T) error
}

// FileRepository is the JSON-file implementation of Repository with atomic
// publish semantics.
type FileRepository[T any] struct {
	path string
	log  zerolog.Logger
}

// NewFileRepository creates a repository backed by a JSON file.
func NewFileRepository[T any](dir, filename string, log zerolog.Logger) *FileRepository[T] {
	return &FileRepository[T]{
		path: filepath.Join(dir, filename),
		log:  log.With().Str("document", filename).Logger(),
	}
}

// Load reads and decodes the document. A missing file maps to
// domain.ErrInputUnavailable so callers can fall back to defaults.
func (r *FileRepository[T]) Load() (*T, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputUnavailable, r.path)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", r.path, err)
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: document %s: %v", domain.ErrValidation, r.path, err)
	}

	return &doc, nil
}

// Save atomically publishes the document.
func (r *FileRepository[T]) Save(doc *T) error {
	if err := writeJSONAtomic(r.path, doc); err != nil {
		return err
	}
	r.log.Debug().Str("path", r.path).Msg("Document published")
	return nil
}

// Documents bundles every repository the engine reads or writes.
type Documents struct {
	Allocations   Repository[domain.AllocationState]
	RiskReport    Repository[domain.RiskReport]
	BankrollPlan  Repository[domain.BankrollPlan]
	MetricsFeed   Repository[domain.MetricsFeed]
	Opportunities Repository[domain.OpportunityFeed]
	Portfolio     Repository[domain.PortfolioSnapshot]
}

// NewDocuments wires file-backed repositories under a single data directory.
// Writers own their file; input feeds are read-only caches refreshed by the
// external collaborators (or, for the metrics feed, by the fetch client).
func NewDocuments(dataDir string, log zerolog.Logger) *Documents {
	return &Documents{
		Allocations:   NewFileRepository[domain.AllocationState](dataDir, "capital_allocations.json", log),
		RiskReport:    NewFileRepository[domain.RiskReport](dataDir, "risk_report.json", log),
		BankrollPlan:  NewFileRepository[domain.BankrollPlan](dataDir, "bankroll_plan.json", log),
		MetricsFeed:   NewFileRepository[domain.MetricsFeed](dataDir, "meta_metrics.json", log),
		Opportunities: NewFileRepository[domain.OpportunityFeed](dataDir, "opportunity_feed.json", log),
		Portfolio:     NewFileRepository[domain.PortfolioSnapshot](dataDir, "portfolio.json", log),
	}
}
