// Package cma orchestrates CMA (comparative market analysis) report runs:
// loading the subject and candidate pool, invoking the valuation engine,
// persisting the report with its scored comparables, and keeping the
// append-only value history as the selection set changes.
package cma

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// HistoryTrigger records why a value-history row was written.
type HistoryTrigger string

const (
	TriggerInitialRun       HistoryTrigger = "initial_run"
	TriggerRerun            HistoryTrigger = "rerun"
	TriggerComparableToggle HistoryTrigger = "comparable_toggle"
)

// Report is the persisted CMA report: a subject snapshot, its scored
// comparables, and the current valuation estimate.  The subject snapshot is
// frozen at run time so later inventory updates don't silently change an
// existing report.
type Report struct {
	ID          common.ID                     `json:"id"`
	Subject     property.SubjectProperty      `json:"subject"`
	Overrides   property.Overrides            `json:"overrides"`
	Comparables []*valuation.ScoredComparable `json:"comparables"`
	Estimate    *valuation.ValuationEstimate  `json:"estimate"`

	CreatedBy common.UserID `json:"created_by,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// FindComparable returns the scored comparable with the given candidate ID.
func (r *Report) FindComparable(compID common.ID) (*valuation.ScoredComparable, bool) {
	for _, c := range r.Comparables {
		if c.Comparable.ID == compID {
			return c, true
		}
	}
	return nil, false
}

// ValueHistoryEntry is one append-only snapshot of a report's estimate.
// History rows are never updated or deleted.
type ValueHistoryEntry struct {
	ID       common.ID      `json:"id"`
	ReportID common.ID      `json:"report_id"`
	Trigger  HistoryTrigger `json:"trigger"`

	Low             *decimal.Decimal          `json:"low"`
	Mid             *decimal.Decimal          `json:"mid"`
	High            *decimal.Decimal          `json:"high"`
	ConfidenceScore float64                   `json:"confidence_score"`
	ConfidenceLevel valuation.ConfidenceLevel `json:"confidence_level"`

	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows report listings.
type ListFilter struct {
	City       string
	CreatedBy  common.UserID
	Pagination common.Pagination
}

// Repository is the persistence contract for CMA reports.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id common.ID) (*Report, error)
	List(ctx context.Context, filter ListFilter) ([]*Report, int64, error)
	Update(ctx context.Context, r *Report) error
	Delete(ctx context.Context, id common.ID) error

	AppendValueHistory(ctx context.Context, e *ValueHistoryEntry) error
	ListValueHistory(ctx context.Context, reportID common.ID, limit int) ([]*ValueHistoryEntry, error)
}

// Cache is the consumer-side caching contract; the Redis adapter implements
// it.  Get returns false on a miss without error.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Publisher emits domain events for downstream consumers (archival worker,
// analytics).  Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType string, key string, payload interface{}) error
}

// Archiver stores a finished report as a durable document and returns its
// object key.  The worker invokes it off the request path.
type Archiver interface {
	Archive(ctx context.Context, r *Report) (string, error)
}

// Event types emitted by this package.
const (
	EventReportCompleted = "cma.report.completed"
	EventReportUpdated   = "cma.report.updated"
	EventReportDeleted   = "cma.report.deleted"
)

// ReportEventPayload is the wire payload for report lifecycle events.  The
// worker decodes these field names; they are a published contract, not an
// internal detail of Report.
type ReportEventPayload struct {
	ReportID    string    `json:"report_id"`
	PropertyID  string    `json:"property_id"`
	City        string    `json:"city"`
	Mid         string    `json:"mid,omitempty"`
	Confidence  string    `json:"confidence"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewReportEventPayload flattens a report into its event payload.  A missing
// estimate (deleted reports, zero-comp runs) leaves Mid empty.
func NewReportEventPayload(r *Report, at time.Time) ReportEventPayload {
	p := ReportEventPayload{
		ReportID:    string(r.ID),
		PropertyID:  string(r.Subject.ID),
		City:        r.Subject.City,
		CompletedAt: at,
	}
	if r.Estimate != nil {
		p.Confidence = string(r.Estimate.ConfidenceLevel)
		if r.Estimate.Mid != nil {
			p.Mid = r.Estimate.Mid.StringFixed(2)
		}
	}
	return p
}

// newHistoryEntry snapshots the estimate for the history trail.
func newHistoryEntry(reportID common.ID, est *valuation.ValuationEstimate, trigger HistoryTrigger, at time.Time) (*ValueHistoryEntry, error) {
	if est == nil {
		return nil, errors.New(errors.ErrCodeAggregationFailed, "cannot snapshot a nil estimate")
	}
	return &ValueHistoryEntry{
		ID:              common.NewID(),
		ReportID:        reportID,
		Trigger:         trigger,
		Low:             est.Low,
		Mid:             est.Mid,
		High:            est.High,
		ConfidenceScore: est.ConfidenceScore,
		ConfidenceLevel: est.ConfidenceLevel,
		CreatedAt:       at,
	}, nil
}
