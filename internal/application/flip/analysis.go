// Package flip orchestrates flip analyses: running (or reusing) a CMA
// report for the ARV, loading the market snapshot, pricing the deal through
// the financial model, and scoring it.
package flip

import (
	"context"
	"time"

	"github.com/propsignal/propsignal/internal/application/cma"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// Analysis is the persisted flip analysis.  It references the CMA report
// that supplied the ARV so the valuation context stays inspectable.
type Analysis struct {
	ID         common.ID `json:"id"`
	PropertyID common.ID `json:"property_id"`
	ReportID   common.ID `json:"report_id"`

	Inputs     domainflip.FinancialInputs `json:"inputs"`
	Financials *domainflip.FinancialModel `json:"financials"`
	Score      *domainflip.CompositeScore `json:"score"`

	CreatedBy common.UserID `json:"created_by,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ListFilter narrows analysis listings.
type ListFilter struct {
	PropertyID common.ID
	CreatedBy  common.UserID
	// DisqualifiedOnly restricts to disqualified deals when true.
	DisqualifiedOnly bool
	Pagination       common.Pagination
}

// Repository is the persistence contract for flip analyses.
type Repository interface {
	Create(ctx context.Context, a *Analysis) error
	GetByID(ctx context.Context, id common.ID) (*Analysis, error)
	List(ctx context.Context, filter ListFilter) ([]*Analysis, int64, error)
	Update(ctx context.Context, a *Analysis) error
	Delete(ctx context.Context, id common.ID) error
}

// ReportRunner is the slice of the CMA service this package consumes.
type ReportRunner interface {
	RunReport(ctx context.Context, req cma.RunReportRequest) (*cma.Report, error)
	GetReport(ctx context.Context, id common.ID) (*cma.Report, error)
}

// Publisher emits analysis lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, key string, payload interface{}) error
}

// Event types emitted by this package.
const (
	EventAnalysisCompleted = "flip.analysis.completed"
	EventAnalysisDeleted   = "flip.analysis.deleted"
)

// AnalysisEventPayload is the wire payload for analysis lifecycle events.
// The worker decodes these field names; keep them stable.
type AnalysisEventPayload struct {
	AnalysisID   string    `json:"analysis_id"`
	PropertyID   string    `json:"property_id"`
	ReportID     string    `json:"report_id"`
	TotalScore   float64   `json:"total_score"`
	BestStrategy string    `json:"best_strategy"`
	Disqualified bool      `json:"disqualified"`
	CompletedAt  time.Time `json:"completed_at"`
}

// NewAnalysisEventPayload flattens an analysis into its event payload.  A
// missing score (deleted analyses) leaves the score fields zero.
func NewAnalysisEventPayload(a *Analysis, at time.Time) AnalysisEventPayload {
	p := AnalysisEventPayload{
		AnalysisID:  string(a.ID),
		PropertyID:  string(a.PropertyID),
		ReportID:    string(a.ReportID),
		CompletedAt: at,
	}
	if a.Score != nil {
		p.TotalScore = a.Score.TotalScore
		p.BestStrategy = string(a.Score.BestStrategy)
		p.Disqualified = a.Score.Disqualified
	}
	return p
}
