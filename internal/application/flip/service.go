package flip

import (
	"context"
	"time"

	"github.com/propsignal/propsignal/internal/application/cma"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/internal/domain/market"
	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// Service runs and manages flip analyses.
type Service struct {
	analyzer *domainflip.Analyzer
	reports  ReportRunner
	markets  market.Repository
	repo     Repository
	pub      Publisher
	logger   logging.Logger

	now func() time.Time
}

// NewService wires the flip analysis service.  The publisher may be nil;
// everything else is required.
func NewService(analyzer *domainflip.Analyzer, reports ReportRunner, markets market.Repository, repo Repository, pub Publisher, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		analyzer: analyzer,
		reports:  reports,
		markets:  markets,
		repo:     repo,
		pub:      pub,
		logger:   logger.Named("flip"),
		now:      time.Now,
	}
}

// RunAnalysisRequest describes one analysis run.  Either ReportID reuses an
// existing CMA report for the ARV, or PropertyID triggers a fresh run.
type RunAnalysisRequest struct {
	PropertyID common.ID                  `json:"property_id"`
	ReportID   common.ID                  `json:"report_id,omitempty"`
	Overrides  property.Overrides         `json:"overrides"`
	Inputs     domainflip.FinancialInputs `json:"inputs"`

	CreatedBy common.UserID `json:"-"`
}

// Validate checks required fields.  The financial inputs themselves are
// validated by the model so the error carries the financial error code.
func (r *RunAnalysisRequest) Validate() error {
	if r.PropertyID == "" && r.ReportID == "" {
		return errors.Validation("either property_id or report_id is required")
	}
	return nil
}

// RunAnalysis executes the full flip pipeline and persists the result.  A
// disqualified deal is a normal, persisted outcome, not an error.
func (s *Service) RunAnalysis(ctx context.Context, req RunAnalysisRequest) (*Analysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := req.Inputs.Validate(); err != nil {
		return nil, err
	}

	report, err := s.resolveReport(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	model, score, err := s.analyze(ctx, req.Inputs, report, now)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		ID:         common.NewID(),
		PropertyID: report.Subject.ID,
		ReportID:   report.ID,
		Inputs:     req.Inputs,
		Financials: model,
		Score:      score,
		CreatedBy:  req.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, analysis); err != nil {
		return nil, err
	}
	s.publish(ctx, EventAnalysisCompleted, analysis)

	s.logger.Info("flip analysis completed",
		logging.String("analysis_id", string(analysis.ID)),
		logging.String("report_id", string(report.ID)),
		logging.String("best_strategy", string(score.BestStrategy)),
		logging.Bool("disqualified", score.Disqualified),
	)
	return analysis, nil
}

// UpdateInputs reprices an existing analysis with new deal terms against its
// stored report.  The valuation is not re-run; use the CMA rerun flow for
// that.
func (s *Service) UpdateInputs(ctx context.Context, id common.ID, inputs domainflip.FinancialInputs) (*Analysis, error) {
	if err := inputs.Validate(); err != nil {
		return nil, err
	}

	analysis, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	report, err := s.reports.GetReport(ctx, analysis.ReportID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	model, score, err := s.analyze(ctx, inputs, report, now)
	if err != nil {
		return nil, err
	}

	analysis.Inputs = inputs
	analysis.Financials = model
	analysis.Score = score
	analysis.UpdatedAt = now

	if err := s.repo.Update(ctx, analysis); err != nil {
		return nil, err
	}
	s.publish(ctx, EventAnalysisCompleted, analysis)
	return analysis, nil
}

// GetAnalysis loads one analysis.
func (s *Service) GetAnalysis(ctx context.Context, id common.ID) (*Analysis, error) {
	if id == "" {
		return nil, errors.Validation("analysis id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// ListAnalyses pages through stored analyses.
func (s *Service) ListAnalyses(ctx context.Context, filter ListFilter) ([]*Analysis, int64, error) {
	filter.Pagination.Normalize()
	return s.repo.List(ctx, filter)
}

// DeleteAnalysis removes an analysis.
func (s *Service) DeleteAnalysis(ctx context.Context, id common.ID) error {
	if id == "" {
		return errors.Validation("analysis id is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, EventAnalysisDeleted, string(id), map[string]string{"id": string(id)}); err != nil {
			s.logger.Error("event publish failed", logging.Err(err), logging.String("analysis_id", string(id)))
		}
	}
	return nil
}

// resolveReport reuses the referenced report or runs a fresh one.
func (s *Service) resolveReport(ctx context.Context, req RunAnalysisRequest) (*cma.Report, error) {
	if req.ReportID != "" {
		return s.reports.GetReport(ctx, req.ReportID)
	}
	return s.reports.RunReport(ctx, cma.RunReportRequest{
		PropertyID: req.PropertyID,
		Overrides:  req.Overrides,
		CreatedBy:  req.CreatedBy,
	})
}

func (s *Service) analyze(ctx context.Context, inputs domainflip.FinancialInputs, report *cma.Report, asOf time.Time) (*domainflip.FinancialModel, *domainflip.CompositeScore, error) {
	snapshot := s.loadSnapshot(ctx, report.Subject.City, report.Subject.Zip)

	return s.analyzer.Analyze(inputs, domainflip.DealContext{
		Subject:     &report.Subject,
		Estimate:    report.Estimate,
		Comparables: report.Comparables,
		Market:      snapshot,
		AsOf:        asOf,
	})
}

// loadSnapshot is best-effort: a missing snapshot degrades the market score
// to neutral instead of failing the analysis.
func (s *Service) loadSnapshot(ctx context.Context, city, zip string) *market.Snapshot {
	snapshot, err := s.markets.Latest(ctx, city, zip)
	if err != nil {
		if !errors.IsNotFound(err) && !errors.IsCode(err, errors.ErrCodeSnapshotNotFound) {
			s.logger.Warn("market snapshot load failed", logging.Err(err), logging.String("city", city))
		}
		return nil
	}
	return snapshot
}

func (s *Service) publish(ctx context.Context, eventType string, analysis *Analysis) {
	if s.pub == nil {
		return
	}
	payload := NewAnalysisEventPayload(analysis, s.now())
	if err := s.pub.Publish(ctx, eventType, string(analysis.ID), payload); err != nil {
		s.logger.Error("event publish failed", logging.Err(err),
			logging.String("event", eventType), logging.String("analysis_id", string(analysis.ID)))
	}
}
