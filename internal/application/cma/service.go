package cma

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// ServiceConfig holds the orchestration tunables that are not engine policy.
type ServiceConfig struct {
	// CompWindowMonths bounds how far back the candidate pool reaches.
	CompWindowMonths int
	// CacheTTL bounds how long a report stays cached after a read.
	CacheTTL time.Duration
}

// DefaultServiceConfig returns the baseline orchestration settings.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		CompWindowMonths: 12,
		CacheTTL:         15 * time.Minute,
	}
}

// Service runs and manages CMA reports.
type Service struct {
	engine     *valuation.Engine
	properties property.Repository
	reports    Repository
	cache      Cache
	publisher  Publisher
	logger     logging.Logger
	cfg        ServiceConfig

	now func() time.Time
}

// NewService wires the report service.  Cache and publisher may be nil in
// tests or stripped-down deployments; persistence and the engine may not.
func NewService(engine *valuation.Engine, properties property.Repository, reports Repository, cache Cache, publisher Publisher, logger logging.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.CompWindowMonths <= 0 {
		cfg.CompWindowMonths = DefaultServiceConfig().CompWindowMonths
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultServiceConfig().CacheTTL
	}
	return &Service{
		engine:     engine,
		properties: properties,
		reports:    reports,
		cache:      cache,
		publisher:  publisher,
		logger:     logger.Named("cma"),
		cfg:        cfg,
		now:        time.Now,
	}
}

// RunReportRequest describes one report run.
type RunReportRequest struct {
	PropertyID common.ID          `json:"property_id"`
	Overrides  property.Overrides `json:"overrides"`

	// Optional pool narrowing.
	MaxRadiusMiles *float64         `json:"max_radius_miles,omitempty"`
	MinPrice       *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice       *decimal.Decimal `json:"max_price,omitempty"`
	IncludeActive  bool             `json:"include_active"`

	CreatedBy common.UserID `json:"-"`
}

// Validate checks required fields.
func (r *RunReportRequest) Validate() error {
	if r.PropertyID == "" {
		return errors.Validation("property_id is required")
	}
	if r.MaxRadiusMiles != nil && *r.MaxRadiusMiles <= 0 {
		return errors.Validation("max_radius_miles must be positive")
	}
	if r.MinPrice != nil && r.MinPrice.Sign() < 0 {
		return errors.Validation("min_price cannot be negative")
	}
	return nil
}

// RunReport executes a fresh valuation run and persists the report.
func (s *Service) RunReport(ctx context.Context, req RunReportRequest) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	subject, err := s.properties.GetByID(ctx, req.PropertyID)
	if err != nil {
		return nil, err
	}
	runSubject := subject.ApplyOverrides(req.Overrides)

	now := s.now()
	scored, estimate, err := s.runEngine(ctx, runSubject, req, now)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:          common.NewID(),
		Subject:     *runSubject,
		Overrides:   req.Overrides,
		Comparables: scored,
		Estimate:    estimate,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	s.appendHistory(ctx, report, TriggerInitialRun)
	s.publish(ctx, EventReportCompleted, report)

	s.logger.Info("cma report completed",
		logging.String("report_id", string(report.ID)),
		logging.String("property_id", string(req.PropertyID)),
		logging.Int("comparables", len(scored)),
		logging.String("confidence", string(estimate.ConfidenceLevel)),
	)
	return report, nil
}

// runEngine loads the candidate pool and runs the valuation pipeline.  The
// pool is loaded citywide so the engine's progressive radius widening has
// somewhere to widen to.
func (s *Service) runEngine(ctx context.Context, subject *property.SubjectProperty, req RunReportRequest, asOf time.Time) ([]*valuation.ScoredComparable, *valuation.ValuationEstimate, error) {
	soldAfter := asOf.AddDate(0, -s.cfg.CompWindowMonths, 0)
	pool, err := s.properties.CandidatePool(ctx, property.PoolQuery{
		Center:        subject.Location,
		City:          subject.City,
		SoldAfter:     soldAfter,
		PropertyType:  &subject.PropertyType,
		IncludeActive: req.IncludeActive,
	})
	if err != nil {
		return nil, nil, err
	}

	return s.engine.Run(subject, pool, valuation.SelectionFilters{
		MaxRadiusMiles: req.MaxRadiusMiles,
		MinPrice:       req.MinPrice,
		MaxPrice:       req.MaxPrice,
		SoldAfter:      &soldAfter,
	}, asOf)
}

// GetReport loads a report, read-through cached.
func (s *Service) GetReport(ctx context.Context, id common.ID) (*Report, error) {
	if id == "" {
		return nil, errors.Validation("report id is required")
	}

	key := reportCacheKey(id)
	if s.cache != nil {
		var cached Report
		if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
			s.logger.Warn("report cache read failed", logging.Err(err), logging.String("report_id", string(id)))
		} else if hit {
			return &cached, nil
		}
	}

	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("report cache write failed", logging.Err(err), logging.String("report_id", string(id)))
		}
	}
	return report, nil
}

// ListReports pages through stored reports.
func (s *Service) ListReports(ctx context.Context, filter ListFilter) ([]*Report, int64, error) {
	filter.Pagination.Normalize()
	return s.reports.List(ctx, filter)
}

// DeleteReport removes a report and its cache entry.  Value history rows are
// kept; they are the audit trail.
func (s *Service) DeleteReport(ctx context.Context, id common.ID) error {
	if id == "" {
		return errors.Validation("report id is required")
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	s.publish(ctx, EventReportDeleted, &Report{ID: id})
	return nil
}

// ComparableToggle carries the user-editable flags; nil fields are left
// unchanged.
type ComparableToggle struct {
	IsSelected   *bool `json:"is_selected,omitempty"`
	IsRenovated  *bool `json:"is_renovated,omitempty"`
	IsDistressed *bool `json:"is_distressed,omitempty"`
}

// ToggleComparable flips a comparable's flags and re-aggregates the
// estimate.  Adjustments and scores are not recomputed; only membership in
// the aggregation set changes.
func (s *Service) ToggleComparable(ctx context.Context, reportID, compID common.ID, toggle ComparableToggle) (*Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	comp, ok := report.FindComparable(compID)
	if !ok {
		return nil, errors.New(errors.ErrCodeComparableNotInReport,
			fmt.Sprintf("comparable %s is not part of report %s", compID, reportID))
	}
	if toggle.IsSelected != nil {
		comp.IsSelected = *toggle.IsSelected
	}
	if toggle.IsRenovated != nil {
		comp.IsRenovated = *toggle.IsRenovated
	}
	if toggle.IsDistressed != nil {
		comp.IsDistressed = *toggle.IsDistressed
	}

	now := s.now()
	report.Estimate = s.engine.Aggregate(report.Comparables, now)
	report.UpdatedAt = now

	if err := s.reports.Update(ctx, report); err != nil {
		return nil, err
	}
	s.appendHistory(ctx, report, TriggerComparableToggle)
	s.invalidate(ctx, reportID)
	s.publish(ctx, EventReportUpdated, report)
	return report, nil
}

// RerunReport re-executes the full pipeline for an existing report with
// fresh pool data, optionally replacing the overrides.  The report keeps its
// identity; the history trail records the transition.
func (s *Service) RerunReport(ctx context.Context, reportID common.ID, overrides *property.Overrides) (*Report, error) {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if overrides != nil {
		report.Overrides = *overrides
	}
	subject, err := s.properties.GetByID(ctx, report.Subject.ID)
	if err != nil {
		return nil, err
	}
	runSubject := subject.ApplyOverrides(report.Overrides)

	now := s.now()
	scored, estimate, err := s.runEngine(ctx, runSubject, RunReportRequest{PropertyID: subject.ID}, now)
	if err != nil {
		return nil, err
	}

	report.Subject = *runSubject
	report.Comparables = scored
	report.Estimate = estimate
	report.UpdatedAt = now

	if err := s.reports.Update(ctx, report); err != nil {
		return nil, err
	}
	s.appendHistory(ctx, report, TriggerRerun)
	s.invalidate(ctx, reportID)
	s.publish(ctx, EventReportCompleted, report)
	return report, nil
}

// ValueHistory lists the append-only estimate snapshots, newest first.
func (s *Service) ValueHistory(ctx context.Context, reportID common.ID, limit int) ([]*ValueHistoryEntry, error) {
	if reportID == "" {
		return nil, errors.Validation("report id is required")
	}
	if limit <= 0 {
		limit = 50
	}
	return s.reports.ListValueHistory(ctx, reportID, limit)
}

func (s *Service) appendHistory(ctx context.Context, report *Report, trigger HistoryTrigger) {
	entry, err := newHistoryEntry(report.ID, report.Estimate, trigger, s.now())
	if err != nil {
		s.logger.Warn("skipping value history snapshot", logging.Err(err))
		return
	}
	if err := s.reports.AppendValueHistory(ctx, entry); err != nil {
		// History is an audit nicety; a write failure must not fail the run.
		s.logger.Error("value history append failed", logging.Err(err),
			logging.String("report_id", string(report.ID)))
	}
}

func (s *Service) publish(ctx context.Context, eventType string, report *Report) {
	if s.publisher == nil {
		return
	}
	payload := NewReportEventPayload(report, s.now())
	if err := s.publisher.Publish(ctx, eventType, string(report.ID), payload); err != nil {
		s.logger.Error("event publish failed", logging.Err(err),
			logging.String("event", eventType), logging.String("report_id", string(report.ID)))
	}
}

func (s *Service) invalidate(ctx context.Context, id common.ID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, reportCacheKey(id)); err != nil {
		s.logger.Warn("report cache invalidation failed", logging.Err(err),
			logging.String("report_id", string(id)))
	}
}

func reportCacheKey(id common.ID) string {
	return "cma:report:" + string(id)
}
