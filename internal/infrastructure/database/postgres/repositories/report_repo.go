package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/application/cma"
	"github.com/propsignal/propsignal/internal/domain/valuation"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// ReportRepository implements cma.Repository.  The report row carries the
// subject snapshot, overrides and estimate as jsonb; scored comparables live
// in report_comparables with their toggle flags broken out into columns so
// a toggle is a single-column update rather than a document rewrite.
type ReportRepository struct {
	db     *sql.DB
	logger logging.Logger
}

// NewReportRepository constructs a ready-to-use ReportRepository.
func NewReportRepository(db *sql.DB, logger logging.Logger) *ReportRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReportRepository{db: db, logger: logger.Named("report_repo")}
}

// Create persists the report and its comparables atomically.
func (r *ReportRepository) Create(ctx context.Context, report *cma.Report) error {
	subject, overrides, estimate, err := marshalReportDocs(report)
	if err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO cma_reports (id, subject_city, subject, overrides, estimate, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			string(report.ID), report.Subject.City, subject, overrides, estimate,
			string(report.CreatedBy), report.CreatedAt, report.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert report")
		}
		return insertComparables(ctx, tx, report)
	})
}

// GetByID loads the report with its comparables.
func (r *ReportRepository) GetByID(ctx context.Context, id common.ID) (*cma.Report, error) {
	report, err := r.scanReport(r.db.QueryRowContext(ctx, `
SELECT id, subject, overrides, estimate, created_by, created_at, updated_at
FROM cma_reports WHERE id = $1`, string(id)))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeReportNotFound, fmt.Sprintf("report %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load report")
	}
	if err := r.loadComparables(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// List pages through reports without their comparables; callers load a full
// report by ID when they need the detail.
func (r *ReportRepository) List(ctx context.Context, filter cma.ListFilter) ([]*cma.Report, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.City != "" {
		where = append(where, "subject_city = "+arg(filter.City))
	}
	if filter.CreatedBy != "" {
		where = append(where, "created_by = "+arg(string(filter.CreatedBy)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cma_reports WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count reports")
	}

	filter.Pagination.Normalize()
	query := fmt.Sprintf(`
SELECT id, subject, overrides, estimate, created_by, created_at, updated_at
FROM cma_reports WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		cond, arg(filter.Pagination.PageSize), arg(filter.Pagination.Offset()))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list reports")
	}
	defer rows.Close()

	var out []*cma.Report
	for rows.Next() {
		report, err := r.scanReport(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan report row")
		}
		out = append(out, report)
	}
	return out, total, rows.Err()
}

// Update rewrites the report row and replaces its comparables.  Replacement
// keeps toggle edits and reruns on the same code path.
func (r *ReportRepository) Update(ctx context.Context, report *cma.Report) error {
	subject, overrides, estimate, err := marshalReportDocs(report)
	if err != nil {
		return err
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE cma_reports SET subject_city = $2, subject = $3, overrides = $4, estimate = $5, updated_at = $6
WHERE id = $1`,
			string(report.ID), report.Subject.City, subject, overrides, estimate, report.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update report")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.New(errors.ErrCodeReportNotFound, fmt.Sprintf("report %s not found", report.ID))
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM report_comparables WHERE report_id = $1`, string(report.ID)); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear report comparables")
		}
		return insertComparables(ctx, tx, report)
	})
}

// Delete removes the report; comparables and history cascade in the schema.
func (r *ReportRepository) Delete(ctx context.Context, id common.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cma_reports WHERE id = $1`, string(id))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete report")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeReportNotFound, fmt.Sprintf("report %s not found", id))
	}
	return nil
}

// AppendValueHistory writes one append-only history row.
func (r *ReportRepository) AppendValueHistory(ctx context.Context, e *cma.ValueHistoryEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO report_value_history (id, report_id, trigger, low, mid, high, confidence_score, confidence_level, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		string(e.ID), string(e.ReportID), string(e.Trigger),
		decimalArg(e.Low), decimalArg(e.Mid), decimalArg(e.High),
		e.ConfidenceScore, string(e.ConfidenceLevel), e.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to append value history")
	}
	return nil
}

// ListValueHistory lists history rows for a report, newest first.
func (r *ReportRepository) ListValueHistory(ctx context.Context, reportID common.ID, limit int) ([]*cma.ValueHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, report_id, trigger, low, mid, high, confidence_score, confidence_level, created_at
FROM report_value_history WHERE report_id = $1 ORDER BY created_at DESC LIMIT $2`,
		string(reportID), limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list value history")
	}
	defer rows.Close()

	var out []*cma.ValueHistoryEntry
	for rows.Next() {
		var (
			e              cma.ValueHistoryEntry
			id, rid        string
			trigger, level string
			low, mid, high decimal.NullDecimal
		)
		err := rows.Scan(&id, &rid, &trigger, &low, &mid, &high, &e.ConfidenceScore, &level, &e.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan history row")
		}
		e.ID = common.ID(id)
		e.ReportID = common.ID(rid)
		e.Trigger = cma.HistoryTrigger(trigger)
		e.ConfidenceLevel = valuation.ConfidenceLevel(level)
		if low.Valid {
			e.Low = &low.Decimal
		}
		if mid.Valid {
			e.Mid = &mid.Decimal
		}
		if high.Valid {
			e.High = &high.Decimal
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *ReportRepository) scanReport(sc scanner) (*cma.Report, error) {
	var (
		report                     cma.Report
		id, createdBy              string
		subject, overrides, estRaw []byte
	)
	err := sc.Scan(&id, &subject, &overrides, &estRaw, &createdBy, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return nil, err
	}
	report.ID = common.ID(id)
	report.CreatedBy = common.UserID(createdBy)
	if err := unmarshalJSON(subject, &report.Subject); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(overrides, &report.Overrides); err != nil {
		return nil, err
	}
	if len(estRaw) > 0 {
		var est valuation.ValuationEstimate
		if err := unmarshalJSON(estRaw, &est); err != nil {
			return nil, err
		}
		report.Estimate = &est
	}
	return &report, nil
}

func (r *ReportRepository) loadComparables(ctx context.Context, report *cma.Report) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT payload, is_selected, is_renovated, is_distressed
FROM report_comparables WHERE report_id = $1 ORDER BY position`, string(report.ID))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load report comparables")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			payload []byte
			comp    valuation.ScoredComparable
		)
		if err := rows.Scan(&payload, &comp.IsSelected, &comp.IsRenovated, &comp.IsDistressed); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan comparable row")
		}
		// Flag columns are authoritative over the payload copy.
		selected, renovated, distressed := comp.IsSelected, comp.IsRenovated, comp.IsDistressed
		if err := unmarshalJSON(payload, &comp); err != nil {
			return err
		}
		comp.IsSelected, comp.IsRenovated, comp.IsDistressed = selected, renovated, distressed
		report.Comparables = append(report.Comparables, &comp)
	}
	return rows.Err()
}

func insertComparables(ctx context.Context, tx *sql.Tx, report *cma.Report) error {
	for i, comp := range report.Comparables {
		payload, err := marshalJSON(comp)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO report_comparables (report_id, comparable_id, position, payload, is_selected, is_renovated, is_distressed)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			string(report.ID), string(comp.Comparable.ID), i, payload,
			comp.IsSelected, comp.IsRenovated, comp.IsDistressed)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert report comparable")
		}
	}
	return nil
}

func marshalReportDocs(report *cma.Report) (subject, overrides, estimate []byte, err error) {
	if subject, err = marshalJSON(report.Subject); err != nil {
		return nil, nil, nil, err
	}
	if overrides, err = marshalJSON(report.Overrides); err != nil {
		return nil, nil, nil, err
	}
	if report.Estimate != nil {
		if estimate, err = marshalJSON(report.Estimate); err != nil {
			return nil, nil, nil, err
		}
	}
	return subject, overrides, estimate, nil
}

// decimalArg converts *decimal.Decimal to a nullable bind parameter.
func decimalArg(v *decimal.Decimal) interface{} {
	if v == nil {
		return nil
	}
	return v.String()
}
