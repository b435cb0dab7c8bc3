package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	appflip "github.com/propsignal/propsignal/internal/application/flip"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// FlipRepository implements the flip analysis persistence contract.  Inputs,
// financials and the composite score are stored as jsonb documents; the
// disqualified flag is broken out into a column for the list filter.
type FlipRepository struct {
	db     queryExecutor
	logger logging.Logger
}

// NewFlipRepository constructs a ready-to-use FlipRepository.
func NewFlipRepository(db queryExecutor, logger logging.Logger) *FlipRepository {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FlipRepository{db: db, logger: logger.Named("flip_repo")}
}

const analysisColumns = `id, property_id, report_id, inputs, financials, score, created_by, created_at, updated_at`

// Create persists a new analysis.
func (r *FlipRepository) Create(ctx context.Context, a *appflip.Analysis) error {
	inputs, financials, score, err := marshalAnalysisDocs(a)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO flip_analyses (id, property_id, report_id, inputs, financials, score, disqualified, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		string(a.ID), string(a.PropertyID), string(a.ReportID),
		inputs, financials, score, isDisqualified(a),
		string(a.CreatedBy), a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert flip analysis")
	}
	return nil
}

// GetByID loads a single analysis.
func (r *FlipRepository) GetByID(ctx context.Context, id common.ID) (*appflip.Analysis, error) {
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT %s FROM flip_analyses WHERE id = $1`, analysisColumns), string(id)))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeAnalysisNotFound, fmt.Sprintf("flip analysis %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load flip analysis")
	}
	return a, nil
}

// List pages through analyses, newest first.
func (r *FlipRepository) List(ctx context.Context, filter appflip.ListFilter) ([]*appflip.Analysis, int64, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.PropertyID != "" {
		where = append(where, "property_id = "+arg(string(filter.PropertyID)))
	}
	if filter.CreatedBy != "" {
		where = append(where, "created_by = "+arg(string(filter.CreatedBy)))
	}
	if filter.DisqualifiedOnly {
		where = append(where, "disqualified = TRUE")
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM flip_analyses WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count flip analyses")
	}

	filter.Pagination.Normalize()
	query := fmt.Sprintf(`SELECT %s FROM flip_analyses WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		analysisColumns, cond, arg(filter.Pagination.PageSize), arg(filter.Pagination.Offset()))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list flip analyses")
	}
	defer rows.Close()

	var out []*appflip.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan flip analysis row")
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// Update rewrites the analysis documents.
func (r *FlipRepository) Update(ctx context.Context, a *appflip.Analysis) error {
	inputs, financials, score, err := marshalAnalysisDocs(a)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE flip_analyses SET inputs = $2, financials = $3, score = $4, disqualified = $5, updated_at = $6
WHERE id = $1`,
		string(a.ID), inputs, financials, score, isDisqualified(a), a.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update flip analysis")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeAnalysisNotFound, fmt.Sprintf("flip analysis %s not found", a.ID))
	}
	return nil
}

// Delete removes an analysis.
func (r *FlipRepository) Delete(ctx context.Context, id common.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM flip_analyses WHERE id = $1`, string(id))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete flip analysis")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeAnalysisNotFound, fmt.Sprintf("flip analysis %s not found", id))
	}
	return nil
}

func scanAnalysis(sc scanner) (*appflip.Analysis, error) {
	var (
		a                            appflip.Analysis
		id, propID, reportID         string
		createdBy                    string
		inputs, financials, scoreRaw []byte
	)
	err := sc.Scan(&id, &propID, &reportID, &inputs, &financials, &scoreRaw, &createdBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ID = common.ID(id)
	a.PropertyID = common.ID(propID)
	a.ReportID = common.ID(reportID)
	a.CreatedBy = common.UserID(createdBy)
	if err := unmarshalJSON(inputs, &a.Inputs); err != nil {
		return nil, err
	}
	if len(financials) > 0 {
		var fm domainflip.FinancialModel
		if err := unmarshalJSON(financials, &fm); err != nil {
			return nil, err
		}
		a.Financials = &fm
	}
	if len(scoreRaw) > 0 {
		var cs domainflip.CompositeScore
		if err := unmarshalJSON(scoreRaw, &cs); err != nil {
			return nil, err
		}
		a.Score = &cs
	}
	return &a, nil
}

func marshalAnalysisDocs(a *appflip.Analysis) (inputs, financials, score []byte, err error) {
	if inputs, err = marshalJSON(a.Inputs); err != nil {
		return nil, nil, nil, err
	}
	if a.Financials != nil {
		if financials, err = marshalJSON(a.Financials); err != nil {
			return nil, nil, nil, err
		}
	}
	if a.Score != nil {
		if score, err = marshalJSON(a.Score); err != nil {
			return nil, nil, nil, err
		}
	}
	return inputs, financials, score, nil
}

func isDisqualified(a *appflip.Analysis) bool {
	return a.Score != nil && a.Score.Disqualified
}
