package property

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/pkg/types/common"
)

// SearchFilter narrows property inventory searches.
type SearchFilter struct {
	City         string
	Zip          string
	PropertyType *Type
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Pagination   common.Pagination
}

// PoolQuery describes the comparable candidate pool to load for a valuation
// run: everything sold (or actively listed) in the subject's market area
// inside the date window.  The exact radius filtering happens in the engine;
// the repository only applies the bounding-box prefilter and date window.
type PoolQuery struct {
	Center        common.LatLng
	City          string
	RadiusMiles   float64
	SoldAfter     time.Time
	PropertyType  *Type
	IncludeActive bool
	Limit         int
}

// Repository is the persistence contract for the property inventory.
type Repository interface {
	// GetByID loads a single subject property.
	GetByID(ctx context.Context, id common.ID) (*SubjectProperty, error)

	// Search pages through the inventory.
	Search(ctx context.Context, filter SearchFilter) ([]*SubjectProperty, int64, error)

	// CandidatePool returns the raw comparable candidates for a market area
	// and date window.  Candidates are returned unranked; selection, distance
	// filtering, and ordering are the engine's job.
	CandidatePool(ctx context.Context, q PoolQuery) ([]*ComparableCandidate, error)

	// Upsert stores a property record from an inventory feed.
	Upsert(ctx context.Context, p *SubjectProperty) error
}
