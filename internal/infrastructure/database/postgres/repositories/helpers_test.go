package repositories

import (
	"database/sql/driver"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// driverValue keeps sqlmock row builders readable.
type driverValue = driver.Value

func newDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
