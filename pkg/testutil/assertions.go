package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequireNoError fails the test immediately if err is not nil.
func RequireNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.NoError(t, err, msgAndArgs...)
}

// AssertAmount compares money by value, so 150 and 150.00 are equal.
func AssertAmount(t *testing.T, want string, got decimal.Decimal) bool {
	t.Helper()
	w := decimal.RequireFromString(want)
	if w.Equal(got) {
		return true
	}
	return assert.Failf(t, "amounts differ", "want %s, got %s", w.StringFixed(2), got.StringFixed(2))
}
