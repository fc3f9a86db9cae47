package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommonFilter_Validate(t *testing.T) {
	allowed := []string{"donation_id", "synced_at"}

	require.NoError(t, (&CommonFilter{Field: "donation_id", Operator: CommonFilterOperatorIn, Values: []any{1, 2}}).Validate(allowed))
	require.NoError(t, (&CommonFilter{Field: "synced_at", Operator: CommonFilterOperatorDateRange, Values: []any{"2024-01-01", "2024-01-31"}}).Validate(allowed))

	require.Error(t, (&CommonFilter{Field: "status; drop table", Operator: CommonFilterOperatorEq, Values: []any{"x"}}).Validate(allowed))
	require.Error(t, (&CommonFilter{Field: "donation_id", Operator: "like", Values: []any{"x"}}).Validate(allowed))
	require.Error(t, (&CommonFilter{Field: "donation_id", Operator: CommonFilterOperatorEq}).Validate(allowed))
	require.Error(t, (&CommonFilter{Field: "donation_id", Operator: CommonFilterOperatorRange, Values: []any{1}}).Validate(allowed))
	require.Error(t, (&CommonFilter{Field: "synced_at", Operator: CommonFilterOperatorDateRange, Values: []any{"2024-01-01", "soon"}}).Validate(allowed))

	var nilFilter *CommonFilter
	require.Error(t, nilFilter.Validate(allowed))
}
