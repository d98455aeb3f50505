/*
 * Copyright 2025 The Data Quality Monitor Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package validate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/dataset"
	"github.com/dataplatform-tools/data-quality-monitor/internal/suite"
)

func newEngine() *Engine {
	return NewEngine(zap.NewNop())
}

func ordersDataset() *dataset.Dataset {
	return &dataset.Dataset{
		Name: "orders",
		Columns: []dataset.Column{
			{Name: "id", Type: dataset.TypeInteger},
			{Name: "status", Type: dataset.TypeString},
			{Name: "total", Type: dataset.TypeFloat},
		},
		Rows: [][]any{
			{int64(1), "open", 10.5},
			{int64(2), "closed", 20.0},
			{int64(3), "open", 7.25},
		},
	}
}

func int64p(v int64) *int64       { return &v }
func float64p(v float64) *float64 { return &v }

func TestEvaluateAllPassing(t *testing.T) {
	s := &suite.Suite{
		Name:    "orders",
		Version: 1,
		Rules: []suite.Rule{
			suite.ColumnsMatch{Columns: []string{"id", "status", "total"}},
			suite.RowCountBetween{Min: int64p(1), Max: int64p(100)},
			suite.NotNull{ColumnName: "id"},
			suite.Unique{ColumnName: "id"},
			suite.TypeOf{ColumnName: "total", ExpectedType: dataset.TypeFloat},
			suite.ValueBetween{ColumnName: "total", Min: float64p(0)},
			suite.ValueInSet{ColumnName: "status", Values: []string{"open", "closed"}},
		},
	}

	result, err := newEngine().Evaluate(ordersDataset(), s)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, len(s.Rules), result.Statistics.EvaluatedExpectations)
	assert.Equal(t, len(s.Rules), result.Statistics.SuccessfulExpectations)
	assert.Equal(t, 0, result.Statistics.UnsuccessfulExpectations)
	assert.Equal(t, 100.0, result.Statistics.SuccessPercent)
	assert.Empty(t, result.FailedChecks)
	assert.Len(t, result.Results, len(s.Rules))
}

func TestEvaluateStatisticsAddUp(t *testing.T) {
	s := &suite.Suite{
		Name: "orders",
		Rules: []suite.Rule{
			suite.NotNull{ColumnName: "id"},
			suite.ValueInSet{ColumnName: "status", Values: []string{"open"}},
			suite.RowCountBetween{Min: int64p(100)},
		},
	}

	result, err := newEngine().Evaluate(ordersDataset(), s)
	require.NoError(t, err)

	stats := result.Statistics
	assert.Equal(t, 3, stats.EvaluatedExpectations)
	assert.Equal(t, stats.EvaluatedExpectations, stats.SuccessfulExpectations+stats.UnsuccessfulExpectations)
	assert.False(t, result.Success)
	assert.Len(t, result.FailedChecks, stats.UnsuccessfulExpectations)
	assert.InDelta(t, 100.0/3.0, stats.SuccessPercent, 1e-9)
}

func TestEvaluateDoesNotShortCircuit(t *testing.T) {
	s := &suite.Suite{
		Name: "orders",
		Rules: []suite.Rule{
			suite.ColumnsMatch{Columns: []string{"wrong"}},
			suite.NotNull{ColumnName: "id"},
		},
	}

	result, err := newEngine().Evaluate(ordersDataset(), s)
	require.NoError(t, err)

	require.Len(t, result.Results, 2)
	assert.False(t, result.Results[0].Passed)
	assert.True(t, result.Results[1].Passed, "later rules still run after a failure")
}

func TestEvaluateIdempotent(t *testing.T) {
	s := &suite.Suite{
		Name: "orders",
		Rules: []suite.Rule{
			suite.NotNull{ColumnName: "id"},
			suite.ValueInSet{ColumnName: "status", Values: []string{"open"}},
		},
	}

	engine := newEngine()
	first, err := engine.Evaluate(ordersDataset(), s)
	require.NoError(t, err)
	second, err := engine.Evaluate(ordersDataset(), s)
	require.NoError(t, err)

	assert.Equal(t, first.Statistics, second.Statistics)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, first.FailedChecks, second.FailedChecks)
}

func TestEvaluateMissingColumnFailsCheck(t *testing.T) {
	s := &suite.Suite{
		Name:  "orders",
		Rules: []suite.Rule{suite.NotNull{ColumnName: "nonexistent"}},
	}

	result, err := newEngine().Evaluate(ordersDataset(), s)
	require.NoError(t, err, "an absent column is a failed check, not an engine error")

	require.Len(t, result.FailedChecks, 1)
	assert.Equal(t, "column missing", result.FailedChecks[0].ActualValue)
}

func TestEvaluateMalformedRuleIsFatal(t *testing.T) {
	s := &suite.Suite{
		Name:  "orders",
		Rules: []suite.Rule{suite.NotNull{ColumnName: "id", Mostly: 2}},
	}

	_, err := newEngine().Evaluate(ordersDataset(), s)
	require.Error(t, err)

	var defErr *suite.ErrRuleDefinition
	assert.ErrorAs(t, err, &defErr)
}

func TestEvaluateNilArguments(t *testing.T) {
	engine := newEngine()
	_, err := engine.Evaluate(nil, &suite.Suite{Name: "x"})
	assert.Error(t, err)
	_, err = engine.Evaluate(ordersDataset(), nil)
	assert.Error(t, err)
}

// nullableDataset builds a 100-row single-column dataset with the given
// number of nulls.
func nullableDataset(nulls int) *dataset.Dataset {
	rows := make([][]any, 100)
	for i := range rows {
		if i < nulls {
			rows[i] = []any{nil}
		} else {
			rows[i] = []any{fmt.Sprintf("v%d", i)}
		}
	}
	return &dataset.Dataset{
		Name:    "nullable",
		Columns: []dataset.Column{{Name: "c", Type: dataset.TypeString}},
		Rows:    rows,
	}
}

func TestMostlyToleranceBoundary(t *testing.T) {
	s := &suite.Suite{
		Name:  "nullable",
		Rules: []suite.Rule{suite.NotNull{ColumnName: "c", Mostly: 0.99}},
	}

	// 1 null in 100 rows: conforming fraction is exactly 0.99, passes.
	result, err := newEngine().Evaluate(nullableDataset(1), s)
	require.NoError(t, err)
	assert.True(t, result.Success)

	// 2 nulls in 100 rows: 0.98 < 0.99, fails.
	result, err = newEngine().Evaluate(nullableDataset(2), s)
	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.FailedChecks, 1)
	assert.Equal(t, 2, result.FailedChecks[0].FailedRows)
	assert.Equal(t, 2.0, result.FailedChecks[0].FailurePercentage)
}

func TestMostlyZeroRequiresExactConformance(t *testing.T) {
	s := &suite.Suite{
		Name:  "nullable",
		Rules: []suite.Rule{suite.NotNull{ColumnName: "c"}},
	}

	result, err := newEngine().Evaluate(nullableDataset(1), s)
	require.NoError(t, err)
	assert.False(t, result.Success, "without mostly a single failing row fails the check")
}

func TestEmptyDatasetRowRulesPassVacuously(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "empty",
		Columns: []dataset.Column{{Name: "c", Type: dataset.TypeString}},
	}
	s := &suite.Suite{
		Name: "empty",
		Rules: []suite.Rule{
			suite.NotNull{ColumnName: "c"},
			suite.Unique{ColumnName: "c"},
			suite.ValueInSet{ColumnName: "c", Values: []string{"x"}},
		},
	}

	result, err := newEngine().Evaluate(ds, s)
	require.NoError(t, err)
	assert.True(t, result.Success)
	for _, outcome := range result.Results {
		assert.Equal(t, 0.0, outcome.FailurePercentage)
	}
}

func TestEvaluateEmptySuite(t *testing.T) {
	result, err := newEngine().Evaluate(ordersDataset(), &suite.Suite{Name: "empty"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.Statistics.EvaluatedExpectations)
	assert.Equal(t, 100.0, result.Statistics.SuccessPercent)
}

func TestUniqueCountsEveryDuplicatedRow(t *testing.T) {
	rows := make([][]any, 10)
	for i := range rows {
		rows[i] = []any{fmt.Sprintf("v%d", i)}
	}
	rows[7][0] = "v3" // one duplicated value occupying two rows

	ds := &dataset.Dataset{
		Name:    "dups",
		Columns: []dataset.Column{{Name: "c", Type: dataset.TypeString}},
		Rows:    rows,
	}
	s := &suite.Suite{
		Name:  "dups",
		Rules: []suite.Rule{suite.Unique{ColumnName: "c"}},
	}

	result, err := newEngine().Evaluate(ds, s)
	require.NoError(t, err)

	require.Len(t, result.FailedChecks, 1)
	assert.Equal(t, 2, result.FailedChecks[0].FailedRows)
	assert.Equal(t, 20.0, result.FailedChecks[0].FailurePercentage)
}

func TestUniqueIgnoresNulls(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "dups",
		Columns: []dataset.Column{{Name: "c", Type: dataset.TypeString}},
		Rows:    [][]any{{nil}, {nil}, {"a"}},
	}
	s := &suite.Suite{
		Name:  "dups",
		Rules: []suite.Rule{suite.Unique{ColumnName: "c"}},
	}

	result, err := newEngine().Evaluate(ds, s)
	require.NoError(t, err)
	assert.True(t, result.Success, "nulls do not count as duplicates")
}

func TestTypeOfIntegerSatisfiesFloat(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "nums",
		Columns: []dataset.Column{{Name: "n", Type: dataset.TypeInteger}},
		Rows:    [][]any{{int64(1)}, {int64(2)}},
	}

	tests := []struct {
		name     string
		expected dataset.Type
		wantPass bool
	}{
		{"integer matches integer", dataset.TypeInteger, true},
		{"integer satisfies float", dataset.TypeFloat, true},
		{"integer is not string", dataset.TypeString, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &suite.Suite{
				Name:  "nums",
				Rules: []suite.Rule{suite.TypeOf{ColumnName: "n", ExpectedType: tt.expected}},
			}
			result, err := newEngine().Evaluate(ds, s)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPass, result.Success)
		})
	}
}

func TestValueBetweenNonNumericFails(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "mixed",
		Columns: []dataset.Column{{Name: "v", Type: dataset.TypeUnknown}},
		Rows:    [][]any{{int64(5)}, {"abc"}, {nil}},
	}
	s := &suite.Suite{
		Name:  "mixed",
		Rules: []suite.Rule{suite.ValueBetween{ColumnName: "v", Min: float64p(0), Max: float64p(10)}},
	}

	result, err := newEngine().Evaluate(ds, s)
	require.NoError(t, err)

	require.Len(t, result.FailedChecks, 1)
	assert.Equal(t, 1, result.FailedChecks[0].FailedRows, "non-numeric fails, null is skipped")
}

func TestCheckNamesAreUnique(t *testing.T) {
	s := &suite.Suite{
		Name: "orders",
		Rules: []suite.Rule{
			suite.NotNull{ColumnName: "id"},
			suite.NotNull{ColumnName: "id", Mostly: 0.5},
			suite.NotNull{ColumnName: "status"},
		},
	}

	result, err := newEngine().Evaluate(ordersDataset(), s)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, outcome := range result.Results {
		assert.False(t, seen[outcome.CheckName], "duplicate check name %s", outcome.CheckName)
		seen[outcome.CheckName] = true
	}
	assert.Contains(t, seen, "expect_column_values_to_not_be_null.id")
	assert.Contains(t, seen, "expect_column_values_to_not_be_null.id#2")
}

func TestRowCountBetweenBounds(t *testing.T) {
	tests := []struct {
		name     string
		min, max *int64
		wantPass bool
	}{
		{"within bounds", int64p(1), int64p(5), true},
		{"at lower bound", int64p(3), nil, true},
		{"at upper bound", nil, int64p(3), true},
		{"below min", int64p(4), nil, false},
		{"above max", nil, int64p(2), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &suite.Suite{
				Name:  "orders",
				Rules: []suite.Rule{suite.RowCountBetween{Min: tt.min, Max: tt.max}},
			}
			result, err := newEngine().Evaluate(ordersDataset(), s)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPass, result.Success)
		})
	}
}
