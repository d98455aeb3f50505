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
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/dataset"
	"github.com/dataplatform-tools/data-quality-monitor/internal/suite"
)

// actualColumnMissing is the observed value reported when a rule
// references a column the dataset does not have. A schema-shape problem
// is a reportable data-quality failure, not a pipeline fault.
const actualColumnMissing = "column missing"

// Engine evaluates rule suites against datasets.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a validation engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Evaluate runs every rule of the suite against the dataset, in
// declared order, without short-circuiting on failure, and aggregates
// the outcomes. Rules are independently evaluable; their order affects
// reporting only.
func (e *Engine) Evaluate(ds *dataset.Dataset, s *suite.Suite) (*Result, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset is nil")
	}
	if s == nil {
		return nil, fmt.Errorf("suite is nil")
	}

	result := &Result{
		DatasetName:  ds.Name,
		SuiteName:    s.Name,
		SuiteVersion: s.Version,
		Timestamp:    time.Now().UTC(),
		Results:      make([]Outcome, 0, len(s.Rules)),
		FailedChecks: []FailedCheck{},
	}

	nameCounts := make(map[string]int)
	for _, rule := range s.Rules {
		// Suites are validated at load time; a malformed rule reaching
		// here indicates a broken suite, which is fatal.
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("suite %s holds a malformed rule: %w", s.Name, err)
		}

		outcome := e.evaluateRule(ds, rule)
		outcome.CheckName = uniqueCheckName(nameCounts, rule)
		result.Results = append(result.Results, outcome)

		if outcome.Passed {
			result.Statistics.SuccessfulExpectations++
		} else {
			result.Statistics.UnsuccessfulExpectations++
			result.FailedChecks = append(result.FailedChecks, FailedCheck{
				CheckName:         outcome.CheckName,
				CheckType:         outcome.CheckType,
				FailedRows:        outcome.FailedRows,
				FailurePercentage: outcome.FailurePercentage,
				ExpectedValue:     outcome.ExpectedValue,
				ActualValue:       outcome.ActualValue,
			})
		}
	}

	stats := &result.Statistics
	stats.EvaluatedExpectations = len(s.Rules)
	if stats.EvaluatedExpectations > 0 {
		stats.SuccessPercent = float64(stats.SuccessfulExpectations) / float64(stats.EvaluatedExpectations) * 100
	} else {
		stats.SuccessPercent = 100
	}
	result.Success = stats.UnsuccessfulExpectations == 0

	e.logger.Info("validation completed",
		zap.String("dataset", ds.Name),
		zap.String("suite", s.Name),
		zap.Bool("success", result.Success),
		zap.Int("evaluated", stats.EvaluatedExpectations),
		zap.Int("failed", stats.UnsuccessfulExpectations))
	return result, nil
}

// uniqueCheckName derives a stable reporting name for a rule,
// suffixing repeats so every outcome keys distinctly.
func uniqueCheckName(counts map[string]int, rule suite.Rule) string {
	name := rule.CheckType()
	if col := rule.Column(); col != "" {
		name = name + "." + col
	}
	counts[name]++
	if n := counts[name]; n > 1 {
		return fmt.Sprintf("%s#%d", name, n)
	}
	return name
}

func (e *Engine) evaluateRule(ds *dataset.Dataset, rule suite.Rule) Outcome {
	outcome := Outcome{CheckType: rule.CheckType()}

	switch r := rule.(type) {
	case suite.ColumnsMatch:
		actual := ds.ColumnNames()
		outcome.Passed = slices.Equal(r.Columns, actual)
		outcome.ExpectedValue = r.Columns
		outcome.ActualValue = actual
		return outcome

	case suite.RowCountBetween:
		count := int64(ds.RowCount())
		outcome.Passed = (r.Min == nil || count >= *r.Min) && (r.Max == nil || count <= *r.Max)
		outcome.ExpectedValue = describeBounds(r.Min, r.Max, "rows")
		outcome.ActualValue = count
		return outcome
	}

	// Column rules: resolve the referenced column first. An absent
	// column fails the rule instead of raising.
	colIdx, ok := ds.ColumnIndex(rule.Column())
	if !ok {
		outcome.Passed = false
		outcome.ExpectedValue = fmt.Sprintf("column %q present", rule.Column())
		outcome.ActualValue = actualColumnMissing
		return outcome
	}

	total := ds.RowCount()
	var failedRows int
	switch r := rule.(type) {
	case suite.NotNull:
		for _, row := range ds.Rows {
			if row[colIdx] == nil {
				failedRows++
			}
		}
		outcome.ExpectedValue = describeTolerance("non-null values", r.Mostly)
		outcome.ActualValue = fmt.Sprintf("%d null values in %d rows", failedRows, total)

	case suite.Unique:
		counts := make(map[string]int)
		for _, row := range ds.Rows {
			if v := row[colIdx]; v != nil {
				counts[dataset.FormatCell(v)]++
			}
		}
		duplicated := 0
		for _, n := range counts {
			if n > 1 {
				// Every occurrence of a duplicated value fails.
				failedRows += n
				duplicated++
			}
		}
		outcome.ExpectedValue = describeTolerance("unique values", r.Mostly)
		outcome.ActualValue = fmt.Sprintf("%d duplicated values across %d rows", duplicated, failedRows)

	case suite.TypeOf:
		for _, row := range ds.Rows {
			v := row[colIdx]
			if v == nil {
				continue
			}
			if !cellConformsTo(v, r.ExpectedType) {
				failedRows++
			}
		}
		outcome.ExpectedValue = describeTolerance(fmt.Sprintf("values of type %s", r.ExpectedType), r.Mostly)
		outcome.ActualValue = fmt.Sprintf("column type %s, %d nonconforming values", ds.Columns[colIdx].Type, failedRows)

	case suite.ValueBetween:
		for _, row := range ds.Rows {
			v := row[colIdx]
			if v == nil {
				continue
			}
			num, numeric := asFloat(v)
			if !numeric ||
				(r.Min != nil && num < *r.Min) ||
				(r.Max != nil && num > *r.Max) {
				failedRows++
			}
		}
		outcome.ExpectedValue = describeTolerance(describeBounds64(r.Min, r.Max, "values"), r.Mostly)
		outcome.ActualValue = fmt.Sprintf("%d values out of range", failedRows)

	case suite.ValueInSet:
		allowed := make(map[string]bool, len(r.Values))
		for _, v := range r.Values {
			allowed[v] = true
		}
		for _, row := range ds.Rows {
			v := row[colIdx]
			if v == nil {
				continue
			}
			if !allowed[dataset.FormatCell(v)] {
				failedRows++
			}
		}
		outcome.ExpectedValue = describeTolerance(fmt.Sprintf("values in set %v", r.Values), r.Mostly)
		outcome.ActualValue = fmt.Sprintf("%d values outside the allowed set", failedRows)
	}

	outcome.FailedRows = failedRows
	if total > 0 {
		outcome.FailurePercentage = float64(failedRows) / float64(total) * 100
	}
	outcome.Passed = rowRulePasses(failedRows, total, rule.Tolerance())
	return outcome
}

// rowRulePasses applies the mostly tolerance: with a tolerance, the
// rule passes when the conforming fraction is at least the tolerance;
// without one, it requires exact conformance. An empty dataset conforms
// vacuously.
func rowRulePasses(failedRows, total int, mostly float64) bool {
	if total == 0 {
		return true
	}
	if mostly > 0 {
		conforming := float64(total-failedRows) / float64(total)
		return conforming >= mostly
	}
	return failedRows == 0
}

// cellConformsTo reports whether a cell satisfies an expected logical
// type. Integers satisfy a float expectation, not vice versa.
func cellConformsTo(v any, expected dataset.Type) bool {
	actual := dataset.CellType(v)
	if actual == expected {
		return true
	}
	return expected == dataset.TypeFloat && actual == dataset.TypeInteger
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func describeBounds(min, max *int64, noun string) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("between %d and %d %s", *min, *max, noun)
	case min != nil:
		return fmt.Sprintf("at least %d %s", *min, noun)
	default:
		return fmt.Sprintf("at most %d %s", *max, noun)
	}
}

func describeBounds64(min, max *float64, noun string) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("%s between %v and %v", noun, *min, *max)
	case min != nil:
		return fmt.Sprintf("%s at least %v", noun, *min)
	default:
		return fmt.Sprintf("%s at most %v", noun, *max)
	}
}

func describeTolerance(expectation string, mostly float64) string {
	if mostly > 0 {
		return fmt.Sprintf("%s (mostly >= %v)", expectation, mostly)
	}
	return expectation
}
