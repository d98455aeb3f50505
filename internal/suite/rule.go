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
package suite

import (
	"fmt"

	"github.com/dataplatform-tools/data-quality-monitor/internal/dataset"
)

// Kind identifies a rule variant. The set is closed: unknown kinds are
// rejected when a suite is loaded, not when it is evaluated.
type Kind string

const (
	KindColumnsMatch    Kind = "columns_match"
	KindRowCountBetween Kind = "row_count_between"
	KindNotNull         Kind = "not_null"
	KindUnique          Kind = "unique"
	KindTypeOf          Kind = "type_of"
	KindValueBetween    Kind = "value_between"
	KindValueInSet      Kind = "value_in_set"
)

// ErrRuleDefinition represents a malformed rule definition in a suite
// document. It indicates a broken suite and is fatal, unlike a failing
// check, which is a normal negative result.
type ErrRuleDefinition struct {
	Msg string
	Err error
}

func (e *ErrRuleDefinition) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule definition error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("rule definition error: %s", e.Msg)
}

func (e *ErrRuleDefinition) Unwrap() error { return e.Err }

// Rule is a single declarative data-quality expectation. The concrete
// types below form the closed set of variants.
type Rule interface {
	// Kind returns the variant tag.
	Kind() Kind
	// CheckType returns the reporting name of the check.
	CheckType() string
	// Column returns the referenced column, or "" for table-level rules.
	Column() string
	// Tolerance returns the optional mostly fraction; 0 requires exact
	// conformance.
	Tolerance() float64
	// Validate rejects malformed parameters at suite-load time.
	Validate() error
}

func validateMostly(mostly float64) error {
	if mostly < 0 || mostly > 1 {
		return &ErrRuleDefinition{Msg: fmt.Sprintf("mostly must be within [0,1], got %v", mostly)}
	}
	return nil
}

// ColumnsMatch asserts the dataset's columns equal an ordered name list.
type ColumnsMatch struct {
	Columns []string `yaml:"columns"`
}

func (r ColumnsMatch) Kind() Kind         { return KindColumnsMatch }
func (r ColumnsMatch) CheckType() string  { return "expect_table_columns_to_match_ordered_list" }
func (r ColumnsMatch) Column() string     { return "" }
func (r ColumnsMatch) Tolerance() float64 { return 0 }
func (r ColumnsMatch) Validate() error {
	if len(r.Columns) == 0 {
		return &ErrRuleDefinition{Msg: "columns_match requires a non-empty columns list"}
	}
	return nil
}

// RowCountBetween asserts the row count lies within [Min, Max]. Either
// bound may be omitted.
type RowCountBetween struct {
	Min *int64 `yaml:"min,omitempty"`
	Max *int64 `yaml:"max,omitempty"`
}

func (r RowCountBetween) Kind() Kind         { return KindRowCountBetween }
func (r RowCountBetween) CheckType() string  { return "expect_table_row_count_to_be_between" }
func (r RowCountBetween) Column() string     { return "" }
func (r RowCountBetween) Tolerance() float64 { return 0 }
func (r RowCountBetween) Validate() error {
	if r.Min == nil && r.Max == nil {
		return &ErrRuleDefinition{Msg: "row_count_between requires at least one of min, max"}
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return &ErrRuleDefinition{Msg: fmt.Sprintf("row_count_between min %d exceeds max %d", *r.Min, *r.Max)}
	}
	return nil
}

// NotNull asserts a column's values are non-null, optionally with a
// mostly tolerance.
type NotNull struct {
	ColumnName string  `yaml:"column"`
	Mostly     float64 `yaml:"mostly,omitempty"`
}

func (r NotNull) Kind() Kind         { return KindNotNull }
func (r NotNull) CheckType() string  { return "expect_column_values_to_not_be_null" }
func (r NotNull) Column() string     { return r.ColumnName }
func (r NotNull) Tolerance() float64 { return r.Mostly }
func (r NotNull) Validate() error {
	if r.ColumnName == "" {
		return &ErrRuleDefinition{Msg: "not_null requires a column"}
	}
	return validateMostly(r.Mostly)
}

// Unique asserts a column's non-null values are distinct. Every row
// participating in a duplicated value counts as failing.
type Unique struct {
	ColumnName string  `yaml:"column"`
	Mostly     float64 `yaml:"mostly,omitempty"`
}

func (r Unique) Kind() Kind         { return KindUnique }
func (r Unique) CheckType() string  { return "expect_column_values_to_be_unique" }
func (r Unique) Column() string     { return r.ColumnName }
func (r Unique) Tolerance() float64 { return r.Mostly }
func (r Unique) Validate() error {
	if r.ColumnName == "" {
		return &ErrRuleDefinition{Msg: "unique requires a column"}
	}
	return validateMostly(r.Mostly)
}

// TypeOf asserts a column's non-null values conform to a logical type.
type TypeOf struct {
	ColumnName   string       `yaml:"column"`
	ExpectedType dataset.Type `yaml:"type"`
	Mostly       float64      `yaml:"mostly,omitempty"`
}

func (r TypeOf) Kind() Kind         { return KindTypeOf }
func (r TypeOf) CheckType() string  { return "expect_column_values_to_be_of_type" }
func (r TypeOf) Column() string     { return r.ColumnName }
func (r TypeOf) Tolerance() float64 { return r.Mostly }
func (r TypeOf) Validate() error {
	if r.ColumnName == "" {
		return &ErrRuleDefinition{Msg: "type_of requires a column"}
	}
	switch r.ExpectedType {
	case dataset.TypeString, dataset.TypeInteger, dataset.TypeFloat, dataset.TypeBoolean, dataset.TypeDatetime:
	default:
		return &ErrRuleDefinition{Msg: fmt.Sprintf("type_of has unknown type %q", r.ExpectedType)}
	}
	return validateMostly(r.Mostly)
}

// ValueBetween asserts a column's non-null numeric values lie within
// [Min, Max]. Either bound may be omitted.
type ValueBetween struct {
	ColumnName string   `yaml:"column"`
	Min        *float64 `yaml:"min,omitempty"`
	Max        *float64 `yaml:"max,omitempty"`
	Mostly     float64  `yaml:"mostly,omitempty"`
}

func (r ValueBetween) Kind() Kind         { return KindValueBetween }
func (r ValueBetween) CheckType() string  { return "expect_column_values_to_be_between" }
func (r ValueBetween) Column() string     { return r.ColumnName }
func (r ValueBetween) Tolerance() float64 { return r.Mostly }
func (r ValueBetween) Validate() error {
	if r.ColumnName == "" {
		return &ErrRuleDefinition{Msg: "value_between requires a column"}
	}
	if r.Min == nil && r.Max == nil {
		return &ErrRuleDefinition{Msg: "value_between requires at least one of min, max"}
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return &ErrRuleDefinition{Msg: fmt.Sprintf("value_between min %v exceeds max %v", *r.Min, *r.Max)}
	}
	return validateMostly(r.Mostly)
}

// ValueInSet asserts a column's non-null values belong to an allowed
// set, compared by their rendered string form.
type ValueInSet struct {
	ColumnName string   `yaml:"column"`
	Values     []string `yaml:"values"`
	Mostly     float64  `yaml:"mostly,omitempty"`
}

func (r ValueInSet) Kind() Kind         { return KindValueInSet }
func (r ValueInSet) CheckType() string  { return "expect_column_values_to_be_in_set" }
func (r ValueInSet) Column() string     { return r.ColumnName }
func (r ValueInSet) Tolerance() float64 { return r.Mostly }
func (r ValueInSet) Validate() error {
	if r.ColumnName == "" {
		return &ErrRuleDefinition{Msg: "value_in_set requires a column"}
	}
	if len(r.Values) == 0 {
		return &ErrRuleDefinition{Msg: "value_in_set requires a non-empty values list"}
	}
	return validateMostly(r.Mostly)
}
