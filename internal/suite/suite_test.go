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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataplatform-tools/data-quality-monitor/internal/dataset"
)

const sampleSuite = `
name: orders
version: 2
notes: baseline checks
rules:
  - kind: columns_match
    columns: [id, status, total]
  - kind: row_count_between
    min: 1
    max: 10000
  - kind: not_null
    column: id
  - kind: unique
    column: id
  - kind: type_of
    column: total
    type: float
  - kind: value_between
    column: total
    min: 0
    mostly: 0.95
  - kind: value_in_set
    column: status
    values: [open, closed]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleSuite))
	require.NoError(t, err)

	assert.Equal(t, "orders", s.Name)
	assert.Equal(t, 2, s.Version)
	assert.Equal(t, "baseline checks", s.Notes)
	require.Len(t, s.Rules, 7)

	cm, ok := s.Rules[0].(ColumnsMatch)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "status", "total"}, cm.Columns)

	rc, ok := s.Rules[1].(RowCountBetween)
	require.True(t, ok)
	require.NotNil(t, rc.Min)
	assert.Equal(t, int64(1), *rc.Min)

	to, ok := s.Rules[4].(TypeOf)
	require.True(t, ok)
	assert.Equal(t, dataset.TypeFloat, to.ExpectedType)

	vb, ok := s.Rules[5].(ValueBetween)
	require.True(t, ok)
	assert.Equal(t, 0.95, vb.Mostly)
	assert.Nil(t, vb.Max, "omitted bound stays open")
}

func TestParseDefaultsVersion(t *testing.T) {
	s, err := Parse([]byte("name: x\nrules:\n  - kind: not_null\n    column: id\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.Version)
}

func TestParseRejectsMalformedSuites(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name:    "unknown kind",
			doc:     "name: x\nrules:\n  - kind: expect_magic\n    column: id\n",
			wantMsg: "unknown rule kind",
		},
		{
			name:    "missing kind",
			doc:     "name: x\nrules:\n  - column: id\n",
			wantMsg: "rule has no kind",
		},
		{
			name:    "missing suite name",
			doc:     "rules:\n  - kind: not_null\n    column: id\n",
			wantMsg: "suite has no name",
		},
		{
			name:    "mostly above one",
			doc:     "name: x\nrules:\n  - kind: not_null\n    column: id\n    mostly: 1.5\n",
			wantMsg: "mostly must be within [0,1]",
		},
		{
			name:    "mostly below zero",
			doc:     "name: x\nrules:\n  - kind: unique\n    column: id\n    mostly: -0.1\n",
			wantMsg: "mostly must be within [0,1]",
		},
		{
			name:    "not_null without column",
			doc:     "name: x\nrules:\n  - kind: not_null\n",
			wantMsg: "requires a column",
		},
		{
			name:    "columns_match without columns",
			doc:     "name: x\nrules:\n  - kind: columns_match\n",
			wantMsg: "non-empty columns list",
		},
		{
			name:    "row_count_between without bounds",
			doc:     "name: x\nrules:\n  - kind: row_count_between\n",
			wantMsg: "at least one of min, max",
		},
		{
			name:    "value_between inverted bounds",
			doc:     "name: x\nrules:\n  - kind: value_between\n    column: total\n    min: 10\n    max: 1\n",
			wantMsg: "exceeds max",
		},
		{
			name:    "type_of with unknown type",
			doc:     "name: x\nrules:\n  - kind: type_of\n    column: id\n    type: decimal\n",
			wantMsg: "unknown type",
		},
		{
			name:    "value_in_set without values",
			doc:     "name: x\nrules:\n  - kind: value_in_set\n    column: status\n",
			wantMsg: "non-empty values list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			var defErr *ErrRuleDefinition
			assert.ErrorAs(t, err, &defErr)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	original, err := Parse([]byte(sampleSuite))
	require.NoError(t, err)

	data, err := Marshal(original)
	require.NoError(t, err)

	reparsed, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, original.Name, reparsed.Name)
	assert.Equal(t, original.Version, reparsed.Version)
	assert.Equal(t, original.Notes, reparsed.Notes)
	require.Equal(t, len(original.Rules), len(reparsed.Rules))
	for i := range original.Rules {
		assert.Equal(t, original.Rules[i], reparsed.Rules[i], "rule %d", i+1)
	}
}
