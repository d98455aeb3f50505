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
package dataset

import "time"

const profileSampleLimit = 5

// ColumnProfile summarises one column for suite auto-generation.
type ColumnProfile struct {
	Name          string   `json:"name"`
	Type          Type     `json:"type"`
	NullCount     int      `json:"null_count"`
	NullRate      float64  `json:"null_rate"`
	DistinctCount int      `json:"distinct_count"`
	Min           any      `json:"min,omitempty"`
	Max           any      `json:"max,omitempty"`
	SampleValues  []string `json:"sample_values,omitempty"`
}

// Profile computes per-column statistics: inferred type, null rate,
// cardinality, min/max for ordered types, and a handful of sample
// values.
func (d *Dataset) Profile() []ColumnProfile {
	profiles := make([]ColumnProfile, len(d.Columns))
	total := d.RowCount()

	for i, col := range d.Columns {
		p := ColumnProfile{Name: col.Name, Type: col.Type}
		distinct := make(map[string]struct{})

		for _, row := range d.Rows {
			v := row[i]
			if v == nil {
				p.NullCount++
				continue
			}
			key := FormatCell(v)
			if _, seen := distinct[key]; !seen {
				distinct[key] = struct{}{}
				if len(p.SampleValues) < profileSampleLimit {
					p.SampleValues = append(p.SampleValues, key)
				}
			}
			updateMinMax(&p, v)
		}

		p.DistinctCount = len(distinct)
		if total > 0 {
			p.NullRate = float64(p.NullCount) / float64(total)
		}
		profiles[i] = p
	}
	return profiles
}

// updateMinMax tracks min/max for ordered cell types. Mixed-type
// columns stop tracking rather than comparing across types.
func updateMinMax(p *ColumnProfile, v any) {
	switch val := v.(type) {
	case int64:
		if min, ok := p.Min.(int64); p.Min == nil || (ok && val < min) {
			p.Min = val
		}
		if max, ok := p.Max.(int64); p.Max == nil || (ok && val > max) {
			p.Max = val
		}
	case float64:
		if min, ok := p.Min.(float64); p.Min == nil || (ok && val < min) {
			p.Min = val
		}
		if max, ok := p.Max.(float64); p.Max == nil || (ok && val > max) {
			p.Max = val
		}
	case time.Time:
		if min, ok := p.Min.(time.Time); p.Min == nil || (ok && val.Before(min)) {
			p.Min = val
		}
		if max, ok := p.Max.(time.Time); p.Max == nil || (ok && val.After(max)) {
			p.Max = val
		}
	}
}
