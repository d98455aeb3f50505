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

import "time"

// Statistics aggregates per-rule outcomes over one validation run.
// successful + unsuccessful == evaluated always holds.
type Statistics struct {
	EvaluatedExpectations    int     `json:"evaluated_expectations"`
	SuccessfulExpectations   int     `json:"successful_expectations"`
	UnsuccessfulExpectations int     `json:"unsuccessful_expectations"`
	SuccessPercent           float64 `json:"success_percent"`
}

// Outcome records the evaluation of a single rule.
type Outcome struct {
	CheckName         string  `json:"check_name"`
	CheckType         string  `json:"check_type"`
	Passed            bool    `json:"passed"`
	FailedRows        int     `json:"failed_rows"`
	FailurePercentage float64 `json:"failure_percentage"`
	ExpectedValue     any     `json:"expected_value"`
	ActualValue       any     `json:"actual_value"`
}

// FailedCheck is the failure record carried into insight and fix
// generation, derived from a failing Outcome.
type FailedCheck struct {
	CheckName         string  `json:"check_name"`
	CheckType         string  `json:"check_type"`
	FailedRows        int     `json:"failed_rows"`
	FailurePercentage float64 `json:"failure_percentage"`
	ExpectedValue     any     `json:"expected_value"`
	ActualValue       any     `json:"actual_value"`
}

// Result is produced once per (dataset, suite, timestamp) triple. It is
// write-once: re-running validation produces a new dated record.
type Result struct {
	DatasetName  string        `json:"dataset_name"`
	SuiteName    string        `json:"suite_name"`
	SuiteVersion int           `json:"suite_version"`
	RunID        string        `json:"run_id,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Success      bool          `json:"success"`
	Statistics   Statistics    `json:"statistics"`
	Results      []Outcome     `json:"results"`
	FailedChecks []FailedCheck `json:"failed_checks"`
}
