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
package enrich

import "fmt"

// ErrInsightGeneration represents a per-check insight failure: the
// model call errored or returned output that could not be parsed into
// the required shape. It never aborts processing of other checks.
type ErrInsightGeneration struct {
	CheckName string
	Err       error
}

func (e *ErrInsightGeneration) Error() string {
	return fmt.Sprintf("insight generation failed for check %s: %v", e.CheckName, e.Err)
}

func (e *ErrInsightGeneration) Unwrap() error { return e.Err }

// ErrFixSuggestion represents a per-check fix-suggestion failure, with
// the same isolation semantics as ErrInsightGeneration.
type ErrFixSuggestion struct {
	CheckName string
	Err       error
}

func (e *ErrFixSuggestion) Error() string {
	return fmt.Sprintf("fix suggestion failed for check %s: %v", e.CheckName, e.Err)
}

func (e *ErrFixSuggestion) Unwrap() error { return e.Err }

// ErrSuiteGeneration represents model output that could not be
// validated against the rule schema. Malformed output is never coerced
// into a best-effort suite.
type ErrSuiteGeneration struct {
	Msg string
	Err error
}

func (e *ErrSuiteGeneration) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("suite generation error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("suite generation error: %s", e.Msg)
}

func (e *ErrSuiteGeneration) Unwrap() error { return e.Err }
