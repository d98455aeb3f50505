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

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/dataset"
	"github.com/dataplatform-tools/data-quality-monitor/internal/genai"
	"github.com/dataplatform-tools/data-quality-monitor/internal/suite"
)

// SuiteGenerator drafts a rule suite from a dataset's column profiles.
// The draft is a starting point for review, not a source of truth.
type SuiteGenerator struct {
	llm    genai.LLMClient
	retry  RetryOptions
	logger *zap.Logger
}

// NewSuiteGenerator creates a suite generator backed by the given model
// client.
func NewSuiteGenerator(llm genai.LLMClient, retry RetryOptions, logger *zap.Logger) *SuiteGenerator {
	return &SuiteGenerator{llm: llm, retry: retry, logger: logger}
}

// Generate profiles the dataset, asks the model for a rule suite, and
// validates the response through the same parser that loads
// hand-written suites. Output that fails schema validation is an error,
// never a partial suite.
func (g *SuiteGenerator) Generate(ctx context.Context, ds *dataset.Dataset, suiteName string) (*suite.Suite, error) {
	if ds == nil {
		return nil, &ErrSuiteGeneration{Msg: "dataset is nil"}
	}
	if len(ds.Columns) == 0 {
		return nil, &ErrSuiteGeneration{Msg: fmt.Sprintf("dataset %s has no columns to profile", ds.Name)}
	}

	prompt, err := suitePrompt(ds, suiteName)
	if err != nil {
		return nil, &ErrSuiteGeneration{Msg: "failed to build prompt", Err: err}
	}

	text, err := withRetry(ctx, g.retry, func(ctx context.Context) (string, error) {
		return g.llm.Complete(ctx, prompt)
	})
	if err != nil {
		return nil, &ErrSuiteGeneration{Msg: "model call failed", Err: err}
	}

	generated, err := suite.Parse([]byte(stripCodeFences(text)))
	if err != nil {
		return nil, &ErrSuiteGeneration{Msg: "model returned an invalid suite", Err: err}
	}
	generated.Name = suiteName
	if generated.Notes == "" {
		generated.Notes = fmt.Sprintf("Auto-generated from a profile of dataset %s. Review before use.", ds.Name)
	}

	g.logger.Info("suite generated",
		zap.String("dataset", ds.Name),
		zap.String("suite", suiteName),
		zap.Int("rules", len(generated.Rules)))
	return generated, nil
}

func suitePrompt(ds *dataset.Dataset, suiteName string) (string, error) {
	profiles, err := json.MarshalIndent(ds.Profile(), "", "  ")
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You are a data quality engineer. Draft a validation rule suite for dataset %q based on its column profiles.

Column profiles (%d rows total):
%s

Respond with YAML only, no prose and no code fences, in this schema:

name: %s
version: 1
rules:
  - kind: columns_match
    columns: [col_a, col_b]
  - kind: row_count_between
    min: 1
  - kind: not_null
    column: col_a
    mostly: 0.99
  - kind: unique
    column: col_a
  - kind: type_of
    column: col_b
    type: integer
  - kind: value_between
    column: col_b
    min: 0
    max: 100
  - kind: value_in_set
    column: col_c
    values: [active, inactive]

Rules:
- Use only the rule kinds shown above. The valid types for type_of are string, integer, float, boolean, datetime.
- Always include a columns_match rule listing every column in order, and a row_count_between rule with a reasonable minimum.
- Add not_null for columns with a low null rate, using mostly when the profile shows some nulls.
- Add value_between for numeric columns using the observed min and max with sensible slack.
- Add value_in_set only for low-cardinality string columns, using the sampled values.
- mostly must be between 0 and 1.`, ds.Name, ds.RowCount(), profiles, suiteName), nil
}
