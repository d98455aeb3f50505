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
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/genai"
	"github.com/dataplatform-tools/data-quality-monitor/internal/validate"
)

// fakeLLM answers prompts through a caller-supplied function and counts
// invocations.
type fakeLLM struct {
	mu      sync.Mutex
	calls   int
	respond func(prompt string) (string, error)
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.respond(prompt)
}

func (f *fakeLLM) Close() error { return nil }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func fastRetry() RetryOptions {
	return RetryOptions{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

const validInsightJSON = `{
	"issue_description": "id column has null values",
	"impact_level": "high",
	"business_impact": "downstream joins drop rows",
	"possible_causes": ["upstream schema change"],
	"recommended_actions": ["add a not-null constraint"]
}`

const validFixJSON = `{
	"fix_approach": "backfill ids from the source system",
	"rationale": "ids exist upstream",
	"confidence": "high",
	"implementation": "UPDATE orders SET id = ...",
	"alternative_approaches": ["drop affected rows"]
}`

func failedResult(checkNames ...string) *validate.Result {
	res := &validate.Result{
		DatasetName: "orders",
		SuiteName:   "orders",
		Timestamp:   time.Now().UTC(),
	}
	for _, name := range checkNames {
		res.FailedChecks = append(res.FailedChecks, validate.FailedCheck{
			CheckName:  name,
			CheckType:  "expect_column_values_to_not_be_null",
			FailedRows: 3,
		})
		res.Statistics.UnsuccessfulExpectations++
	}
	res.Statistics.EvaluatedExpectations = len(checkNames)
	res.Success = len(checkNames) == 0
	return res
}

func TestInsightGeneratorPassingResultSkipsModel(t *testing.T) {
	llm := &fakeLLM{respond: func(string) (string, error) {
		t.Fatal("model must not be called for a passing result")
		return "", nil
	}}

	gen := NewInsightGenerator(llm, fastRetry(), zap.NewNop())
	insights, failed := gen.Generate(context.Background(), failedResult())

	assert.Empty(t, insights)
	assert.Empty(t, failed)
	assert.Equal(t, 0, llm.callCount())
}

func TestInsightGeneratorIsolatesFailures(t *testing.T) {
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		if strings.Contains(prompt, "check_b") {
			return "the model rambled without JSON", nil
		}
		return validInsightJSON, nil
	}}

	gen := NewInsightGenerator(llm, fastRetry(), zap.NewNop())
	insights, failed := gen.Generate(context.Background(), failedResult("check_a", "check_b", "check_c"))

	assert.Len(t, insights, 2)
	assert.Contains(t, insights, "check_a")
	assert.Contains(t, insights, "check_c")
	assert.Equal(t, []string{"check_b"}, failed)
	assert.Equal(t, "high", insights["check_a"].ImpactLevel)
}

func TestInsightGeneratorAcceptsFencedJSON(t *testing.T) {
	llm := &fakeLLM{respond: func(string) (string, error) {
		return "```json\n" + validInsightJSON + "\n```", nil
	}}

	gen := NewInsightGenerator(llm, fastRetry(), zap.NewNop())
	insights, failed := gen.Generate(context.Background(), failedResult("check_a"))

	require.Empty(t, failed)
	require.Contains(t, insights, "check_a")
	assert.Equal(t, "id column has null values", insights["check_a"].IssueDescription)
}

func TestInsightGeneratorRetriesTimeouts(t *testing.T) {
	var attempts int
	var mu sync.Mutex
	llm := &fakeLLM{respond: func(string) (string, error) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 3 {
			return "", &genai.ErrModelTimeout{Msg: "model x", Err: context.DeadlineExceeded}
		}
		return validInsightJSON, nil
	}}

	gen := NewInsightGenerator(llm, fastRetry(), zap.NewNop())
	insights, failed := gen.Generate(context.Background(), failedResult("check_a"))

	assert.Empty(t, failed)
	assert.Len(t, insights, 1)
	assert.Equal(t, 3, llm.callCount())
}

func TestInsightGeneratorDoesNotRetryHardErrors(t *testing.T) {
	llm := &fakeLLM{respond: func(string) (string, error) {
		return "", fmt.Errorf("invalid api key")
	}}

	gen := NewInsightGenerator(llm, fastRetry(), zap.NewNop())
	insights, failed := gen.Generate(context.Background(), failedResult("check_a"))

	assert.Empty(t, insights)
	assert.Equal(t, []string{"check_a"}, failed)
	assert.Equal(t, 1, llm.callCount(), "hard errors are not retried")
}

func TestParseInsight(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{
			name: "impact level is normalized",
			text: `{"issue_description":"x","impact_level":"HIGH"}`,
		},
		{
			name:    "invalid impact level",
			text:    `{"issue_description":"x","impact_level":"catastrophic"}`,
			wantErr: "invalid impact_level",
		},
		{
			name:    "missing description",
			text:    `{"impact_level":"low"}`,
			wantErr: "missing issue_description",
		},
		{
			name:    "no JSON at all",
			text:    "I could not analyze this.",
			wantErr: "no JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insight, err := parseInsight(tt.text)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "high", insight.ImpactLevel)
		})
	}
}

func TestFixSuggestorUsesInsightContext(t *testing.T) {
	var sawAnalysis bool
	var mu sync.Mutex
	llm := &fakeLLM{respond: func(prompt string) (string, error) {
		mu.Lock()
		if strings.Contains(prompt, "Prior analysis") {
			sawAnalysis = true
		}
		mu.Unlock()
		return validFixJSON, nil
	}}

	insights := map[string]Insight{
		"check_a": {IssueDescription: "nulls", ImpactLevel: ImpactHigh},
	}

	sug := NewFixSuggestor(llm, fastRetry(), zap.NewNop())
	fixes, failed := sug.Suggest(context.Background(), failedResult("check_a"), insights)

	assert.Empty(t, failed)
	require.Contains(t, fixes, "check_a")
	assert.Equal(t, "backfill ids from the source system", fixes["check_a"].FixApproach)
	assert.True(t, sawAnalysis, "insight context feeds the prompt")
}

func TestFixSuggestorWorksWithoutInsights(t *testing.T) {
	llm := &fakeLLM{respond: func(string) (string, error) {
		return validFixJSON, nil
	}}

	sug := NewFixSuggestor(llm, fastRetry(), zap.NewNop())
	fixes, failed := sug.Suggest(context.Background(), failedResult("check_a", "check_b"), nil)

	assert.Empty(t, failed)
	assert.Len(t, fixes, 2)
}

func TestFixSuggestorPassingResultSkipsModel(t *testing.T) {
	llm := &fakeLLM{respond: func(string) (string, error) {
		t.Fatal("model must not be called for a passing result")
		return "", nil
	}}

	sug := NewFixSuggestor(llm, fastRetry(), zap.NewNop())
	fixes, failed := sug.Suggest(context.Background(), failedResult(), nil)

	assert.Empty(t, fixes)
	assert.Empty(t, failed)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "plain", "plain"},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\nname: x\n```", "name: x"},
		{"yaml fence", "```yaml\nname: x\nversion: 1\n```", "name: x\nversion: 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.in))
		})
	}
}
