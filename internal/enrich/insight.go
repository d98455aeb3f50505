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
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/genai"
	"github.com/dataplatform-tools/data-quality-monitor/internal/validate"
)

// InsightGenerator produces one structured insight per failed check.
type InsightGenerator struct {
	llm    genai.LLMClient
	retry  RetryOptions
	logger *zap.Logger
}

// NewInsightGenerator creates an insight generator backed by the given
// model client.
func NewInsightGenerator(llm genai.LLMClient, retry RetryOptions, logger *zap.Logger) *InsightGenerator {
	return &InsightGenerator{llm: llm, retry: retry, logger: logger}
}

// Generate analyzes every failed check of a validation result
// concurrently. The returned map holds the insights that succeeded; the
// returned slice names the checks whose generation failed, sorted.
// A fully passing result yields an empty map without any model call.
func (g *InsightGenerator) Generate(ctx context.Context, result *validate.Result) (map[string]Insight, []string) {
	insights := make(map[string]Insight)
	if result == nil || len(result.FailedChecks) == 0 {
		return insights, nil
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed []string
	)

	for _, check := range result.FailedChecks {
		wg.Add(1)
		go func(check validate.FailedCheck) {
			defer wg.Done()

			prompt := insightPrompt(result.DatasetName, check)
			text, err := withRetry(ctx, g.retry, func(ctx context.Context) (string, error) {
				return g.llm.Complete(ctx, prompt)
			})
			var insight Insight
			if err == nil {
				insight, err = parseInsight(text)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, check.CheckName)
				genErr := &ErrInsightGeneration{CheckName: check.CheckName, Err: err}
				g.logger.Warn("insight generation failed",
					zap.String("dataset", result.DatasetName),
					zap.String("check", check.CheckName),
					zap.Error(genErr))
				return
			}
			insights[check.CheckName] = insight
		}(check)
	}
	wg.Wait()

	sort.Strings(failed)
	g.logger.Info("insight generation completed",
		zap.String("dataset", result.DatasetName),
		zap.Int("generated", len(insights)),
		zap.Int("failed", len(failed)))
	return insights, failed
}

func insightPrompt(datasetName string, check validate.FailedCheck) string {
	detail, _ := json.MarshalIndent(check, "", "  ")
	return fmt.Sprintf(`You are a data quality analyst. A validation check failed on dataset %q.

Failed check details:
%s

Analyze the failure and respond with a single JSON object only, no prose, with exactly these fields:
{
  "issue_description": "clear description of the data quality issue",
  "impact_level": "low|medium|high|critical",
  "business_impact": "how this issue affects downstream consumers",
  "possible_causes": ["likely cause 1", "likely cause 2"],
  "recommended_actions": ["concrete action 1", "concrete action 2"]
}`, datasetName, detail)
}
