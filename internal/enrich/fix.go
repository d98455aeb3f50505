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

// FixSuggestor produces one remediation proposal per failed check.
type FixSuggestor struct {
	llm    genai.LLMClient
	retry  RetryOptions
	logger *zap.Logger
}

// NewFixSuggestor creates a fix suggestor backed by the given model
// client.
func NewFixSuggestor(llm genai.LLMClient, retry RetryOptions, logger *zap.Logger) *FixSuggestor {
	return &FixSuggestor{llm: llm, retry: retry, logger: logger}
}

// Suggest proposes a fix for every failed check of a validation result
// concurrently. Insights are optional context: when an insight exists
// for a check, its analysis is folded into the prompt; a nil or partial
// map degrades to check-only prompts. The returned slice names the
// checks whose suggestion failed, sorted.
func (s *FixSuggestor) Suggest(ctx context.Context, result *validate.Result, insights map[string]Insight) (map[string]FixSuggestion, []string) {
	fixes := make(map[string]FixSuggestion)
	if result == nil || len(result.FailedChecks) == 0 {
		return fixes, nil
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

			var insight *Insight
			if in, ok := insights[check.CheckName]; ok {
				insight = &in
			}

			prompt := fixPrompt(result.DatasetName, check, insight)
			text, err := withRetry(ctx, s.retry, func(ctx context.Context) (string, error) {
				return s.llm.Complete(ctx, prompt)
			})
			var fix FixSuggestion
			if err == nil {
				fix, err = parseFixSuggestion(text)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, check.CheckName)
				fixErr := &ErrFixSuggestion{CheckName: check.CheckName, Err: err}
				s.logger.Warn("fix suggestion failed",
					zap.String("dataset", result.DatasetName),
					zap.String("check", check.CheckName),
					zap.Error(fixErr))
				return
			}
			fixes[check.CheckName] = fix
		}(check)
	}
	wg.Wait()

	sort.Strings(failed)
	s.logger.Info("fix suggestion completed",
		zap.String("dataset", result.DatasetName),
		zap.Int("suggested", len(fixes)),
		zap.Int("failed", len(failed)))
	return fixes, failed
}

func fixPrompt(datasetName string, check validate.FailedCheck, insight *Insight) string {
	detail, _ := json.MarshalIndent(check, "", "  ")
	analysisBlock := ""
	if insight != nil {
		analysis, _ := json.MarshalIndent(insight, "", "  ")
		analysisBlock = fmt.Sprintf("\nPrior analysis of this failure:\n%s\n", analysis)
	}
	return fmt.Sprintf(`You are a data engineer. A validation check failed on dataset %q and needs a remediation plan.

Failed check details:
%s
%s
Respond with a single JSON object only, no prose, with exactly these fields:
{
  "fix_approach": "recommended way to fix the issue",
  "rationale": "why this approach fits the failure",
  "confidence": "low|medium|high",
  "implementation": "concrete steps or SQL/code sketch",
  "alternative_approaches": ["alternative 1", "alternative 2"]
}`, datasetName, detail, analysisBlock)
}
