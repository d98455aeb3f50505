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

// Package enrich turns validation failures into language-model
// artifacts: structured insights, fix suggestions, and auto-generated
// rule suites. Model output is untrusted input; every response is
// parsed and validated before it becomes an artifact.
package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Impact levels an insight may carry.
const (
	ImpactLow      = "low"
	ImpactMedium   = "medium"
	ImpactHigh     = "high"
	ImpactCritical = "critical"
)

// Insight is the structured analysis of one failed check.
type Insight struct {
	IssueDescription   string   `json:"issue_description"`
	ImpactLevel        string   `json:"impact_level"`
	BusinessImpact     string   `json:"business_impact"`
	PossibleCauses     []string `json:"possible_causes"`
	RecommendedActions []string `json:"recommended_actions"`
}

// FixSuggestion is the structured remediation proposal for one failed
// check.
type FixSuggestion struct {
	FixApproach           string   `json:"fix_approach"`
	Rationale             string   `json:"rationale"`
	Confidence            string   `json:"confidence"`
	Implementation        string   `json:"implementation"`
	AlternativeApproaches []string `json:"alternative_approaches"`
}

// stripCodeFences removes a surrounding Markdown code fence, with or
// without a language tag, from model output.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// extractJSONObject isolates the outermost JSON object in model output,
// tolerating prose or fences around it.
func extractJSONObject(text string) (string, error) {
	cleaned := stripCodeFences(text)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object found in model response")
	}
	return cleaned[start : end+1], nil
}

func parseInsight(text string) (Insight, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return Insight{}, err
	}

	var insight Insight
	if err := json.Unmarshal([]byte(raw), &insight); err != nil {
		return Insight{}, fmt.Errorf("failed to decode insight JSON: %w", err)
	}
	if insight.IssueDescription == "" {
		return Insight{}, fmt.Errorf("insight is missing issue_description")
	}

	level := strings.ToLower(strings.TrimSpace(insight.ImpactLevel))
	switch level {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical:
		insight.ImpactLevel = level
	default:
		return Insight{}, fmt.Errorf("invalid impact_level %q", insight.ImpactLevel)
	}
	return insight, nil
}

func parseFixSuggestion(text string) (FixSuggestion, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return FixSuggestion{}, err
	}

	var fix FixSuggestion
	if err := json.Unmarshal([]byte(raw), &fix); err != nil {
		return FixSuggestion{}, fmt.Errorf("failed to decode fix suggestion JSON: %w", err)
	}
	if fix.FixApproach == "" {
		return FixSuggestion{}, fmt.Errorf("fix suggestion is missing fix_approach")
	}
	return fix, nil
}
