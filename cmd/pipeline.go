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
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dataplatform-tools/data-quality-monitor/internal/enrich"
	"github.com/dataplatform-tools/data-quality-monitor/internal/genai"
	"github.com/dataplatform-tools/data-quality-monitor/internal/pipeline"
	"github.com/dataplatform-tools/data-quality-monitor/internal/validate"
)

// pipelineCmd represents the pipeline command
var pipelineCmd = &cobra.Command{
	Use:     "pipeline",
	Short:   "Run the full monitoring pipeline once",
	Long:    `Loads a dataset, validates it against the named suite, generates insights and fix suggestions for any failures, stores all artifacts as dated records, and alerts the configured channels when checks fail. The command exits non-zero when any check fails.`,
	Example: `./dq_monitor pipeline --file ./orders.csv --suite orders`,
	RunE:    runPipeline,
}

// buildPipeline assembles the pipeline from configuration and flags.
// The returned closer releases the model client, when one was created.
func buildPipeline(ctx context.Context, skipInsights, skipFixes, skipAlerts bool) (*pipeline.Pipeline, func(), error) {
	store := newArtifactStore()
	loader := newLoader(store)
	suites := newSuiteStore()
	engine := validate.NewEngine(logger)

	var (
		llm      genai.LLMClient
		insights pipeline.InsightGenerator
		fixes    pipeline.FixSuggestor
	)
	if !skipInsights || !skipFixes {
		var err error
		llm, err = newLLMClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		if !skipInsights {
			insights = enrich.NewInsightGenerator(llm, retryOptions(), logger)
		}
		if !skipFixes {
			fixes = enrich.NewFixSuggestor(llm, retryOptions(), logger)
		}
	}

	var alerts pipeline.Notifier
	if !skipAlerts {
		alerts = newAlertManager()
	}

	closer := func() {
		if llm != nil {
			_ = llm.Close()
		}
	}
	return pipeline.New(loader, suites, engine, store, insights, fixes, alerts, logger), closer, nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	suiteName := cmd.Flag("suite").Value.String()
	if suiteName == "" {
		return fmt.Errorf("--suite is required")
	}

	src, err := buildSource()
	if err != nil {
		return err
	}

	skipInsights, _ := cmd.Flags().GetBool("skip-insights")
	skipFixes, _ := cmd.Flags().GetBool("skip-fixes")
	skipAlerts, _ := cmd.Flags().GetBool("skip-alerts")

	ctx := cmd.Context()
	p, closer, err := buildPipeline(ctx, skipInsights, skipFixes, skipAlerts)
	if err != nil {
		return err
	}
	defer closer()

	outcome, err := p.Run(ctx, src, suiteName)
	if err != nil {
		return err
	}

	if err := printRunOutcome(outcome); err != nil {
		return err
	}
	if !outcome.Result.Success {
		return fmt.Errorf("validation failed: %d of %d checks failed",
			outcome.Result.Statistics.UnsuccessfulExpectations,
			outcome.Result.Statistics.EvaluatedExpectations)
	}
	return nil
}

func printRunOutcome(outcome *pipeline.RunOutcome) error {
	summary := map[string]any{
		"run_id":  outcome.RunID,
		"stage":   outcome.Stage,
		"dataset": outcome.Result.DatasetName,
		"success": outcome.Result.Success,
		"result":  outcome.Result,
	}
	if len(outcome.Insights) > 0 {
		summary["insights"] = outcome.Insights
	}
	if len(outcome.Fixes) > 0 {
		summary["fixes"] = outcome.Fixes
	}
	if len(outcome.Warnings) > 0 {
		summary["warnings"] = outcome.Warnings
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func init() {
	pipelineCmd.Flags().String("suite", "", "Name of the rule suite to evaluate - MANDATORY")
	pipelineCmd.Flags().Bool("skip-insights", false, "Skip insight generation")
	pipelineCmd.Flags().Bool("skip-fixes", false, "Skip fix suggestion")
	pipelineCmd.Flags().Bool("skip-alerts", false, "Skip alert delivery")
}
