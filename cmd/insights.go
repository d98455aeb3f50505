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
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/artifact"
	"github.com/dataplatform-tools/data-quality-monitor/internal/enrich"
	"github.com/dataplatform-tools/data-quality-monitor/internal/validate"
)

// insightsCmd represents the insights command
var insightsCmd = &cobra.Command{
	Use:     "insights",
	Short:   "Generate insights for a stored validation result",
	Long:    `Reads a stored validation result (the latest by default), asks the language model to analyze each failed check, stores the insights as a dated record, and prints them.`,
	Example: `./dq_monitor insights --name orders --date 2025-06-01`,
	RunE:    runInsights,
}

// loadStoredResult reads the validation result recorded for a dataset
// on the given date, defaulting to the most recent record.
func loadStoredResult(store *artifact.Store, name, date string) (*validate.Result, error) {
	if name == "" {
		return nil, fmt.Errorf("--name is required")
	}
	if date == "" {
		latest, err := store.LatestDate(artifact.KindResults, name)
		if err != nil {
			return nil, err
		}
		if latest == "" {
			return nil, fmt.Errorf("no validation results recorded for dataset %s", name)
		}
		date = latest
	}

	var result validate.Result
	if err := store.Read(artifact.KindResults, name, date, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func runInsights(cmd *cobra.Command, args []string) error {
	store := newArtifactStore()
	result, err := loadStoredResult(store, datasetName, cmd.Flag("date").Value.String())
	if err != nil {
		return err
	}

	if len(result.FailedChecks) == 0 {
		fmt.Printf("All checks passed for %s; nothing to analyze\n", result.DatasetName)
		return nil
	}

	ctx := cmd.Context()
	llm, err := newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer llm.Close()

	insights, failed := enrich.NewInsightGenerator(llm, retryOptions(), logger).Generate(ctx, result)
	if len(failed) > 0 {
		logger.Warn("some insights could not be generated", zap.Strings("checks", failed))
	}
	if len(insights) == 0 {
		return fmt.Errorf("insight generation failed for all %d checks", len(result.FailedChecks))
	}

	if _, err := store.Write(artifact.KindInsights, result.DatasetName, result.Timestamp, insights); err != nil {
		var dup *artifact.ErrDuplicateWrite
		if !errors.As(err, &dup) {
			return err
		}
		logger.Warn("insights already recorded for this date, keeping the original",
			zap.String("dataset", result.DatasetName))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(insights)
}

func init() {
	insightsCmd.Flags().String("date", "", "Result date to analyze, YYYY-MM-DD (defaults to the latest)")
}
