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
)

// fixesCmd represents the fixes command
var fixesCmd = &cobra.Command{
	Use:     "fixes",
	Short:   "Suggest fixes for a stored validation result",
	Long:    `Reads a stored validation result (the latest by default) plus any stored insights for the same date, asks the language model to propose a remediation for each failed check, stores the suggestions as a dated record, and prints them.`,
	Example: `./dq_monitor fixes --name orders`,
	RunE:    runFixes,
}

func runFixes(cmd *cobra.Command, args []string) error {
	store := newArtifactStore()
	result, err := loadStoredResult(store, datasetName, cmd.Flag("date").Value.String())
	if err != nil {
		return err
	}

	if len(result.FailedChecks) == 0 {
		fmt.Printf("All checks passed for %s; nothing to fix\n", result.DatasetName)
		return nil
	}

	// Stored insights for the same date are optional prompt context.
	var insights map[string]enrich.Insight
	date := artifact.DateOf(result.Timestamp)
	if err := store.Read(artifact.KindInsights, result.DatasetName, date, &insights); err != nil {
		insights = nil
	}

	ctx := cmd.Context()
	llm, err := newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer llm.Close()

	fixes, failed := enrich.NewFixSuggestor(llm, retryOptions(), logger).Suggest(ctx, result, insights)
	if len(failed) > 0 {
		logger.Warn("some fix suggestions could not be generated", zap.Strings("checks", failed))
	}
	if len(fixes) == 0 {
		return fmt.Errorf("fix suggestion failed for all %d checks", len(result.FailedChecks))
	}

	if _, err := store.Write(artifact.KindFixes, result.DatasetName, result.Timestamp, fixes); err != nil {
		var dup *artifact.ErrDuplicateWrite
		if !errors.As(err, &dup) {
			return err
		}
		logger.Warn("fixes already recorded for this date, keeping the original",
			zap.String("dataset", result.DatasetName))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(fixes)
}

func init() {
	fixesCmd.Flags().String("date", "", "Result date to remediate, YYYY-MM-DD (defaults to the latest)")
}
