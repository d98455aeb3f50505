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
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dataplatform-tools/data-quality-monitor/internal/artifact"
	"github.com/dataplatform-tools/data-quality-monitor/internal/validate"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:     "history",
	Short:   "Show the validation history of a dataset",
	Long:    `Walks the dated validation results stored for a dataset and renders them as a table, oldest first, for trend inspection.`,
	Example: `./dq_monitor history --name orders`,
	RunE:    runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	if datasetName == "" {
		return fmt.Errorf("--name is required")
	}

	store := newArtifactStore()
	it, err := store.History(artifact.KindResults, datasetName)
	if err != nil {
		return err
	}
	if it.Len() == 0 {
		fmt.Printf("No validation results recorded for dataset %s\n", datasetName)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Date", "Suite", "Success", "Evaluated", "Passed", "Failed", "Success %"})
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)

	for {
		entry, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		var result validate.Result
		if err := json.Unmarshal(entry.Record, &result); err != nil {
			return fmt.Errorf("failed to decode result for %s on %s: %w", datasetName, entry.Date, err)
		}

		table.Append([]string{
			entry.Date,
			result.SuiteName,
			fmt.Sprintf("%t", result.Success),
			fmt.Sprintf("%d", result.Statistics.EvaluatedExpectations),
			fmt.Sprintf("%d", result.Statistics.SuccessfulExpectations),
			fmt.Sprintf("%d", result.Statistics.UnsuccessfulExpectations),
			fmt.Sprintf("%.1f", result.Statistics.SuccessPercent),
		})
	}

	table.Render()
	return nil
}
