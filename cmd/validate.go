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
	"github.com/dataplatform-tools/data-quality-monitor/internal/validate"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:     "validate",
	Short:   "Validate a dataset against a rule suite",
	Long:    `Loads a dataset, evaluates every rule of the named suite against it, prints the aggregated result, and stores it as a dated record. The command exits non-zero when any check fails.`,
	Example: `./dq_monitor validate --file ./orders.csv --suite orders`,
	RunE:    runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	suiteName := cmd.Flag("suite").Value.String()
	if suiteName == "" {
		return fmt.Errorf("--suite is required")
	}

	src, err := buildSource()
	if err != nil {
		return err
	}

	store := newArtifactStore()
	loader := newLoader(store)

	ds, err := loader.Load(cmd.Context(), src)
	if err != nil {
		return err
	}

	s, err := newSuiteStore().Load(suiteName)
	if err != nil {
		return err
	}

	result, err := validate.NewEngine(logger).Evaluate(ds, s)
	if err != nil {
		return err
	}

	if _, err := store.Write(artifact.KindResults, result.DatasetName, result.Timestamp, result); err != nil {
		var dup *artifact.ErrDuplicateWrite
		if !errors.As(err, &dup) {
			return err
		}
		logger.Warn("a result is already recorded for today, keeping the original",
			zap.String("dataset", result.DatasetName))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if !result.Success {
		return fmt.Errorf("validation failed: %d of %d checks failed",
			result.Statistics.UnsuccessfulExpectations,
			result.Statistics.EvaluatedExpectations)
	}
	return nil
}

func init() {
	validateCmd.Flags().String("suite", "", "Name of the rule suite to evaluate - MANDATORY")
}
