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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dataplatform-tools/data-quality-monitor/internal/enrich"
)

// generateSuiteCmd represents the generate-suite command
var generateSuiteCmd = &cobra.Command{
	Use:     "generate-suite",
	Short:   "Draft a rule suite from a dataset's profile",
	Long:    `Loads a dataset, profiles its columns, asks the language model to draft a validation rule suite, validates the draft against the rule schema, and saves it to the suite directory for review.`,
	Example: `./dq_monitor generate-suite --file ./orders.csv --suite orders`,
	RunE:    runGenerateSuite,
}

func runGenerateSuite(cmd *cobra.Command, args []string) error {
	suiteName := cmd.Flag("suite").Value.String()

	src, err := buildSource()
	if err != nil {
		return err
	}
	if suiteName == "" {
		suiteName = src.DatasetName()
	}

	store := newArtifactStore()
	loader := newLoader(store)

	ds, err := loader.Load(cmd.Context(), src)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	llm, err := newLLMClient(ctx)
	if err != nil {
		return err
	}
	defer llm.Close()

	generated, err := enrich.NewSuiteGenerator(llm, retryOptions(), logger).Generate(ctx, ds, suiteName)
	if err != nil {
		return err
	}

	path, err := newSuiteStore().Save(generated)
	if err != nil {
		return err
	}

	fmt.Printf("Generated suite %s with %d rules: %s\n", generated.Name, len(generated.Rules), path)
	fmt.Println("Review the generated rules before using them in scheduled runs.")
	return nil
}

func init() {
	generateSuiteCmd.Flags().String("suite", "", "Name for the generated suite (defaults to the dataset name)")
}
