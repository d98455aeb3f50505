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

	"github.com/spf13/cobra"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:     "ingest",
	Short:   "Load a dataset and print its column profiles",
	Long:    `Loads a dataset from a file, API or database source, keeps a dated raw copy when configured, and prints per-column profiles (type, null rate, distinct count, min/max, sample values).`,
	Example: `./dq_monitor ingest --file ./orders.csv`,
	RunE:    runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Loaded dataset %s: %d columns, %d rows\n", ds.Name, len(ds.Columns), ds.RowCount())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ds.Profile())
}
