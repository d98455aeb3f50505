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
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Short:   "Run the pipeline on a schedule",
	Long:    `Runs the full monitoring pipeline on a cron schedule until interrupted. Each scheduled run loads, validates, enriches, persists and alerts like a single pipeline invocation; runs after the first on the same day skip persistence because the day's record already exists.`,
	Example: `./dq_monitor monitor --file ./orders.csv --suite orders --schedule "0 6 * * *"`,
	RunE:    runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	suiteName := cmd.Flag("suite").Value.String()
	if suiteName == "" {
		return fmt.Errorf("--suite is required")
	}
	schedule := cmd.Flag("schedule").Value.String()

	src, err := buildSource()
	if err != nil {
		return err
	}

	skipInsights, _ := cmd.Flags().GetBool("skip-insights")
	skipFixes, _ := cmd.Flags().GetBool("skip-fixes")
	skipAlerts, _ := cmd.Flags().GetBool("skip-alerts")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, closer, err := buildPipeline(ctx, skipInsights, skipFixes, skipAlerts)
	if err != nil {
		return err
	}
	defer closer()

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(schedule, func() {
		outcome, runErr := p.Run(ctx, src, suiteName)
		if runErr != nil {
			logger.Error("scheduled run failed",
				zap.String("suite", suiteName),
				zap.Error(runErr))
			return
		}
		logger.Info("scheduled run finished",
			zap.String("run_id", outcome.RunID),
			zap.Bool("success", outcome.Result.Success))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	logger.Info("monitor started",
		zap.String("dataset", src.DatasetName()),
		zap.String("suite", suiteName),
		zap.String("schedule", schedule))
	c.Start()

	<-ctx.Done()
	logger.Info("monitor stopping")
	<-c.Stop().Done()
	return nil
}

func init() {
	monitorCmd.Flags().String("suite", "", "Name of the rule suite to evaluate - MANDATORY")
	monitorCmd.Flags().String("schedule", "0 6 * * *", "Cron schedule for pipeline runs")
	monitorCmd.Flags().Bool("skip-insights", false, "Skip insight generation")
	monitorCmd.Flags().Bool("skip-fixes", false, "Skip fix suggestion")
	monitorCmd.Flags().Bool("skip-alerts", false, "Skip alert delivery")
}
