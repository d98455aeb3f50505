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

// Package alert notifies configured channels about failed validation
// runs. Delivery is best-effort per channel; a run alert is lost only
// when every channel fails.
package alert

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/enrich"
	"github.com/dataplatform-tools/data-quality-monitor/internal/validate"
)

// Payload carries everything a channel needs to render an alert.
type Payload struct {
	Result   *validate.Result
	Insights map[string]enrich.Insight
}

// Subject returns the one-line alert summary.
func (p Payload) Subject() string {
	return fmt.Sprintf("Data quality alert: %d check(s) failed for %s",
		p.Result.Statistics.UnsuccessfulExpectations, p.Result.DatasetName)
}

// Dispatcher delivers an alert to one channel.
type Dispatcher interface {
	// Name identifies the channel in logs.
	Name() string

	// Dispatch delivers the alert.
	Dispatch(ctx context.Context, p Payload) error
}

// Manager fans an alert out to every configured dispatcher.
type Manager struct {
	dispatchers []Dispatcher
	logger      *zap.Logger
}

// NewManager creates an alert manager over the given dispatchers.
func NewManager(logger *zap.Logger, dispatchers ...Dispatcher) *Manager {
	return &Manager{dispatchers: dispatchers, logger: logger}
}

// Enabled reports whether any channel is configured.
func (m *Manager) Enabled() bool { return len(m.dispatchers) > 0 }

// Notify sends the alert to every channel. Per-channel failures are
// logged and swallowed; an error is returned only when no channel
// accepted the alert.
func (m *Manager) Notify(ctx context.Context, p Payload) error {
	if len(m.dispatchers) == 0 {
		return nil
	}

	delivered := 0
	for _, d := range m.dispatchers {
		if err := d.Dispatch(ctx, p); err != nil {
			m.logger.Warn("alert delivery failed",
				zap.String("channel", d.Name()),
				zap.String("dataset", p.Result.DatasetName),
				zap.Error(err))
			continue
		}
		delivered++
		m.logger.Info("alert delivered",
			zap.String("channel", d.Name()),
			zap.String("dataset", p.Result.DatasetName))
	}

	if delivered == 0 {
		return fmt.Errorf("alert delivery failed on all %d channel(s)", len(m.dispatchers))
	}
	return nil
}

// FormatMessage renders the alert body shared by the text channels.
func FormatMessage(p Payload) string {
	res := p.Result
	var b strings.Builder

	fmt.Fprintf(&b, "Dataset: %s\n", res.DatasetName)
	fmt.Fprintf(&b, "Suite: %s (v%d)\n", res.SuiteName, res.SuiteVersion)
	fmt.Fprintf(&b, "Run at: %s\n", res.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Checks: %d evaluated, %d failed (%.1f%% success)\n\n",
		res.Statistics.EvaluatedExpectations,
		res.Statistics.UnsuccessfulExpectations,
		res.Statistics.SuccessPercent)

	for _, check := range res.FailedChecks {
		fmt.Fprintf(&b, "- %s\n", check.CheckName)
		fmt.Fprintf(&b, "  expected: %v\n", check.ExpectedValue)
		fmt.Fprintf(&b, "  observed: %v\n", check.ActualValue)
		if check.FailedRows > 0 {
			fmt.Fprintf(&b, "  failed rows: %d (%.1f%%)\n", check.FailedRows, check.FailurePercentage)
		}
		if insight, ok := p.Insights[check.CheckName]; ok {
			fmt.Fprintf(&b, "  impact: %s\n", insight.ImpactLevel)
			fmt.Fprintf(&b, "  analysis: %s\n", insight.IssueDescription)
		}
	}
	return b.String()
}
