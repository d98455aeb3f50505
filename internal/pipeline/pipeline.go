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

// Package pipeline chains ingestion, validation, enrichment,
// persistence and alerting into one run. Enrichment stages are
// optional; a run that skips them is still a complete run.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/alert"
	"github.com/dataplatform-tools/data-quality-monitor/internal/artifact"
	"github.com/dataplatform-tools/data-quality-monitor/internal/dataset"
	"github.com/dataplatform-tools/data-quality-monitor/internal/enrich"
	"github.com/dataplatform-tools/data-quality-monitor/internal/suite"
	"github.com/dataplatform-tools/data-quality-monitor/internal/validate"
)

// Stage names how far a run progressed.
type Stage string

const (
	StageLoaded         Stage = "loaded"
	StageValidated      Stage = "validated"
	StageInsighted      Stage = "insighted"
	StageInsightSkipped Stage = "insight_skipped"
	StageFixed          Stage = "fixed"
	StageFixSkipped     Stage = "fix_skipped"
	StagePersisted      Stage = "persisted"
)

// DatasetLoader loads a dataset from a source definition.
type DatasetLoader interface {
	Load(ctx context.Context, src dataset.Source) (*dataset.Dataset, error)
}

// SuiteLoader resolves a rule suite by name.
type SuiteLoader interface {
	Load(name string) (*suite.Suite, error)
}

// InsightGenerator analyzes the failed checks of a validation result.
type InsightGenerator interface {
	Generate(ctx context.Context, result *validate.Result) (map[string]enrich.Insight, []string)
}

// FixSuggestor proposes fixes for the failed checks of a validation
// result.
type FixSuggestor interface {
	Suggest(ctx context.Context, result *validate.Result, insights map[string]enrich.Insight) (map[string]enrich.FixSuggestion, []string)
}

// Notifier delivers a failed-run alert.
type Notifier interface {
	Enabled() bool
	Notify(ctx context.Context, p alert.Payload) error
}

// RunOutcome reports what one pipeline run produced and how far it got.
type RunOutcome struct {
	RunID           string
	Stage           Stage
	Result          *validate.Result
	Insights        map[string]enrich.Insight
	InsightFailures []string
	Fixes           map[string]enrich.FixSuggestion
	FixFailures     []string
	ResultPath      string
	Warnings        []string
	AlertSent       bool
}

// Pipeline wires the stages together. Insights, fixes and alerts may be
// nil, in which case the corresponding stage is skipped.
type Pipeline struct {
	loader   DatasetLoader
	suites   SuiteLoader
	engine   *validate.Engine
	store    *artifact.Store
	insights InsightGenerator
	fixes    FixSuggestor
	alerts   Notifier
	logger   *zap.Logger
}

// New creates a pipeline over the given components.
func New(loader DatasetLoader, suites SuiteLoader, engine *validate.Engine, store *artifact.Store,
	insights InsightGenerator, fixes FixSuggestor, alerts Notifier, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		loader:   loader,
		suites:   suites,
		engine:   engine,
		store:    store,
		insights: insights,
		fixes:    fixes,
		alerts:   alerts,
		logger:   logger,
	}
}

// Run executes one end-to-end run: load the dataset, validate it
// against the named suite, enrich the failures, persist the artifacts,
// and alert on failure. Stage errors abort the run; a duplicate
// persistence key degrades to a warning so the run's result is not
// lost.
func (p *Pipeline) Run(ctx context.Context, src dataset.Source, suiteName string) (*RunOutcome, error) {
	outcome := &RunOutcome{RunID: uuid.NewString()}
	p.logger.Info("pipeline run starting",
		zap.String("run_id", outcome.RunID),
		zap.String("dataset", src.DatasetName()),
		zap.String("suite", suiteName))

	ds, err := p.loader.Load(ctx, src)
	if err != nil {
		return outcome, fmt.Errorf("pipeline run %s: %w", outcome.RunID, err)
	}
	outcome.Stage = StageLoaded

	s, err := p.suites.Load(suiteName)
	if err != nil {
		return outcome, fmt.Errorf("pipeline run %s: %w", outcome.RunID, err)
	}

	result, err := p.engine.Evaluate(ds, s)
	if err != nil {
		return outcome, fmt.Errorf("pipeline run %s: %w", outcome.RunID, err)
	}
	result.RunID = outcome.RunID
	outcome.Result = result
	outcome.Stage = StageValidated

	if p.insights != nil {
		outcome.Insights, outcome.InsightFailures = p.insights.Generate(ctx, result)
		outcome.Stage = StageInsighted
	} else {
		outcome.Stage = StageInsightSkipped
	}

	if p.fixes != nil {
		outcome.Fixes, outcome.FixFailures = p.fixes.Suggest(ctx, result, outcome.Insights)
		outcome.Stage = StageFixed
	} else {
		outcome.Stage = StageFixSkipped
	}

	p.persist(outcome)
	outcome.Stage = StagePersisted

	if !result.Success && p.alerts != nil && p.alerts.Enabled() {
		payload := alert.Payload{Result: result, Insights: outcome.Insights}
		if err := p.alerts.Notify(ctx, payload); err != nil {
			outcome.Warnings = append(outcome.Warnings, err.Error())
		} else {
			outcome.AlertSent = true
		}
	}

	p.logger.Info("pipeline run finished",
		zap.String("run_id", outcome.RunID),
		zap.String("dataset", ds.Name),
		zap.Bool("success", result.Success),
		zap.Int("warnings", len(outcome.Warnings)))
	return outcome, nil
}

// persist writes the run's artifacts. A duplicate partition key means a
// record for today already exists; the original is kept and the run
// carries a warning instead of failing.
func (p *Pipeline) persist(outcome *RunOutcome) {
	result := outcome.Result
	ts := result.Timestamp

	path, err := p.store.Write(artifact.KindResults, result.DatasetName, ts, result)
	if err != nil {
		outcome.Warnings = append(outcome.Warnings, p.persistWarning(artifact.KindResults, err))
	} else {
		outcome.ResultPath = path
	}

	if len(outcome.Insights) > 0 {
		if _, err := p.store.Write(artifact.KindInsights, result.DatasetName, ts, outcome.Insights); err != nil {
			outcome.Warnings = append(outcome.Warnings, p.persistWarning(artifact.KindInsights, err))
		}
	}
	if len(outcome.Fixes) > 0 {
		if _, err := p.store.Write(artifact.KindFixes, result.DatasetName, ts, outcome.Fixes); err != nil {
			outcome.Warnings = append(outcome.Warnings, p.persistWarning(artifact.KindFixes, err))
		}
	}
}

func (p *Pipeline) persistWarning(kind artifact.Kind, err error) string {
	var dup *artifact.ErrDuplicateWrite
	if errors.As(err, &dup) {
		p.logger.Warn("artifact already recorded for this date, keeping the original",
			zap.String("kind", string(kind)),
			zap.String("dataset", dup.Dataset),
			zap.String("date", dup.Date))
	} else {
		p.logger.Warn("artifact persistence failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
	return err.Error()
}
