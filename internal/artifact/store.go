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

// Package artifact persists pipeline artifacts as date- and
// dataset-partitioned records. Partitions are write-once: a second
// write for the same (kind, dataset, date) key is rejected, since a
// silent overwrite would corrupt trend history.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Kind identifies an artifact family.
type Kind string

const (
	KindResults  Kind = "validation_results"
	KindInsights Kind = "insights"
	KindFixes    Kind = "fixes"
	KindRaw      Kind = "raw"
)

// ErrDuplicateWrite indicates that a record already exists for the
// partition key. The original record is left untouched.
type ErrDuplicateWrite struct {
	Kind    Kind
	Dataset string
	Date    string
}

func (e *ErrDuplicateWrite) Error() string {
	return fmt.Sprintf("duplicate write: %s record already exists for dataset %s on %s", e.Kind, e.Dataset, e.Date)
}

// Entry is one dated record in a partition's history.
type Entry struct {
	Date   string
	Record json.RawMessage
}

// Store is a filesystem-backed artifact store laid out as
// <root>/<kind>/<dataset>/<YYYY-MM-DD>.json.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates an artifact store rooted at root.
func NewStore(root string, logger *zap.Logger) *Store {
	return &Store{root: root, logger: logger}
}

// DateOf renders a timestamp as the partition date (UTC).
func DateOf(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

func (s *Store) partitionDir(kind Kind, datasetName string) string {
	return filepath.Join(s.root, string(kind), datasetName)
}

// Write persists a record under (kind, dataset, date-of-ts). It fails
// with *ErrDuplicateWrite when the partition already holds a record;
// O_EXCL serializes racing writers to the same key.
func (s *Store) Write(kind Kind, datasetName string, ts time.Time, record any) (string, error) {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s record: %w", kind, err)
	}
	return s.writeBytes(kind, datasetName, ts, ".json", data)
}

// WriteRaw persists raw source bytes under the raw partition,
// preserving the source extension. Same write-once semantics as Write.
func (s *Store) WriteRaw(datasetName string, ts time.Time, ext string, data []byte) (string, error) {
	if ext == "" {
		ext = ".dat"
	}
	return s.writeBytes(KindRaw, datasetName, ts, ext, data)
}

func (s *Store) writeBytes(kind Kind, datasetName string, ts time.Time, ext string, data []byte) (string, error) {
	dir := s.partitionDir(kind, datasetName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create partition directory: %w", err)
	}

	date := DateOf(ts)
	path := filepath.Join(dir, date+ext)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return "", &ErrDuplicateWrite{Kind: kind, Dataset: datasetName, Date: date}
		}
		return "", fmt.Errorf("failed to create %s record: %w", kind, err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write %s record: %w", kind, err)
	}

	s.logger.Info("artifact written",
		zap.String("kind", string(kind)),
		zap.String("dataset", datasetName),
		zap.String("path", path))
	return path, nil
}

// Read loads the record stored under (kind, dataset, date) into out.
func (s *Store) Read(kind Kind, datasetName, date string, out any) error {
	path := filepath.Join(s.partitionDir(kind, datasetName), date+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s record for %s on %s: %w", kind, datasetName, date, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s record for %s on %s: %w", kind, datasetName, date, err)
	}
	return nil
}

// LatestDate returns the most recent partition date for a dataset, or
// "" when no record exists.
func (s *Store) LatestDate(kind Kind, datasetName string) (string, error) {
	dates, err := s.partitionDates(kind, datasetName)
	if err != nil || len(dates) == 0 {
		return "", err
	}
	return dates[len(dates)-1], nil
}

func (s *Store) partitionDates(kind Kind, datasetName string) ([]string, error) {
	entries, err := os.ReadDir(s.partitionDir(kind, datasetName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s partitions for %s: %w", kind, datasetName, err)
	}

	var dates []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(dates)
	return dates, nil
}

// History returns a lazy, restartable iterator over a dataset's records
// of one kind, ordered by date ascending. Records are loaded from disk
// one at a time as the iterator advances.
func (s *Store) History(kind Kind, datasetName string) (*HistoryIterator, error) {
	dates, err := s.partitionDates(kind, datasetName)
	if err != nil {
		return nil, err
	}
	return &HistoryIterator{store: s, kind: kind, dataset: datasetName, dates: dates}, nil
}

// HistoryIterator walks a partition history date-ascending.
type HistoryIterator struct {
	store   *Store
	kind    Kind
	dataset string
	dates   []string
	pos     int
}

// Len returns the number of records in the history.
func (it *HistoryIterator) Len() int { return len(it.dates) }

// Next returns the next dated record. ok is false when the history is
// exhausted.
func (it *HistoryIterator) Next() (entry Entry, ok bool, err error) {
	if it.pos >= len(it.dates) {
		return Entry{}, false, nil
	}
	date := it.dates[it.pos]
	it.pos++

	var raw json.RawMessage
	if err := it.store.Read(it.kind, it.dataset, date, &raw); err != nil {
		return Entry{}, false, err
	}
	return Entry{Date: date, Record: raw}, true, nil
}

// Reset rewinds the iterator to the start of the history.
func (it *HistoryIterator) Reset() { it.pos = 0 }
