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
package suite

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrSuiteNotFound indicates that no persisted version exists for a
// suite name.
type ErrSuiteNotFound struct {
	Name string
}

func (e *ErrSuiteNotFound) Error() string {
	return fmt.Sprintf("suite not found: %s", e.Name)
}

// FileStore persists suites as YAML documents, one file per suite name.
// Loads are cached in memory for the duration of a run; the store is
// read-mostly.
type FileStore struct {
	dir    string
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Suite
}

// NewFileStore creates a suite store rooted at dir.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return &FileStore{
		dir:    dir,
		logger: logger,
		cache:  make(map[string]*Suite),
	}
}

// Load reads a suite by name. It fails with *ErrSuiteNotFound when the
// name has no persisted version. Suites are loaded in full.
func (s *FileStore) Load(name string) (*Suite, error) {
	s.mu.RLock()
	if cached, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	data, err := s.readSuiteFile(name)
	if err != nil {
		return nil, err
	}

	loaded, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("suite %s: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = loaded
	s.mu.Unlock()

	s.logger.Info("suite loaded",
		zap.String("suite", name),
		zap.Int("version", loaded.Version),
		zap.Int("rules", len(loaded.Rules)))
	return loaded, nil
}

func (s *FileStore) readSuiteFile(name string) ([]byte, error) {
	for _, ext := range []string{".yml", ".yaml"} {
		data, err := os.ReadFile(filepath.Join(s.dir, name+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read suite %s: %w", name, err)
		}
	}
	return nil, &ErrSuiteNotFound{Name: name}
}

// Save persists a suite under its name, replacing any previous version,
// and refreshes the cache.
func (s *FileStore) Save(suite *Suite) (string, error) {
	if suite.Name == "" {
		return "", &ErrRuleDefinition{Msg: "cannot save a suite without a name"}
	}

	data, err := Marshal(suite)
	if err != nil {
		return "", fmt.Errorf("failed to marshal suite %s: %w", suite.Name, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create suites directory: %w", err)
	}

	path := filepath.Join(s.dir, suite.Name+".yml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write suite %s: %w", suite.Name, err)
	}

	s.mu.Lock()
	s.cache[suite.Name] = suite
	s.mu.Unlock()

	s.logger.Info("suite saved", zap.String("suite", suite.Name), zap.String("path", path))
	return path, nil
}
