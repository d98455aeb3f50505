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
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Storage.Root)
	assert.True(t, cfg.Storage.KeepRawCopies)
	assert.Equal(t, "expectations", cfg.Suites.Dir)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.LLM.Model)
	assert.Equal(t, float32(0.2), cfg.LLM.Temperature)
	assert.Equal(t, int32(1024), cfg.LLM.MaxOutputTokens)
	assert.Equal(t, 30*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, 587, cfg.Alerts.Email.SMTPPort)
	assert.False(t, cfg.Alerts.Email.Enabled)
}

func TestLoadFromFile(t *testing.T) {
	doc := `
storage:
  root: /var/lib/dq
  keep_raw_copies: false
suites:
  dir: ./rules
llm:
  model: gemini-1.5-pro-002
  max_attempts: 5
alerts:
  slack:
    enabled: true
    webhook_url: https://hooks.slack.com/services/T/B/X
    channel: "#data-quality"
  webhook:
    enabled: true
    url: https://ops.example.com/hooks/dq
    headers:
      X-Token: secret
`
	path := filepath.Join(t.TempDir(), "dq.yml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/dq", cfg.Storage.Root)
	assert.False(t, cfg.Storage.KeepRawCopies)
	assert.Equal(t, "./rules", cfg.Suites.Dir)
	assert.Equal(t, "gemini-1.5-pro-002", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.LLM.MaxAttempts)
	assert.True(t, cfg.Alerts.Slack.Enabled)
	assert.Equal(t, "#data-quality", cfg.Alerts.Slack.Channel)
	assert.Equal(t, "secret", cfg.Alerts.Webhook.Headers["X-Token"])

	// Unset keys keep their defaults.
	assert.Equal(t, 587, cfg.Alerts.Email.SMTPPort)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DQ_STORAGE_ROOT", "/srv/dq")
	t.Setenv("DQ_LLM_MODEL", "gemini-2.0-flash")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/srv/dq", cfg.Storage.Root)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
}
