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
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dataplatform-tools/data-quality-monitor/internal/config"
)

// WebhookDispatcher POSTs the full validation result as JSON to an
// arbitrary HTTP endpoint.
type WebhookDispatcher struct {
	cfg    config.WebhookAlertConfig
	client *http.Client
}

// NewWebhookDispatcher creates a generic webhook channel from
// configuration.
func NewWebhookDispatcher(cfg config.WebhookAlertConfig) *WebhookDispatcher {
	return &WebhookDispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (d *WebhookDispatcher) Name() string { return "webhook" }

func (d *WebhookDispatcher) Dispatch(ctx context.Context, p Payload) error {
	payload := map[string]any{
		"subject": p.Subject(),
		"result":  p.Result,
	}
	if len(p.Insights) > 0 {
		payload["insights"] = p.Insights
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range d.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
