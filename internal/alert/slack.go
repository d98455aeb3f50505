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
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/dataplatform-tools/data-quality-monitor/internal/config"
)

// SlackDispatcher delivers alerts to a Slack incoming webhook.
type SlackDispatcher struct {
	cfg config.SlackAlertConfig
}

// NewSlackDispatcher creates a Slack channel from configuration.
func NewSlackDispatcher(cfg config.SlackAlertConfig) *SlackDispatcher {
	return &SlackDispatcher{cfg: cfg}
}

func (d *SlackDispatcher) Name() string { return "slack" }

func (d *SlackDispatcher) Dispatch(ctx context.Context, p Payload) error {
	msg := &slack.WebhookMessage{
		Channel: d.cfg.Channel,
		Text:    fmt.Sprintf(":rotating_light: *%s*\n```%s```", p.Subject(), FormatMessage(p)),
	}
	if err := slack.PostWebhookContext(ctx, d.cfg.WebhookURL, msg); err != nil {
		return fmt.Errorf("failed to post alert to Slack webhook: %w", err)
	}
	return nil
}
