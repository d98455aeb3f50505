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
	"net/smtp"
	"strings"

	"github.com/dataplatform-tools/data-quality-monitor/internal/config"
)

// EmailDispatcher delivers alerts over SMTP with STARTTLS.
type EmailDispatcher struct {
	cfg config.EmailAlertConfig
}

// NewEmailDispatcher creates an email channel from configuration.
func NewEmailDispatcher(cfg config.EmailAlertConfig) *EmailDispatcher {
	return &EmailDispatcher{cfg: cfg}
}

func (d *EmailDispatcher) Name() string { return "email" }

func (d *EmailDispatcher) Dispatch(ctx context.Context, p Payload) error {
	if len(d.cfg.Recipients) == 0 {
		return fmt.Errorf("email alert has no recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMIMEMessage(d.cfg.Sender, d.cfg.Recipients, p.Subject(), FormatMessage(p))
	addr := fmt.Sprintf("%s:%d", d.cfg.SMTPServer, d.cfg.SMTPPort)
	auth := smtp.PlainAuth("", d.cfg.Sender, d.cfg.Password, d.cfg.SMTPServer)

	if err := smtp.SendMail(addr, auth, d.cfg.Sender, d.cfg.Recipients, msg); err != nil {
		return fmt.Errorf("failed to send alert email via %s: %w", addr, err)
	}
	return nil
}

func buildMIMEMessage(sender string, recipients []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", sender)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(recipients, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
