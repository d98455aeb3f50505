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
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. It is loaded once
// in cmd and threaded explicitly into component constructors.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Suites  SuitesConfig  `mapstructure:"suites"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Alerts  AlertsConfig  `mapstructure:"alerts"`
}

// StorageConfig holds artifact store configuration.
type StorageConfig struct {
	// Root is the base directory for persisted artifacts
	// (validation results, insights, fixes, raw copies).
	Root string `mapstructure:"root"`
	// KeepRawCopies persists a raw copy of every ingested dataset
	// under the raw partition for auditability.
	KeepRawCopies bool `mapstructure:"keep_raw_copies"`
}

// SuitesConfig holds rule suite store configuration.
type SuitesConfig struct {
	Dir string `mapstructure:"dir"`
}

// LLMConfig holds configuration for the language model capability.
type LLMConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"`
	Temperature     float32       `mapstructure:"temperature"`
	MaxOutputTokens int32         `mapstructure:"max_output_tokens"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxAttempts     int           `mapstructure:"max_attempts"`
}

// AlertsConfig holds configuration for the alert dispatchers.
type AlertsConfig struct {
	Email   EmailAlertConfig   `mapstructure:"email"`
	Slack   SlackAlertConfig   `mapstructure:"slack"`
	Webhook WebhookAlertConfig `mapstructure:"webhook"`
}

type EmailAlertConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	SMTPServer string   `mapstructure:"smtp_server"`
	SMTPPort   int      `mapstructure:"smtp_port"`
	Sender     string   `mapstructure:"sender"`
	Password   string   `mapstructure:"password"`
	Recipients []string `mapstructure:"recipients"`
}

type SlackAlertConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

type WebhookAlertConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
}

// Load reads configuration from the given file (optional) and the
// environment (DQ_ prefix), applying defaults for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("storage.root", "data")
	v.SetDefault("storage.keep_raw_copies", true)
	v.SetDefault("suites.dir", "expectations")
	v.SetDefault("llm.model", "gemini-1.5-flash-latest")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_output_tokens", 1024)
	v.SetDefault("llm.request_timeout", 30*time.Second)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("alerts.email.smtp_port", 587)

	v.SetEnvPrefix("DQ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
