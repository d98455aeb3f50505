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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dataplatform-tools/data-quality-monitor/internal/alert"
	"github.com/dataplatform-tools/data-quality-monitor/internal/artifact"
	"github.com/dataplatform-tools/data-quality-monitor/internal/config"
	"github.com/dataplatform-tools/data-quality-monitor/internal/dataset"
	"github.com/dataplatform-tools/data-quality-monitor/internal/enrich"
	"github.com/dataplatform-tools/data-quality-monitor/internal/genai"
	"github.com/dataplatform-tools/data-quality-monitor/internal/suite"
)

var (
	configPath   string
	geminiAPIKey string
	modelName    string
	verbose      bool

	// Dataset source flags, shared by the ingesting commands.
	sourceFile  string
	datasetName string

	apiURL         string
	apiMethod      string
	apiBearerToken string
	apiBasicUser   string
	apiBasicPass   string

	dbDialect         string
	dbHost            string
	dbPort            int
	dbUser            string
	dbPassword        string
	dbName            string
	dbSSLMode         string
	dbQuery           string
	cloudSQLInstance  string
	cloudSQLPrivateIP bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dq_monitor",
	Short: "A tool to validate datasets against rule suites and explain failures",
	Long: `dq_monitor is a CLI tool that loads tabular datasets from files, HTTP
APIs or databases, validates them against declarative rule suites, stores
dated results for trend analysis, and uses a language model to generate
insights, fix suggestions, and draft rule suites.`,
	PersistentPreRunE: initConfigAndLogger,
	SilenceUsage:      true,
}

// initConfigAndLogger builds the logger and loads configuration before
// any subcommand runs.
func initConfigAndLogger(cmd *cobra.Command, args []string) error {
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	if geminiAPIKey == "" {
		geminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if geminiAPIKey != "" {
		cfg.LLM.APIKey = geminiAPIKey
	}
	if modelName != "" {
		cfg.LLM.Model = modelName
	}
	return nil
}

// buildSource assembles a dataset source from the shared flags. Exactly
// one of --file, --api-url and --dialect selects the source kind.
func buildSource() (dataset.Source, error) {
	selected := 0
	for _, set := range []bool{sourceFile != "", apiURL != "", dbDialect != ""} {
		if set {
			selected++
		}
	}
	if selected != 1 {
		return dataset.Source{}, fmt.Errorf("exactly one of --file, --api-url or --dialect must be provided")
	}

	switch {
	case sourceFile != "":
		return dataset.Source{Kind: dataset.SourceFile, Name: datasetName, Path: sourceFile}, nil

	case apiURL != "":
		return dataset.Source{
			Kind: dataset.SourceAPI,
			Name: datasetName,
			API: &dataset.APISource{
				URL:         apiURL,
				Method:      apiMethod,
				BasicUser:   apiBasicUser,
				BasicPass:   apiBasicPass,
				BearerToken: apiBearerToken,
			},
		}, nil

	default:
		if dbQuery == "" {
			return dataset.Source{}, fmt.Errorf("--query is required for database sources")
		}
		return dataset.Source{
			Kind: dataset.SourceDatabase,
			Name: datasetName,
			Database: &dataset.DatabaseSource{
				Dialect:          dbDialect,
				Host:             dbHost,
				Port:             dbPort,
				User:             dbUser,
				Password:         dbPassword,
				DBName:           dbName,
				SSLMode:          dbSSLMode,
				Query:            dbQuery,
				CloudSQLInstance: cloudSQLInstance,
				UsePrivateIP:     cloudSQLPrivateIP,
			},
		}, nil
	}
}

func newArtifactStore() *artifact.Store {
	return artifact.NewStore(cfg.Storage.Root, logger)
}

func newLoader(store *artifact.Store) *dataset.Loader {
	var raw dataset.RawSink
	if cfg.Storage.KeepRawCopies {
		raw = store
	}
	return dataset.NewLoader(logger, raw)
}

func newSuiteStore() *suite.FileStore {
	return suite.NewFileStore(cfg.Suites.Dir, logger)
}

func newLLMClient(ctx context.Context) (genai.LLMClient, error) {
	return genai.NewClient(ctx, genai.Config{
		APIKey:          cfg.LLM.APIKey,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		RequestTimeout:  cfg.LLM.RequestTimeout,
	})
}

func retryOptions() enrich.RetryOptions {
	opts := enrich.DefaultRetryOptions
	if cfg.LLM.MaxAttempts > 0 {
		opts.MaxAttempts = cfg.LLM.MaxAttempts
	}
	return opts
}

func newAlertManager() *alert.Manager {
	var dispatchers []alert.Dispatcher
	if cfg.Alerts.Email.Enabled {
		dispatchers = append(dispatchers, alert.NewEmailDispatcher(cfg.Alerts.Email))
	}
	if cfg.Alerts.Slack.Enabled {
		dispatchers = append(dispatchers, alert.NewSlackDispatcher(cfg.Alerts.Slack))
	}
	if cfg.Alerts.Webhook.Enabled {
		dispatchers = append(dispatchers, alert.NewWebhookDispatcher(cfg.Alerts.Webhook))
	}
	return alert.NewManager(logger, dispatchers...)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (optional; DQ_* environment variables also apply)")
	rootCmd.PersistentFlags().StringVar(&geminiAPIKey, "gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")
	rootCmd.PersistentFlags().StringVar(&modelName, "model", "", "Model to use for insight and suite generation (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Dataset source flags
	rootCmd.PersistentFlags().StringVar(&sourceFile, "file", "", "Path to a CSV or JSON dataset file")
	rootCmd.PersistentFlags().StringVar(&datasetName, "name", "", "Dataset name (derived from the source when empty)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "HTTP endpoint returning JSON records")
	rootCmd.PersistentFlags().StringVar(&apiMethod, "api-method", "GET", "HTTP method for the API source")
	rootCmd.PersistentFlags().StringVar(&apiBearerToken, "api-bearer-token", "", "Bearer token for the API source")
	rootCmd.PersistentFlags().StringVar(&apiBasicUser, "api-basic-user", "", "Basic auth username for the API source")
	rootCmd.PersistentFlags().StringVar(&apiBasicPass, "api-basic-password", "", "Basic auth password for the API source")
	rootCmd.PersistentFlags().StringVar(&dbDialect, "dialect", "", "Database dialect (postgres, cloudsqlpostgres, mysql, sqlserver)")
	rootCmd.PersistentFlags().StringVar(&dbHost, "host", "", "Database host")
	rootCmd.PersistentFlags().IntVar(&dbPort, "port", 0, "Database port")
	rootCmd.PersistentFlags().StringVar(&dbUser, "username", "", "Database username")
	rootCmd.PersistentFlags().StringVar(&dbPassword, "password", "", "Database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "database", "", "Database name")
	rootCmd.PersistentFlags().StringVar(&dbSSLMode, "sslmode", "", "Postgres SSL mode")
	rootCmd.PersistentFlags().StringVar(&dbQuery, "query", "", "SQL query producing the dataset")
	rootCmd.PersistentFlags().StringVar(&cloudSQLInstance, "cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for the cloudsqlpostgres dialect)")
	rootCmd.PersistentFlags().BoolVar(&cloudSQLPrivateIP, "cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(insightsCmd)
	rootCmd.AddCommand(fixesCmd)
	rootCmd.AddCommand(generateSuiteCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(monitorCmd)
}
