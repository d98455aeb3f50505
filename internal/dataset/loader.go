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
package dataset

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrIngestion represents a fatal failure to load a dataset: the source
// is unreachable, unparseable, or yields zero columns.
type ErrIngestion struct {
	Msg string
	Err error
}

func (e *ErrIngestion) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("ingestion error: %s", e.Msg)
}

func (e *ErrIngestion) Unwrap() error { return e.Err }

// SourceKind identifies the kind of a dataset source.
type SourceKind string

const (
	SourceFile     SourceKind = "file"
	SourceAPI      SourceKind = "api"
	SourceDatabase SourceKind = "database"
)

// APISource describes an HTTP endpoint returning JSON records.
type APISource struct {
	URL         string            `mapstructure:"url"`
	Method      string            `mapstructure:"method"`
	Headers     map[string]string `mapstructure:"headers"`
	Params      map[string]string `mapstructure:"params"`
	BasicUser   string            `mapstructure:"basic_user"`
	BasicPass   string            `mapstructure:"basic_password"`
	BearerToken string            `mapstructure:"bearer_token"`
}

// DatabaseSource describes a SQL query against a database dialect.
type DatabaseSource struct {
	Dialect          string `mapstructure:"dialect"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	User             string `mapstructure:"user"`
	Password         string `mapstructure:"password"`
	DBName           string `mapstructure:"dbname"`
	SSLMode          string `mapstructure:"sslmode"`
	Query            string `mapstructure:"query"`
	CloudSQLInstance string `mapstructure:"cloudsql_instance"`
	UsePrivateIP     bool   `mapstructure:"use_private_ip"`
}

// Source is a locator for one dataset.
type Source struct {
	Kind     SourceKind
	Name     string // dataset name; derived from the locator when empty
	Path     string
	API      *APISource
	Database *DatabaseSource
}

// DatasetName returns the dataset identity used for artifact
// partitioning.
func (s Source) DatasetName() string {
	if s.Name != "" {
		return s.Name
	}
	switch s.Kind {
	case SourceFile:
		base := filepath.Base(s.Path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	case SourceAPI:
		if s.API != nil {
			if u, err := url.Parse(s.API.URL); err == nil && u.Host != "" {
				return u.Host
			}
		}
		return "api_data"
	case SourceDatabase:
		if s.Database != nil && s.Database.DBName != "" {
			return s.Database.DBName
		}
		return "db_data"
	}
	return "dataset"
}

// RawSink persists a raw copy of ingested bytes for auditability.
// Implemented by the artifact store.
type RawSink interface {
	WriteRaw(datasetName string, ts time.Time, ext string, data []byte) (string, error)
}

// Loader reads a tabular source into an in-memory Dataset.
type Loader struct {
	logger     *zap.Logger
	httpClient *http.Client
	raw        RawSink // nil disables raw copies
}

// NewLoader creates a Loader. raw may be nil to disable raw-copy
// persistence.
func NewLoader(logger *zap.Logger, raw RawSink) *Loader {
	return &Loader{
		logger:     logger,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		raw:        raw,
	}
}

// Load reads the source into a Dataset. It fails with *ErrIngestion
// when the source is unreachable, unparseable, or yields zero columns.
func (l *Loader) Load(ctx context.Context, src Source) (*Dataset, error) {
	var (
		ds  *Dataset
		ext string
		buf []byte
		err error
	)

	switch src.Kind {
	case SourceFile:
		buf, err = os.ReadFile(src.Path)
		if err != nil {
			return nil, &ErrIngestion{Msg: fmt.Sprintf("reading file %s", src.Path), Err: err}
		}
		ext = strings.ToLower(filepath.Ext(src.Path))
		ds, err = parseBytes(src.DatasetName(), ext, buf)
	case SourceAPI:
		if src.API == nil {
			return nil, &ErrIngestion{Msg: "api source descriptor is missing"}
		}
		buf, err = l.fetchAPI(ctx, src.API)
		if err != nil {
			return nil, err
		}
		ext = ".json"
		ds, err = parseBytes(src.DatasetName(), ext, buf)
	case SourceDatabase:
		if src.Database == nil {
			return nil, &ErrIngestion{Msg: "database source descriptor is missing"}
		}
		ds, err = l.loadDatabase(ctx, src.DatasetName(), src.Database)
		if err == nil {
			ext = ".csv"
			buf = renderCSV(ds)
		}
	default:
		return nil, &ErrIngestion{Msg: fmt.Sprintf("unsupported source kind: %s", src.Kind)}
	}
	if err != nil {
		return nil, err
	}

	if len(ds.Columns) == 0 {
		return nil, &ErrIngestion{Msg: fmt.Sprintf("source %s yielded zero columns", src.DatasetName())}
	}

	if l.raw != nil && len(buf) > 0 {
		if path, rawErr := l.raw.WriteRaw(ds.Name, time.Now().UTC(), ext, buf); rawErr != nil {
			l.logger.Warn("failed to persist raw copy", zap.String("dataset", ds.Name), zap.Error(rawErr))
		} else {
			l.logger.Info("raw copy persisted", zap.String("dataset", ds.Name), zap.String("path", path))
		}
	}

	l.logger.Info("dataset loaded",
		zap.String("dataset", ds.Name),
		zap.Int("columns", len(ds.Columns)),
		zap.Int("rows", ds.RowCount()))
	return ds, nil
}

func (l *Loader) fetchAPI(ctx context.Context, api *APISource) ([]byte, error) {
	method := api.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, api.URL, nil)
	if err != nil {
		return nil, &ErrIngestion{Msg: fmt.Sprintf("building request for %s", api.URL), Err: err}
	}
	if len(api.Params) > 0 {
		q := req.URL.Query()
		for k, v := range api.Params {
			q.Set(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, v := range api.Headers {
		req.Header.Set(k, v)
	}
	if api.BasicUser != "" {
		req.SetBasicAuth(api.BasicUser, api.BasicPass)
	} else if api.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+api.BearerToken)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, &ErrIngestion{Msg: fmt.Sprintf("requesting %s", api.URL), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ErrIngestion{Msg: fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, api.URL)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ErrIngestion{Msg: fmt.Sprintf("reading response from %s", api.URL), Err: err}
	}
	return body, nil
}

func parseBytes(name, ext string, data []byte) (*Dataset, error) {
	switch ext {
	case ".csv":
		return parseCSV(name, data)
	case ".json":
		return parseJSON(name, data)
	default:
		return nil, &ErrIngestion{Msg: fmt.Sprintf("unsupported file format: %s", ext)}
	}
}

func parseCSV(name string, data []byte) (*Dataset, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ErrIngestion{Msg: "parsing CSV", Err: err}
	}
	if len(records) == 0 {
		return nil, &ErrIngestion{Msg: "CSV source is empty"}
	}
	return newFromStrings(name, records[0], records[1:]), nil
}

func parseJSON(name string, data []byte) (*Dataset, error) {
	records, err := jsonRecords(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Dataset{Name: name}, nil
	}

	header, err := jsonKeyOrder(records[0])
	if err != nil {
		return nil, &ErrIngestion{Msg: "reading JSON record keys", Err: err}
	}

	columns := make([]Column, len(header))
	for i, h := range header {
		columns[i] = Column{Name: h}
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			return nil, &ErrIngestion{Msg: "parsing JSON record", Err: err}
		}
		row := make([]any, len(header))
		for j, h := range header {
			row[j] = normalizeJSONValue(obj[h])
		}
		rows[i] = row
	}

	ds := &Dataset{Name: name, Columns: columns, Rows: rows}
	unifyColumns(ds)
	return ds, nil
}

// jsonRecords extracts the record array from a JSON document: either a
// top-level array, or an object carrying the records under a "results"
// or "data" key.
func jsonRecords(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, &ErrIngestion{Msg: "parsing JSON array", Err: err}
		}
		return records, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, &ErrIngestion{Msg: "parsing JSON document", Err: err}
	}
	for _, key := range []string{"results", "data"} {
		if raw, ok := envelope[key]; ok {
			var records []json.RawMessage
			if err := json.Unmarshal(raw, &records); err == nil {
				return records, nil
			}
		}
	}
	return nil, &ErrIngestion{Msg: "JSON document has no record array (expected top-level array or a results/data key)"}
}

// jsonKeyOrder walks the token stream of a single JSON object to
// recover its key order, which encoding/json maps discard.
func jsonKeyOrder(obj json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		keys = append(keys, key)

		// Skip the value, whatever its shape.
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func normalizeJSONValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		if t, ok := parseDatetime(val); ok {
			return t
		}
		return val
	case float64:
		return val
	case bool:
		return val
	default:
		// Nested arrays/objects are rendered as JSON text.
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

func renderCSV(ds *Dataset) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(ds.ColumnNames())
	for _, row := range ds.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = FormatCell(cell)
		}
		_ = w.Write(record)
	}
	w.Flush()
	return buf.Bytes()
}
