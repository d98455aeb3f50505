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
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"

	"cloud.google.com/go/cloudsqlconn"
	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// SupportedDialects lists the database dialects accepted by
// DatabaseSource.Dialect.
var SupportedDialects = []string{"postgres", "cloudsqlpostgres", "mysql", "sqlserver"}

func (l *Loader) loadDatabase(ctx context.Context, name string, src *DatabaseSource) (*Dataset, error) {
	if src.Query == "" {
		return nil, &ErrIngestion{Msg: "database source has no query"}
	}

	pool, err := openPool(ctx, src)
	if err != nil {
		return nil, &ErrIngestion{Msg: fmt.Sprintf("connecting to %s database %s", src.Dialect, src.DBName), Err: err}
	}
	defer pool.Close()

	if err := pool.PingContext(ctx); err != nil {
		return nil, &ErrIngestion{Msg: fmt.Sprintf("pinging %s database %s", src.Dialect, src.DBName), Err: err}
	}

	rows, err := pool.QueryContext(ctx, src.Query)
	if err != nil {
		return nil, &ErrIngestion{Msg: "executing source query", Err: err}
	}
	defer rows.Close()

	return datasetFromRows(name, rows)
}

func openPool(ctx context.Context, src *DatabaseSource) (*sql.DB, error) {
	switch src.Dialect {
	case "postgres":
		sslMode := src.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		connStr := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			src.Host, src.Port, src.User, src.Password, src.DBName, sslMode,
		)
		return sql.Open("postgres", connStr)

	case "cloudsqlpostgres":
		dsn := fmt.Sprintf("user=%s password=%s database=%s", src.User, src.Password, src.DBName)
		pgxCfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, err
		}
		var opts []cloudsqlconn.Option
		if src.UsePrivateIP {
			opts = append(opts, cloudsqlconn.WithDefaultDialOptions(cloudsqlconn.WithPrivateIP()))
		}
		dialer, err := cloudsqlconn.NewDialer(ctx, opts...)
		if err != nil {
			return nil, err
		}
		instance := src.CloudSQLInstance
		pgxCfg.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(ctx, instance)
		}
		dbURI := stdlib.RegisterConnConfig(pgxCfg)
		return sql.Open("pgx", dbURI)

	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			src.User, src.Password, src.Host, src.Port, src.DBName)
		return sql.Open("mysql", dsn)

	case "sqlserver":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
			src.User, src.Password, src.Host, src.Port, src.DBName)
		return sql.Open("sqlserver", dsn)

	default:
		return nil, fmt.Errorf("unsupported dialect: %s (only %s are supported)",
			src.Dialect, strings.Join(SupportedDialects, ", "))
	}
}

// datasetFromRows scans a SQL result set into a Dataset, normalising
// driver values to the cell types used everywhere else.
func datasetFromRows(name string, rows *sql.Rows) (*Dataset, error) {
	colNames, err := rows.Columns()
	if err != nil {
		return nil, &ErrIngestion{Msg: "reading result columns", Err: err}
	}

	columns := make([]Column, len(colNames))
	for i, n := range colNames {
		columns[i] = Column{Name: n}
	}

	var data [][]any
	for rows.Next() {
		cells := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &ErrIngestion{Msg: "scanning result row", Err: err}
		}
		for i, cell := range cells {
			cells[i] = normalizeDriverValue(cell)
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, &ErrIngestion{Msg: "iterating result rows", Err: err}
	}

	ds := &Dataset{Name: name, Columns: columns, Rows: data}
	unifyColumns(ds)
	return ds, nil
}

func normalizeDriverValue(v any) any {
	switch val := v.(type) {
	case []byte:
		s := string(val)
		if s == "" {
			return nil
		}
		if t, ok := parseDatetime(s); ok {
			return t
		}
		return s
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}
