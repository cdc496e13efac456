package feature

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/ormasoftchile/upkeep/pkg/executor"
)

// DefaultPSQL is the command the database feature pipes SQL into.
var DefaultPSQL = []string{"su", "-", "postgres", "-c", "psql -d foreman"}

// Database is a feature backed by a PostgreSQL database reachable through psql.
type Database struct {
	Basic
	host *Host
	psql []string
}

// NewDatabase creates a database feature. A nil psql uses DefaultPSQL.
func NewDatabase(name string, host *Host, psql []string) *Database {
	if len(psql) == 0 {
		psql = DefaultPSQL
	}
	return &Database{
		Basic: Basic{FeatureName: name, Attributes: map[string]any{"kind": "database"}},
		host:  host,
		psql:  psql,
	}
}

// Execute pipes sql into psql and returns its raw output.
func (d *Database) Execute(ctx context.Context, sql string) (string, error) {
	res, err := d.host.Exec.Execute(ctx, executor.Command{
		Name:  d.psql[0],
		Args:  d.psql[1:],
		Stdin: sql,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", d.FeatureName, err)
	}
	if !res.Success() {
		return "", fmt.Errorf("%s: psql exited %d: %s", d.FeatureName, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return string(res.Stdout), nil
}

// Query runs a SELECT and returns its rows keyed by column name.
func (d *Database) Query(ctx context.Context, sql string) ([]map[string]string, error) {
	out, err := d.Execute(ctx, fmt.Sprintf("COPY (%s) TO STDOUT WITH CSV HEADER", sql))
	if err != nil {
		return nil, err
	}
	return ParseCSV(out)
}

// ParseCSV turns CSV with a header row into one map per data row.
func ParseCSV(data string) ([]map[string]string, error) {
	r := csv.NewReader(strings.NewReader(data))
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv header: %w", err)
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
