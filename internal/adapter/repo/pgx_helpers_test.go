package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"shortgen/internal/infra"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

type sliceRows struct {
	values [][]any
	pos    int
}

func (r *sliceRows) Close()                                       {}
func (r *sliceRows) Err() error                                   { return nil }
func (r *sliceRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *sliceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *sliceRows) Conn() *pgx.Conn                              { return nil }
func (r *sliceRows) RawValues() [][]byte                          { return nil }

func (r *sliceRows) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (r *sliceRows) Next() bool {
	if r.pos >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Scan(dest ...any) error {
	row := r.values[r.pos-1]
	for i := range dest {
		switch d := dest[i].(type) {
		case *string:
			*d = row[i].(string)
		default:
			return fmt.Errorf("unsupported dest %T", dest[i])
		}
	}
	return nil
}

type call struct {
	marker string
	args   []any
}

// scriptedSQL answers statements by their marker and records every call.
type scriptedSQL struct {
	rows    map[string]func(args []any) pgx.Row
	query   map[string][][]any
	execTag map[string]string
	calls   []call
	txCount int
}

func newScriptedSQL() *scriptedSQL {
	return &scriptedSQL{
		rows:    map[string]func([]any) pgx.Row{},
		query:   map[string][][]any{},
		execTag: map[string]string{},
	}
}

func markerOf(query string) string {
	first := strings.SplitN(strings.TrimSpace(query), "\n", 2)[0]
	return strings.TrimPrefix(first, "--sql ")
}

func (s *scriptedSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	m := markerOf(query)
	s.calls = append(s.calls, call{marker: m, args: args})
	tag, ok := s.execTag[m]
	if !ok {
		tag = "UPDATE 1"
	}
	return pgconn.NewCommandTag(tag), nil
}

func (s *scriptedSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	m := markerOf(query)
	s.calls = append(s.calls, call{marker: m, args: args})
	if fn, ok := s.rows[m]; ok {
		return fn(args)
	}
	return simpleRow{}
}

func (s *scriptedSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	m := markerOf(query)
	s.calls = append(s.calls, call{marker: m, args: args})
	return &sliceRows{values: s.query[m]}, nil
}

func (s *scriptedSQL) InTx(_ context.Context, fn func(tx infra.SQLExecutor) error) error {
	s.txCount++
	return fn(s)
}

func (s *scriptedSQL) count(query string) int {
	m := markerOf(query)
	n := 0
	for _, c := range s.calls {
		if c.marker == m {
			n++
		}
	}
	return n
}

var _ infra.TxRunner = (*scriptedSQL)(nil)
