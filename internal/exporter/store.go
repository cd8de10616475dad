package exporter

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrTableNotFound is returned by Get for a key that was never stored.
var ErrTableNotFound = errors.New("table not found")

// Table is a row-oriented aggregate with a header of column names.
type Table struct {
	Header []string
	Rows   [][]string
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{Header: append([]string(nil), t.Header...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}

// AggregateStore persists aggregate tables by key.
type AggregateStore interface {
	Put(ctx context.Context, key string, table Table) error
	Get(ctx context.Context, key string) (Table, error)
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateKey checks that key is usable as a file or sheet name.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("invalid table key %q", key)
	}
	return nil
}
