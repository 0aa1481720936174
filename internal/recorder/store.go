package recorder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"MarketPulse/internal/model"
)

// ErrorKind classifies store failures that drive the fallback ladder.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindNoMatchingConstraint: no unique/exclusion constraint matches the conflict key.
	KindNoMatchingConstraint
	// KindDuplicateKey: an insert hit a real uniqueness constraint.
	KindDuplicateKey
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoMatchingConstraint:
		return "no_matching_constraint"
	case KindDuplicateKey:
		return "duplicate_key"
	default:
		return "unknown"
	}
}

// StoreError is a classified failure returned by a Store.
type StoreError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Detail  string
	// Column is the offending column list for duplicate-key violations, comma separated.
	Column string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
	}
	return e.Message
}

func (e *StoreError) Unwrap() error { return e.Err }

// Classify returns err as a StoreError, wrapping unrecognized errors as KindUnknown.
func Classify(err error) *StoreError {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se
	}
	return &StoreError{Kind: KindUnknown, Message: err.Error(), Err: err}
}

// Store is the upsert/insert primitive of a relational destination.
// Both methods return the number of rows written.
type Store interface {
	Upsert(ctx context.Context, table string, rows []model.Row, conflictKey []string) (int, error)
	Insert(ctx context.Context, table string, rows []model.Row) (int, error)
	Close() error
}

// ParseConflictKey splits a comma separated column list.
func ParseConflictKey(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// rowColumns returns the sorted union of column names across rows.
func rowColumns(rows []model.Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// dialect captures the SQL differences between backends.
type dialect struct {
	quote       func(ident string) string
	placeholder func(n int) string
	excluded    string
}

// buildInsert renders a multi-row INSERT, optionally with an ON CONFLICT upsert clause.
func buildInsert(d dialect, qualifiedTable string, rows []model.Row, conflictKey []string) (string, []any) {
	cols := rowColumns(rows)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.quote(c)
	}

	var b strings.Builder
	args := make([]any, 0, len(rows)*len(cols))
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", qualifiedTable, strings.Join(quoted, ", "))
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, c := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			args = append(args, r[c])
			b.WriteString(d.placeholder(len(args)))
		}
		b.WriteByte(')')
	}

	if len(conflictKey) > 0 {
		keys := make([]string, len(conflictKey))
		isKey := make(map[string]bool, len(conflictKey))
		for i, k := range conflictKey {
			keys[i] = d.quote(k)
			isKey[k] = true
		}
		var sets []string
		for i, c := range cols {
			if isKey[c] {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = %s.%s", quoted[i], d.excluded, quoted[i]))
		}
		if len(sets) == 0 {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(keys, ", "))
		} else {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(keys, ", "), strings.Join(sets, ", "))
		}
	}
	return b.String(), args
}
